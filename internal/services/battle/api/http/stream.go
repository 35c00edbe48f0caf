package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	apperrors "github.com/louisbranch/autoresolve/internal/platform/errors"
	"github.com/louisbranch/autoresolve/internal/platform/requestctx"
	"github.com/louisbranch/autoresolve/internal/platform/timeouts"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/engine"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/report"
	"go.uber.org/zap"
)

// Stream message types.
const (
	messageEntry   = "entry"
	messageOutcome = "outcome"
	messageError   = "error"
)

type streamMessage struct {
	Type    string          `json:"type"`
	Entry   *report.Entry   `json:"entry,omitempty"`
	Outcome *engine.Outcome `json:"outcome,omitempty"`
	Summary string          `json:"summary,omitempty"`
	Error   *errorBody      `json:"error,omitempty"`
}

// wsSink writes each entry as it is emitted. The engine emits from a single
// goroutine, so writes never overlap.
type wsSink struct {
	conn *websocket.Conn
}

func (s wsSink) Write(entry report.Entry) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(timeouts.StreamWrite)); err != nil {
		return err
	}
	return s.conn.WriteJSON(streamMessage{Type: messageEntry, Entry: &entry})
}

// handleStream resolves one request per connection. The client sends a
// resolve request; the server answers with entry messages in emission order,
// then one outcome or error message, then closes.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.maxBody)

	logger := s.logger.With(
		zap.String("request_id", requestctx.RequestIDFromContext(r.Context())),
		zap.String("remote_addr", r.RemoteAddr),
	)
	printer := printerFor(r)

	var req resolveRequest
	if err := conn.SetReadDeadline(time.Now().Add(timeouts.StreamRequest)); err != nil {
		return
	}
	if err := conn.ReadJSON(&req); err != nil {
		s.closeWithError(conn, logger, apperrors.Wrap(apperrors.CodeInvalidRequest, "decode request", err))
		return
	}

	sc, err := s.loadScenario(req)
	if err != nil {
		s.closeWithError(conn, logger, err)
		return
	}
	archived := req.archiveRequest()
	archived.Sink = wsSink{conn: conn}
	outcome, err := s.runner.Run(r.Context(), sc, archived)
	if err != nil {
		s.closeWithError(conn, logger, err)
		return
	}
	summary, err := summarize(outcome, printer)
	if err != nil {
		s.closeWithError(conn, logger, err)
		return
	}
	if err := s.send(conn, streamMessage{Type: messageOutcome, Outcome: &outcome, Summary: summary}); err != nil {
		logger.Warn("send outcome", zap.String("run_id", outcome.RunID), zap.Error(err))
		return
	}
	s.close(conn, websocket.CloseNormalClosure, "")
}

func (s *Server) closeWithError(conn *websocket.Conn, logger *zap.Logger, err error) {
	code := apperrors.CodeOf(err)
	message := err.Error()
	if code.HTTPStatus() >= http.StatusInternalServerError {
		logger.Error("stream failed", zap.Error(err))
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return
	}
	if sendErr := s.send(conn, streamMessage{Type: messageError, Error: &errorBody{Code: string(code), Message: message}}); sendErr != nil {
		logger.Warn("send stream error", zap.Error(sendErr))
		return
	}
	s.close(conn, websocket.CloseNormalClosure, string(code))
}

func (s *Server) send(conn *websocket.Conn, msg streamMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(timeouts.StreamWrite)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

func (s *Server) close(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text),
		time.Now().Add(timeouts.StreamWrite),
	)
}
