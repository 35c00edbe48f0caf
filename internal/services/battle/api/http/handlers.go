package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	apperrors "github.com/louisbranch/autoresolve/internal/platform/errors"
	"github.com/louisbranch/autoresolve/internal/platform/i18n"
	"github.com/louisbranch/autoresolve/internal/platform/id"
	"github.com/louisbranch/autoresolve/internal/platform/requestctx"
	"github.com/louisbranch/autoresolve/internal/services/battle/archive"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/battlefield"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/engine"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/report"
	"github.com/louisbranch/autoresolve/internal/services/battle/scenario"
	"github.com/louisbranch/autoresolve/internal/services/battle/storage"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// resolveRequest carries either a structured scenario or scenario source
// text in one of the loader formats.
type resolveRequest struct {
	Scenario   *scenario.Scenario `json:"scenario,omitempty"`
	Format     string             `json:"format,omitempty"`
	Source     string             `json:"source,omitempty"`
	Seed       int64              `json:"seed,omitempty"`
	MaxRounds  int                `json:"max_rounds,omitempty"`
	LocalTeam  string             `json:"local_team,omitempty"`
	Withdrawal bool               `json:"withdrawal,omitempty"`
}

func (req resolveRequest) load() (*scenario.Scenario, error) {
	switch {
	case req.Scenario != nil && strings.TrimSpace(req.Source) != "":
		return nil, invalidRequest("send either scenario or source, not both")
	case req.Scenario != nil:
		if err := req.Scenario.Validate(); err != nil {
			return nil, err
		}
		return req.Scenario, nil
	case strings.TrimSpace(req.Source) != "":
		format := scenario.Format(strings.ToLower(strings.TrimSpace(req.Format)))
		if format == "" {
			return nil, invalidRequest("format is required with source")
		}
		sc, err := scenario.Load([]byte(req.Source), format, "request")
		if errors.Is(err, scenario.ErrUnsupportedFormat) {
			return nil, apperrors.Wrap(apperrors.CodeInvalidRequest, "unsupported format", err)
		}
		return sc, err
	default:
		return nil, invalidRequest("scenario or source is required")
	}
}

// loadScenario applies the server policy on top of req.load: Lua source
// needs AllowLua and the effective round cap must stay within roundLimit.
func (s *Server) loadScenario(req resolveRequest) (*scenario.Scenario, error) {
	if scenario.Format(strings.ToLower(strings.TrimSpace(req.Format))) == scenario.FormatLua && !s.allowLua {
		return nil, invalidRequest("lua scenarios are disabled on this server")
	}
	if req.MaxRounds < 0 {
		return nil, invalidRequest("max_rounds must not be negative")
	}
	sc, err := req.load()
	if err != nil {
		return nil, err
	}
	rounds := req.MaxRounds
	if rounds == 0 {
		rounds = sc.MaxRounds
	}
	if rounds == 0 {
		rounds = s.runner.MaxRounds()
	}
	if rounds > s.roundLimit {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidRequest,
			fmt.Sprintf("max_rounds %d exceeds the server limit of %d", rounds, s.roundLimit),
			map[string]string{"max_rounds": strconv.Itoa(rounds), "limit": strconv.Itoa(s.roundLimit)})
	}
	return sc, nil
}

func (req resolveRequest) archiveRequest() archive.Request {
	return archive.Request{
		Seed:       req.Seed,
		MaxRounds:  req.MaxRounds,
		LocalTeam:  strings.TrimSpace(req.LocalTeam),
		Withdrawal: req.Withdrawal,
	}
}

type battleView struct {
	ID           string    `json:"id"`
	Scenario     string    `json:"scenario"`
	Seed         int64     `json:"seed"`
	LocalTeam    string    `json:"local_team,omitempty"`
	Status       string    `json:"status"`
	Victor       string    `json:"victor,omitempty"`
	LocalVictory bool      `json:"local_victory"`
	Rounds       int       `json:"rounds"`
	Entries      int       `json:"entries"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newBattleView(b storage.Battle) battleView {
	return battleView{
		ID:           b.ID,
		Scenario:     b.Scenario,
		Seed:         b.Seed,
		LocalTeam:    b.LocalTeam,
		Status:       b.Status,
		Victor:       b.Victor,
		LocalVictory: b.LocalVictory,
		Rounds:       b.Rounds,
		Entries:      b.Entries,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

type resolveResponse struct {
	Outcome engine.Outcome `json:"outcome"`
	Summary string         `json:"summary"`
}

type battleResponse struct {
	Battle     battleView             `json:"battle"`
	Casualties []battlefield.Casualty `json:"casualties"`
}

type listResponse struct {
	Battles []battleView `json:"battles"`
}

type reportResponse struct {
	BattleID string         `json:"battle_id"`
	Entries  []report.Entry `json:"entries"`
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, apperrors.Wrap(apperrors.CodeInvalidRequest, "decode request", err))
		return
	}
	sc, err := s.loadScenario(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	outcome, err := s.runner.Run(r.Context(), sc, req.archiveRequest())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	summary, err := summarize(outcome, printerFor(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/battles/"+outcome.RunID)
	writeJSON(w, http.StatusCreated, resolveResponse{Outcome: outcome, Summary: summary})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			s.writeError(w, r, invalidRequest("limit must be a non-negative integer"))
			return
		}
		limit = value
	}
	battles, err := s.store.ListBattles(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]battleView, 0, len(battles))
	for _, b := range battles {
		views = append(views, newBattleView(b))
	}
	writeJSON(w, http.StatusOK, listResponse{Battles: views})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	battleID, err := battleIDFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	battle, err := s.store.GetBattle(r.Context(), battleID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	casualties, err := s.store.ListCasualties(r.Context(), battleID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, battleResponse{Battle: newBattleView(battle), Casualties: casualties})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	battleID, err := battleIDFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.store.ListEntries(r.Context(), battleID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "", "json":
		writeJSON(w, http.StatusOK, reportResponse{BattleID: battleID, Entries: entries})
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		text := report.NewText(w)
		for _, entry := range entries {
			if err := text.Write(entry); err != nil {
				s.logger.Warn("write report line", zap.String("battle_id", battleID), zap.Error(err))
				return
			}
		}
	default:
		s.writeError(w, r, invalidRequest("format must be json or text"))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()
	message := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", requestctx.RequestIDFromContext(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		if code == apperrors.CodeUnknown {
			message = "internal error"
		}
		writeJSONError(w, status, string(code), message)
		return
	}
	writeJSON(w, status, errorResponse{Error: errorBody{
		Code:    string(code),
		Message: message,
		Details: apperrors.MetadataOf(err),
	}})
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}

func invalidRequest(message string) error {
	return apperrors.New(apperrors.CodeInvalidRequest, message)
}

// printerFor picks the summary language from ?lang, then Accept-Language.
func printerFor(r *http.Request) *message.Printer {
	if tag, ok := i18n.ParseTag(r.URL.Query().Get("lang")); ok {
		return i18n.Printer(tag)
	}
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return i18n.Printer(i18n.DefaultTag())
	}
	return i18n.Printer(i18n.MatchTags(tags))
}

func summarize(outcome engine.Outcome, p *message.Printer) (string, error) {
	var b strings.Builder
	if err := report.WriteSummary(&b, p, outcome.Summary()); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// battleIDFrom rejects ids this server could never have issued without
// touching the store.
func battleIDFrom(r *http.Request) (string, error) {
	battleID := mux.Vars(r)["id"]
	if !id.Valid(battleID) {
		return "", storage.ErrNotFound
	}
	return battleID, nil
}
