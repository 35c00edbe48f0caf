package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorText(t *testing.T) {
	cause := stderrors.New("unexpected EOF")
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"message only", New(CodeScenarioInvalid, "scenario has no teams"), "scenario has no teams"},
		{"cause only", Wrap(CodeScenarioInvalid, "", cause), "unexpected EOF"},
		{"message and cause", Wrap(CodeScenarioInvalid, "parse ridge.yaml", cause), "parse ridge.yaml: unexpected EOF"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.err.Error(); got != tc.want {
				t.Fatalf("Error() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIsComparesCodes(t *testing.T) {
	err := fmt.Errorf("round 3: %w", Wrap(CodeBattleFatal, "victory failed", stderrors.New("boom")))
	if !stderrors.Is(err, New(CodeBattleFatal, "")) {
		t.Fatal("expected a match on code")
	}
	if stderrors.Is(err, New(CodeBattleConfiguration, "")) {
		t.Fatal("different codes must not match")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(fmt.Errorf("remove: %w", New(CodeEntityNotFound, "ghost"))); got != CodeEntityNotFound {
		t.Fatalf("wrapped code = %s", got)
	}
	if got := CodeOf(fmt.Errorf("%w: %w", stderrors.New("plain"), New(CodeVictorAlreadySet, "twice"))); got != CodeVictorAlreadySet {
		t.Fatalf("joined code = %s", got)
	}
	if got := CodeOf(stderrors.New("plain")); got != CodeUnknown {
		t.Fatalf("uncoded = %s", got)
	}
	if got := CodeOf(nil); got != CodeUnknown {
		t.Fatalf("nil = %s", got)
	}
}

func TestMetadataOf(t *testing.T) {
	inner := WithMetadata(CodeDiceInvalidExpr, "bad dice", map[string]string{"expr": "2q6", "field": "inner"})
	outer := WrapWithMetadata(CodeScenarioInvalid, "weapon", map[string]string{"field": "teams[0].entities[1].weapons[0].damage"}, inner)

	got := MetadataOf(fmt.Errorf("load: %w", outer))
	if got["expr"] != "2q6" {
		t.Fatalf("expr = %q", got["expr"])
	}
	if got["field"] != "teams[0].entities[1].weapons[0].damage" {
		t.Fatalf("outer metadata should win, got %q", got["field"])
	}
	if MetadataOf(stderrors.New("plain")) != nil {
		t.Fatal("expected nil metadata for uncoded errors")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := map[Code]int{
		CodeInvalidRequest:      http.StatusBadRequest,
		CodeScenarioInvalid:     http.StatusBadRequest,
		CodeBattleConfiguration: http.StatusBadRequest,
		CodeDiceInvalidExpr:     http.StatusBadRequest,
		CodeEntityDuplicate:     http.StatusConflict,
		CodeVictorAlreadySet:    http.StatusConflict,
		CodeNotFound:            http.StatusNotFound,
		CodeEntityNotFound:      http.StatusNotFound,
		CodeBattleFatal:         http.StatusInternalServerError,
		CodeUnknown:             http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := New(code, "x").HTTPStatus(); got != want {
			t.Errorf("%s status = %d, want %d", code, got, want)
		}
	}
	var missing *Error
	if got := missing.HTTPStatus(); got != http.StatusInternalServerError {
		t.Fatalf("nil error status = %d", got)
	}
}
