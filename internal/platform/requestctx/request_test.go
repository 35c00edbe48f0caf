package requestctx

import (
	"context"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("request id = %q, want req-1", got)
	}
}

func TestRequestIDMissing(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("request id = %q, want empty", got)
	}
	if got := RequestIDFromContext(nil); got != "" {
		t.Fatalf("request id = %q, want empty", got)
	}
}

func TestWithRequestIDNilContext(t *testing.T) {
	ctx := WithRequestID(nil, "req-2")
	if got := RequestIDFromContext(ctx); got != "req-2" {
		t.Fatalf("request id = %q, want req-2", got)
	}
}
