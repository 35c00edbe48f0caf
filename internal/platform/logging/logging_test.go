package logging

import "testing"

func TestNewBuildsLogger(t *testing.T) {
	for _, encoding := range []string{"console", "json", ""} {
		logger, err := New(Config{Level: "debug", Encoding: encoding})
		if err != nil {
			t.Fatalf("new logger (%q): %v", encoding, err)
		}
		if !logger.Core().Enabled(-1) {
			t.Fatalf("expected debug level enabled for %q", encoding)
		}
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Fatal("expected level error")
	}
	if _, err := New(Config{Level: "info", Encoding: "xml"}); err == nil {
		t.Fatal("expected encoding error")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("expected no-op logger")
	}
}
