package catalog

import (
	"strings"
	"testing"
	"testing/fstest"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func TestLoadEmbedded(t *testing.T) {
	c, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded catalogs: %v", err)
	}
	got := c.Locales()
	if len(got) != 2 || got[0] != BaseLocale || got[1] != "pt-BR" {
		t.Fatalf("locales = %v", got)
	}
	if len(c.Messages(BaseLocale)) == 0 {
		t.Fatal("expected base messages")
	}
}

func TestLoadFromFSErrors(t *testing.T) {
	base := "locale: \"en-US\"\nnamespace: \"summary\"\nmessages:\n  \"summary.a\": \"a\"\n  \"summary.b\": \"b\"\n"
	tests := []struct {
		name  string
		files fstest.MapFS
		want  string
	}{
		{
			name:  "empty",
			files: fstest.MapFS{},
			want:  "no catalog files",
		},
		{
			name: "key outside namespace",
			files: fstest.MapFS{
				"locales/en-US/summary.yaml": {Data: []byte("locale: \"en-US\"\nnamespace: \"summary\"\nmessages:\n  \"other.key\": \"x\"\n")},
			},
			want: "outside namespace",
		},
		{
			name: "locale mismatch",
			files: fstest.MapFS{
				"locales/en-US/summary.yaml": {Data: []byte("locale: \"pt-BR\"\nnamespace: \"summary\"\nmessages:\n  \"summary.a\": \"a\"\n")},
			},
			want: "does not match directory",
		},
		{
			name: "namespace mismatch",
			files: fstest.MapFS{
				"locales/en-US/summary.yaml": {Data: []byte("locale: \"en-US\"\nnamespace: \"report\"\nmessages:\n  \"report.a\": \"a\"\n")},
			},
			want: "does not match file name",
		},
		{
			name: "no base locale",
			files: fstest.MapFS{
				"locales/pt-BR/summary.yaml": {Data: []byte("locale: \"pt-BR\"\nnamespace: \"summary\"\nmessages:\n  \"summary.a\": \"a\"\n")},
			},
			want: "base locale",
		},
		{
			name: "incomplete translation",
			files: fstest.MapFS{
				"locales/en-US/summary.yaml": {Data: []byte(base)},
				"locales/pt-BR/summary.yaml": {Data: []byte("locale: \"pt-BR\"\nnamespace: \"summary\"\nmessages:\n  \"summary.a\": \"a\"\n")},
			},
			want: "missing \"summary.b\"",
		},
		{
			name: "malformed yaml",
			files: fstest.MapFS{
				"locales/en-US/summary.yaml": {Data: []byte("messages: [")},
			},
			want: "parse catalog",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFS(tt.files)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestMessageFallsBackToBaseLocale(t *testing.T) {
	value, ok := Default().Message("fr-FR", "summary.draw")
	if !ok || value == "" {
		t.Fatalf("fallback message = %q, %v", value, ok)
	}
	if _, ok := Default().Message("pt-BR", "summary.nope"); ok {
		t.Fatal("expected unknown key to miss")
	}
}

func TestRegisteredMessagesFormatPerLocale(t *testing.T) {
	_ = Default()
	tests := []struct {
		tag  string
		want string
	}{
		{tag: "pt-BR", want: "Sem decisão após 50 rodadas"},
		{tag: "pt", want: "Sem decisão após 50 rodadas"},
		{tag: "en-US", want: "No decision after 50 rounds"},
	}
	for _, tt := range tests {
		got := message.NewPrinter(language.MustParse(tt.tag)).Sprintf("summary.round_cap", 50)
		if got != tt.want {
			t.Fatalf("%s = %q, want %q", tt.tag, got, tt.want)
		}
	}
}
