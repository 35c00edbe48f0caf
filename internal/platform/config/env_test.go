package config

import (
	"strings"
	"testing"
	"time"
)

type serverEnv struct {
	Addr      string        `env:"CONFIG_TEST_ADDR" envDefault:":8088"`
	MaxRounds int           `env:"CONFIG_TEST_MAX_ROUNDS" envDefault:"50"`
	Drain     time.Duration `env:"CONFIG_TEST_DRAIN" envDefault:"2s"`
	Origins   []string      `env:"CONFIG_TEST_ORIGINS" envSeparator:","`
}

func TestParseEnv(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want serverEnv
	}{
		{
			name: "defaults",
			want: serverEnv{Addr: ":8088", MaxRounds: 50, Drain: 2 * time.Second},
		},
		{
			name: "prefixed values",
			env: map[string]string{
				"AUTORESOLVE_CONFIG_TEST_MAX_ROUNDS": "12",
				"AUTORESOLVE_CONFIG_TEST_ORIGINS":    "https://a.example,https://b.example",
			},
			want: serverEnv{Addr: ":8088", MaxRounds: 12, Drain: 2 * time.Second, Origins: []string{"https://a.example", "https://b.example"}},
		},
		{
			name: "unprefixed ignored",
			env:  map[string]string{"CONFIG_TEST_ADDR": ":9999"},
			want: serverEnv{Addr: ":8088", MaxRounds: 50, Drain: 2 * time.Second},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			var got serverEnv
			if err := ParseEnv(&got); err != nil {
				t.Fatalf("parse env: %v", err)
			}
			if got.Addr != tc.want.Addr || got.MaxRounds != tc.want.MaxRounds || got.Drain != tc.want.Drain {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
			if strings.Join(got.Origins, " ") != strings.Join(tc.want.Origins, " ") {
				t.Fatalf("origins = %v, want %v", got.Origins, tc.want.Origins)
			}
		})
	}
}

func TestParseEnvErrors(t *testing.T) {
	if err := ParseEnv(nil); err == nil {
		t.Fatal("expected error for nil target")
	}

	t.Setenv("AUTORESOLVE_CONFIG_TEST_DRAIN", "soon")
	var cfg serverEnv
	err := ParseEnv(&cfg)
	if err == nil || !strings.HasPrefix(err.Error(), "parse env:") {
		t.Fatalf("expected a parse env error, got %v", err)
	}
}
