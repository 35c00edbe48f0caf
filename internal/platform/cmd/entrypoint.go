// Package cmd holds the startup sequence shared by the autoresolve binaries:
// environment defaults, then flags, then tracing around the command body.
package cmd

import (
	"context"
	"errors"
	"flag"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/louisbranch/autoresolve/internal/platform/config"
	"github.com/louisbranch/autoresolve/internal/platform/otel"
)

// Service names, also used as the OpenTelemetry service.name.
const (
	ServiceAutoresolve  = "autoresolve"
	ServiceBattleServer = "battleserver"
)

const defaultFlushTimeout = 5 * time.Second

// Load fills a T from AUTORESOLVE_* variables, lets bind register flags whose
// defaults are those values, and parses args over them.
func Load[T any](fs *flag.FlagSet, args []string, bind func(*T, *flag.FlagSet)) (T, error) {
	var cfg T
	if fs == nil {
		return cfg, errors.New("flag set is required")
	}
	if err := config.ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	if bind != nil {
		bind(&cfg, fs)
	}
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Service describes one running binary.
type Service struct {
	Name   string
	OTel   otel.Config
	Logger *zap.Logger
	// FlushTimeout bounds the span flush after body returns.
	FlushTimeout time.Duration
}

// Run starts tracing for svc, executes body and flushes pending spans once
// body returns. The body's error is returned as is.
func Run(ctx context.Context, svc Service, body func(context.Context) error) error {
	name := strings.TrimSpace(svc.Name)
	if name == "" {
		return errors.New("service name is required")
	}
	if body == nil {
		return errors.New("service body is required")
	}
	logger := svc.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	shutdown, err := otel.Start(ctx, name, svc.OTel)
	if err != nil {
		return err
	}
	defer func() {
		timeout := svc.FlushTimeout
		if timeout <= 0 {
			timeout = defaultFlushTimeout
		}
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Warn("flush traces", zap.String("service", name), zap.Error(err))
		}
	}()
	return body(ctx)
}
