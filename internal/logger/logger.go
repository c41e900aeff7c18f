// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

// Package logger carries a zap logger in a context.Context. Every command
// dispatched by the shell gets its own command id, which is attached to the
// logger so one command's log lines can be grepped together.
package logger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type key int

const (
	// KeyCommandID is the command id in the Context.
	KeyCommandID key = 0

	// KeyLogger is the Logger in the Context.
	KeyLogger key = 1
)

const fieldCommandID = "command_id"

// New builds a JSON logger appending to path at the given level. An empty
// path discards everything.
func New(path, level string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}

	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrapf(err, "open log %s", path)
	}
	return l, nil
}

// ContextWithLogger adds the Logger to the Context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, KeyLogger, logger)
}

// NewLoggerFromContext returns the Logger in the Context, or a no-op Logger
// if none was set.
func NewLoggerFromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(KeyLogger).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}

// ContextWithCommandID returns a Context carrying the command id and a Logger
// with the command_id field set. An empty id generates one.
func ContextWithCommandID(ctx context.Context, id string) context.Context {
	if id == "" {
		uid, _ := uuid.NewRandom()
		id = uid.String()
	}

	ctx = context.WithValue(ctx, KeyCommandID, id)
	l := NewLoggerFromContext(ctx).With(zap.String(fieldCommandID, id))
	return ContextWithLogger(ctx, l)
}

// CommandIDFromContext returns the command id from the Context.
//
// If the value was not set, "unknown/<uuid>" is returned so the gap is
// visible in the logs.
func CommandIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(KeyCommandID).(string); ok {
		return v
	}
	id, _ := uuid.NewRandom()
	return fmt.Sprintf("unknown/%s", id.String())
}
