// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

// Package shell is the interactive command loop of wollet: it reads one line
// at a time, routes the first word to a handler and prints the outcome.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/complex-gh/wollet/internal/logger"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultPrompt is printed before each line is read on a terminal.
const DefaultPrompt = "> "

// Shell reads commands from in and runs them against one session.
type Shell struct {
	session  *Session
	in       io.Reader
	prompt   string
	handlers map[string]Handler
}

// New returns a shell over session reading from in. An empty prompt prints
// nothing between commands.
func New(session *Session, in io.Reader, prompt string) *Shell {
	return &Shell{
		session:  session,
		in:       in,
		prompt:   prompt,
		handlers: handlers,
	}
}

// Run reads and dispatches lines until exit, quit, q or end of input.
func (sh *Shell) Run(ctx context.Context) error {
	out := sh.session.env.Out
	scanner := bufio.NewScanner(sh.in)
	for {
		if sh.prompt != "" {
			out.Prompt(sh.prompt)
		}
		if !scanner.Scan() {
			if sh.prompt != "" {
				out.Prompt("\n")
			}
			break
		}
		if sh.Dispatch(ctx, scanner.Text()) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "read command")
	}
	return nil
}

// Dispatch runs one input line and reports whether the shell should stop.
func (sh *Shell) Dispatch(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	name := strings.ToLower(fields[0])
	switch name {
	case "exit", "quit", "q":
		return true
	}

	out := sh.session.env.Out
	h, ok := sh.handlers[name]
	if !ok {
		out.Notice(fmt.Sprintf("unknown command %q: type `help` for the list", fields[0]))
		return false
	}

	ctx = logger.ContextWithCommandID(ctx, "")
	log := logger.NewLoggerFromContext(ctx)
	log.Info("command started", zap.String("command", name), zap.Int("args", len(fields)-1))
	start := time.Now()

	o := run(ctx, h, sh.session, fields[1:])
	switch o.Kind {
	case Done:
	case Failed:
		out.Failure(o.String())
	default:
		out.Notice(o.String())
	}

	logFields := []zap.Field{
		zap.String("command", name),
		zap.String("outcome", o.Kind.String()),
		zap.Duration("took", time.Since(start)),
	}
	if o.Err != nil {
		logFields = append(logFields, zap.Error(o.Err))
	}
	log.Info("command finished", logFields...)
	return false
}

// run calls h and turns a panic into a Failed outcome.
func run(ctx context.Context, h Handler, s *Session, args []string) (o Outcome) {
	defer func() {
		if r := recover(); r != nil {
			o = failed("internal error", errors.Errorf("%v", r))
		}
	}()
	return h(ctx, s, args)
}
