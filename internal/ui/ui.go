// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

// Package ui renders command results for the interactive shell. On a
// terminal, notices and failures are drawn as colored blocks; otherwise
// everything is plain text so output can be piped and compared.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-tty"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

const maxWidth = 72

var (
	baseStyle  = lipgloss.NewStyle().Margin(0, 0, 1, 2) //nolint:mnd
	red        = lipgloss.Color(completeColor("#FF4444", "196", "9"))
	yellow     = lipgloss.Color(completeColor("#E8C547", "220", "3"))
	errorStyle = baseStyle.
			Foreground(red).
			Background(lipgloss.AdaptiveColor{Light: completeColor("#FFEBEB", "255", "7"), Dark: completeColor("#2B1A1A", "235", "8")}).
			Padding(1, 2) //nolint:mnd
	noticeStyle = baseStyle.
			Foreground(yellow).
			Padding(0, 2) //nolint:mnd
	titleStyle = lipgloss.NewStyle().Bold(true)
)

// Printer writes results to one output stream.
type Printer struct {
	w      io.Writer
	styled bool
}

// New returns a Printer writing to w. Styling is only applied when styled is
// set.
func New(w io.Writer, styled bool) *Printer {
	return &Printer{w: w, styled: styled}
}

// Stdout returns a Printer for os.Stdout, styled when it is a terminal.
func Stdout() *Printer {
	return New(os.Stdout, isatty.IsTerminal(os.Stdout.Fd()))
}

// Writer returns the underlying stream.
func (p *Printer) Writer() io.Writer { return p.w }

// Section prints a bracketed title followed by lines:
//
//	[title]
//
//	line
//	line
func (p *Printer) Section(title string, lines ...string) {
	header := "[" + title + "]"
	if p.styled {
		header = titleStyle.Render(header)
	}
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	for _, l := range lines {
		b.WriteString(l)
		b.WriteRune('\n')
	}
	b.WriteRune('\n')
	_, _ = io.WriteString(p.w, b.String())
}

// Printf prints a formatted line.
func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format, args...)
	if !strings.HasSuffix(format, "\n") {
		_, _ = io.WriteString(p.w, "\n")
	}
}

// Notice prints guidance that is not an error, such as a missing wallet.
func (p *Printer) Notice(msg string) {
	if p.styled {
		renderBlock(p.w, noticeStyle, getWidth(maxWidth), msg)
		return
	}
	_, _ = fmt.Fprintln(p.w, msg)
}

// Failure prints an error returned by a command.
func (p *Printer) Failure(msg string) {
	if p.styled {
		var b strings.Builder
		b.WriteRune('\n')
		renderBlock(&b, errorStyle, getWidth(maxWidth), msg)
		_, _ = io.WriteString(p.w, b.String())
		return
	}
	_, _ = fmt.Fprintf(p.w, "error: %s\n", msg)
}

// Prompt writes s without a trailing newline.
func (p *Printer) Prompt(s string) {
	_, _ = io.WriteString(p.w, s)
}

func getWidth(maxw int) int {
	w, _, err := term.GetSize(int(os.Stdout.Fd())) //nolint: gosec
	if err != nil || w > maxw {
		return maxWidth
	}
	return w
}

func renderBlock(w io.Writer, s lipgloss.Style, width int, str string) {
	_, _ = io.WriteString(w, s.Width(width).Render(str))
	_, _ = io.WriteString(w, "\n")
}

func completeColor(truecolor, ansi256, ansi string) string {
	//nolint: exhaustive
	switch lipgloss.ColorProfile() {
	case termenv.TrueColor:
		return truecolor
	case termenv.ANSI256:
		return ansi256
	}
	return ansi
}

// ReadSecret prints msg to stderr and reads a line from the controlling
// terminal without echo.
func ReadSecret(msg string) (string, error) {
	_, _ = fmt.Fprint(os.Stderr, msg)
	t, err := tty.Open()
	if err != nil {
		return "", errors.Wrap(err, "could not open tty")
	}
	defer t.Close()                                       //nolint: errcheck
	secret, err := term.ReadPassword(int(t.Input().Fd())) //nolint: gosec
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.Wrap(err, "could not read from tty")
	}
	return string(secret), nil
}
