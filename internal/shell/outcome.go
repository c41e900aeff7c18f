// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package shell

import (
	"fmt"
)

// Kind classifies how a command ended.
type Kind int

const (
	// Done means the command ran to completion.
	Done Kind = iota
	// Precondition means the session was not ready (no wallet, wallet
	// already exists, network unavailable). Nothing was called.
	Precondition
	// Invalid means the arguments could not be used.
	Invalid
	// Failed means a wallet, file or network operation returned an error.
	Failed
)

func (k Kind) String() string {
	switch k {
	case Done:
		return "done"
	case Precondition:
		return "precondition"
	case Invalid:
		return "invalid"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is what a handler returns to the dispatcher instead of an error.
type Outcome struct {
	Kind    Kind
	Message string
	Err     error
}

func (o Outcome) String() string {
	switch {
	case o.Err != nil && o.Message != "":
		return o.Message + ": " + o.Err.Error()
	case o.Err != nil:
		return o.Err.Error()
	default:
		return o.Message
	}
}

func done() Outcome { return Outcome{Kind: Done} }

func precondition(format string, args ...any) Outcome {
	return Outcome{Kind: Precondition, Message: fmt.Sprintf(format, args...)}
}

func invalid(usage string, err error) Outcome {
	return Outcome{Kind: Invalid, Message: "usage: " + usage, Err: err}
}

func failed(what string, err error) Outcome {
	return Outcome{Kind: Failed, Message: what, Err: err}
}
