// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package shell

import (
	"context"

	"github.com/complex-gh/wollet"
	"github.com/complex-gh/wollet/internal/secret"
	"github.com/complex-gh/wollet/internal/ui"
	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements/transaction"
)

// Chain is the chain-query capability the handlers use.
type Chain interface {
	FullScanToIndex(ctx context.Context, w *wollet.Wallet, index uint32) (*wollet.Update, error)
	Broadcast(ctx context.Context, tx *transaction.Transaction) (string, error)
}

// Options tune handler behavior.
type Options struct {
	// WordCount is the length of phrases made by create.
	WordCount int
	// FeeRate is in sat/kvB.
	FeeRate uint64
	// GapLimit is the wallet's script look-ahead.
	GapLimit uint32
	// ReadSecret reads a phrase without echo for restore. Nil disables
	// restore.
	ReadSecret func(prompt string) (string, error)
}

// Env is everything built once at startup.
type Env struct {
	// Network and Chain are nil when NetworkErr is set.
	Network    *wollet.Network
	Chain      Chain
	NetworkErr error

	Secrets *secret.Store
	Out     *ui.Printer
	Options Options
}

// Session is the state every handler receives: the startup environment and
// the wallet opened by create, load or restore.
type Session struct {
	env    Env
	signer *wollet.Signer
	wallet *wollet.Wallet
}

// NewSession returns a session with no wallet open.
func NewSession(env Env) *Session {
	if env.Options.WordCount == 0 {
		env.Options.WordCount = wollet.DefaultWordCount
	}
	if env.Options.FeeRate == 0 {
		env.Options.FeeRate = wollet.DefaultFeeRate
	}
	if env.Options.GapLimit == 0 {
		env.Options.GapLimit = wollet.DefaultGapLimit
	}
	if env.Network == nil && env.NetworkErr == nil {
		env.NetworkErr = errors.New("no network configured")
	}
	return &Session{env: env}
}

// Env returns the startup environment.
func (s *Session) Env() Env { return s.env }

// Loaded reports whether a wallet is open. Signer and wallet are always set
// together.
func (s *Session) Loaded() bool { return s.signer != nil && s.wallet != nil }

// Wallet returns the open wallet or nil.
func (s *Session) Wallet() *wollet.Wallet { return s.wallet }

// Signer returns the open signer or nil.
func (s *Session) Signer() *wollet.Signer { return s.signer }

// open derives signer, descriptor and wallet from phrase and installs them.
// The session is unchanged on error.
func (s *Session) open(phrase string) error {
	signer, err := wollet.NewSigner(phrase, s.env.Network)
	if err != nil {
		return err
	}
	desc, err := signer.WpkhSlip77Descriptor()
	if err != nil {
		return err
	}
	w, err := wollet.NewWallet(s.env.Network, desc)
	if err != nil {
		return err
	}
	w.SetGapLimit(s.env.Options.GapLimit)

	s.signer, s.wallet = signer, w
	return nil
}

// refresh scans from index zero and applies the update, if any. It reports
// whether the wallet changed.
func (s *Session) refresh(ctx context.Context) (bool, error) {
	u, err := s.env.Chain.FullScanToIndex(ctx, s.wallet, 0)
	if err != nil {
		return false, errors.Wrap(err, "scan")
	}
	if u == nil {
		return false, nil
	}
	if err := s.wallet.ApplyUpdate(u); err != nil {
		return false, errors.Wrap(err, "apply update")
	}
	return true, nil
}
