// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package shell

import (
	"context"
	"fmt"
	"strconv"

	"github.com/complex-gh/wollet"
	"github.com/complex-gh/wollet/internal/secret"
	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements/psetv2"
)

// Handler runs one command against the session.
type Handler func(ctx context.Context, s *Session, args []string) Outcome

const noWallet = "no wallet loaded: run `create`, `load` or `restore` first"

// Usage lines, also shown by help.
const (
	usageSend    = "send <receiver> <amount> [asset]"
	usageIssue   = "issue <receiver> <amount>"
	usageReissue = "reissue <receiver> <amount> <asset>"
	usageBurn    = "burn <amount> <asset>"
)

// issueTokens is how many reissuance tokens an issue mints.
const issueTokens = 1

var handlers = map[string]Handler{
	"create":  create,
	"load":    load,
	"restore": restore,
	"scan":    scan,
	"balance": balance,
	"address": address,
	"txs":     txs,
	"send":    send,
	"issue":   issue,
	"reissue": reissue,
	"burn":    burn,
	"help":    help,
}

var helpLines = []string{
	"create                               new wallet, saves the recovery phrase",
	"load                                 open the saved wallet",
	"restore                              save and open a wallet from a phrase",
	"scan                                 sync with the chain",
	"balance                              balance per asset",
	"address                              next receive address",
	"txs                                  transaction history",
	fmt.Sprintf("%-36s pay an address", usageSend),
	fmt.Sprintf("%-36s issue a new asset", usageIssue),
	fmt.Sprintf("%-36s mint more of an asset", usageReissue),
	fmt.Sprintf("%-36s destroy an amount", usageBurn),
	"help                                 this list",
	"exit                                 leave (also quit, q)",
}

// needNetwork reports a precondition when startup could not build the
// network context.
func needNetwork(s *Session) (Outcome, bool) {
	if s.env.NetworkErr != nil {
		return precondition("network unavailable: %v", s.env.NetworkErr), false
	}
	return Outcome{}, true
}

// needWallet reports a precondition when no wallet is open.
func needWallet(s *Session) (Outcome, bool) {
	if !s.Loaded() {
		return precondition(noWallet), false
	}
	return needNetwork(s)
}

func create(_ context.Context, s *Session, _ []string) Outcome {
	if s.env.Secrets.Exists() {
		return precondition("a wallet already exists in %s: use `load`", s.env.Secrets.Path())
	}
	if o, ok := needNetwork(s); !ok {
		return o
	}

	phrase, err := wollet.NewMnemonic(s.env.Options.WordCount)
	if err != nil {
		return failed("generate recovery phrase", err)
	}
	if err := s.env.Secrets.Save(phrase); err != nil {
		if errors.Is(err, secret.ErrExists) {
			return precondition("a wallet already exists in %s: use `load`", s.env.Secrets.Path())
		}
		return failed("save recovery phrase", err)
	}
	if err := s.open(phrase); err != nil {
		return failed("open wallet", err)
	}

	s.env.Out.Section("recovery phrase", phrase+" (write it down, it is stored unencrypted in "+s.env.Secrets.Path()+")")
	return describe(s)
}

func load(_ context.Context, s *Session, _ []string) Outcome {
	if !s.env.Secrets.Exists() {
		return precondition("no wallet in %s: run `create` or `restore`", s.env.Secrets.Path())
	}
	if o, ok := needNetwork(s); !ok {
		return o
	}

	phrase, err := s.env.Secrets.Load()
	if err != nil {
		return failed("read recovery phrase", err)
	}
	if err := s.open(phrase); err != nil {
		return failed("open wallet", err)
	}
	return describe(s)
}

func restore(_ context.Context, s *Session, _ []string) Outcome {
	if s.env.Secrets.Exists() {
		return precondition("a wallet already exists in %s: use `load`", s.env.Secrets.Path())
	}
	if o, ok := needNetwork(s); !ok {
		return o
	}
	if s.env.Options.ReadSecret == nil {
		return precondition("restore needs a terminal to read the recovery phrase")
	}

	input, err := s.env.Options.ReadSecret("recovery phrase: ")
	if err != nil {
		return failed("read recovery phrase", err)
	}
	phrase, err := wollet.ParseMnemonic(input)
	if err != nil {
		return invalid("restore, then type a valid recovery phrase", err)
	}
	if err := s.env.Secrets.Save(phrase); err != nil {
		if errors.Is(err, secret.ErrExists) {
			return precondition("a wallet already exists in %s: use `load`", s.env.Secrets.Path())
		}
		return failed("save recovery phrase", err)
	}
	if err := s.open(phrase); err != nil {
		return failed("open wallet", err)
	}
	return describe(s)
}

// describe prints the descriptor and next receive address of the open
// wallet.
func describe(s *Session) Outcome {
	addr, err := s.wallet.Address(nil)
	if err != nil {
		return failed("derive address", err)
	}
	s.env.Out.Section("descriptor", s.wallet.Descriptor().String())
	s.env.Out.Section("address", fmt.Sprintf("%s (index %d)", addr.Address, addr.Index))
	return done()
}

func scan(ctx context.Context, s *Session, _ []string) Outcome {
	if o, ok := needWallet(s); !ok {
		return o
	}
	changed, err := s.refresh(ctx)
	if err != nil {
		return failed("sync wallet", err)
	}
	if !changed {
		s.env.Out.Printf("no updates (tip %d)", s.wallet.Tip())
		return done()
	}
	s.env.Out.Printf("wallet updated (tip %d)", s.wallet.Tip())
	return done()
}

// softRefresh syncs the wallet and, on failure, prints the error so the
// caller can go on with what the wallet already knows.
func softRefresh(ctx context.Context, s *Session) {
	if _, err := s.refresh(ctx); err != nil {
		s.env.Out.Failure(fmt.Sprintf("sync wallet: %v (showing cached data)", err))
	}
}

func balance(ctx context.Context, s *Session, _ []string) Outcome {
	if o, ok := needWallet(s); !ok {
		return o
	}
	softRefresh(ctx, s)

	bal := s.wallet.Balance()
	policy := s.env.Network.PolicyAsset()
	lines := make([]string, 0, len(bal))
	for _, asset := range bal.Assets() {
		line := fmt.Sprintf("%d %s", bal[asset], asset)
		if asset == policy {
			line += " (policy asset)"
		}
		lines = append(lines, line)
	}
	s.env.Out.Section("balance", lines...)
	return done()
}

func address(_ context.Context, s *Session, _ []string) Outcome {
	if !s.Loaded() {
		return precondition(noWallet)
	}
	addr, err := s.wallet.Address(nil)
	if err != nil {
		return failed("derive address", err)
	}
	s.env.Out.Section("address", fmt.Sprintf("%s (index %d)", addr.Address, addr.Index))
	return done()
}

func txs(ctx context.Context, s *Session, _ []string) Outcome {
	if o, ok := needWallet(s); !ok {
		return o
	}
	softRefresh(ctx, s)

	list := s.wallet.Transactions()
	if len(list) == 0 {
		s.env.Out.Section("transactions", "none")
		return done()
	}
	var lines []string
	for _, tx := range list {
		height := "unconfirmed"
		if tx.Height > 0 {
			height = fmt.Sprintf("height %d", tx.Height)
		}
		lines = append(lines, fmt.Sprintf("%s %s (%s, fee %d)", tx.Txid, height, tx.Type, tx.Fee))
		for _, asset := range sortedDeltas(tx.Balance) {
			lines = append(lines, fmt.Sprintf("  %+d %s", tx.Balance[asset], asset))
		}
	}
	s.env.Out.Section("transactions", lines...)
	return done()
}

func sortedDeltas(m map[string]int64) []string {
	b := make(wollet.Balance, len(m))
	for asset := range m {
		b[asset] = 0
	}
	return b.Assets()
}

func parseAmount(arg string) (uint64, error) {
	n, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, errors.Errorf("amount %q is not a whole number of satoshi", arg)
	}
	if n == 0 {
		return 0, errors.New("amount must be greater than zero")
	}
	return n, nil
}

func send(ctx context.Context, s *Session, args []string) Outcome {
	if o, ok := needWallet(s); !ok {
		return o
	}
	if len(args) < 2 || len(args) > 3 {
		return invalid(usageSend, nil)
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return invalid(usageSend, err)
	}
	var asset string
	if len(args) == 3 {
		asset = args[2]
	}
	b := s.env.Network.TxBuilder().FeeRate(s.env.Options.FeeRate)
	if err := b.AddRecipient(args[0], amount, asset); err != nil {
		return invalid(usageSend, err)
	}

	if _, err := s.refresh(ctx); err != nil {
		return failed("sync wallet", err)
	}
	p, err := b.Finish(s.wallet)
	if err != nil {
		return failed("build transaction", err)
	}
	return broadcast(ctx, s, p)
}

func issue(ctx context.Context, s *Session, args []string) Outcome {
	if o, ok := needWallet(s); !ok {
		return o
	}
	if len(args) != 2 {
		return invalid(usageIssue, nil)
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return invalid(usageIssue, err)
	}
	b := s.env.Network.TxBuilder().FeeRate(s.env.Options.FeeRate)
	// The token goes to the wallet's own receive address.
	if err := b.IssueAsset(amount, args[0], issueTokens, ""); err != nil {
		return invalid(usageIssue, err)
	}

	if _, err := s.refresh(ctx); err != nil {
		return failed("sync wallet", err)
	}
	p, err := b.Finish(s.wallet)
	if err != nil {
		return failed("build issuance", err)
	}
	asset, err := wollet.IssuanceAsset(p)
	if err != nil {
		return failed("read issued asset", err)
	}
	s.env.Out.Section("asset", asset)
	return broadcast(ctx, s, p)
}

func reissue(ctx context.Context, s *Session, args []string) Outcome {
	if o, ok := needWallet(s); !ok {
		return o
	}
	if len(args) != 3 {
		return invalid(usageReissue, nil)
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return invalid(usageReissue, err)
	}
	b := s.env.Network.TxBuilder().FeeRate(s.env.Options.FeeRate)
	if err := b.ReissueAsset(args[2], amount, args[0]); err != nil {
		return invalid(usageReissue, err)
	}

	if _, err := s.refresh(ctx); err != nil {
		return failed("sync wallet", err)
	}
	p, err := b.Finish(s.wallet)
	if err != nil {
		return failed("build reissuance", err)
	}
	return broadcast(ctx, s, p)
}

func burn(ctx context.Context, s *Session, args []string) Outcome {
	if o, ok := needWallet(s); !ok {
		return o
	}
	if len(args) != 2 {
		return invalid(usageBurn, nil)
	}
	amount, err := parseAmount(args[0])
	if err != nil {
		return invalid(usageBurn, err)
	}
	b := s.env.Network.TxBuilder().FeeRate(s.env.Options.FeeRate)
	if err := b.AddBurn(amount, args[1]); err != nil {
		return invalid(usageBurn, err)
	}

	if _, err := s.refresh(ctx); err != nil {
		return failed("sync wallet", err)
	}
	p, err := b.Finish(s.wallet)
	if err != nil {
		return failed("build burn", err)
	}
	return broadcast(ctx, s, p)
}

// broadcast signs, finalizes and submits p, then prints the txid.
func broadcast(ctx context.Context, s *Session, p *psetv2.Pset) Outcome {
	signed, err := s.signer.Sign(p)
	if err != nil {
		return failed("sign transaction", err)
	}
	if signed == 0 {
		return failed("sign transaction", errors.New("no input belongs to this wallet"))
	}
	tx, err := s.wallet.Finalize(p)
	if err != nil {
		return failed("finalize transaction", err)
	}
	txid, err := s.env.Chain.Broadcast(ctx, tx)
	if err != nil {
		return failed("broadcast transaction", err)
	}
	s.env.Out.Section("txid", txid)
	return done()
}

func help(_ context.Context, s *Session, _ []string) Outcome {
	s.env.Out.Section("commands", helpLines...)
	return done()
}
