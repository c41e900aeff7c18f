// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package shell

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/complex-gh/wollet"
	"github.com/complex-gh/wollet/internal/secret"
	"github.com/complex-gh/wollet/internal/ui"
	"github.com/matryer/is"
	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements/transaction"
)

const (
	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	otherAsset   = "5ac9f65c0efcc4775e0baec4ec03abdde22473cd3cf33c0419ca290e0751b225"
)

// fakeChain counts calls and serves whatever update returns, plus every
// transaction it was asked to broadcast, as unconfirmed.
type fakeChain struct {
	scans      int
	broadcasts int
	err        error
	update     func(w *wollet.Wallet) *wollet.Update
	mempool    []*transaction.Transaction
}

func (c *fakeChain) FullScanToIndex(_ context.Context, w *wollet.Wallet, _ uint32) (*wollet.Update, error) {
	c.scans++
	if c.err != nil {
		return nil, c.err
	}
	var u *wollet.Update
	if c.update != nil {
		u = c.update(w)
	}
	for _, tx := range c.mempool {
		id := tx.TxHash().String()
		if w.HasTransaction(id) {
			continue
		}
		if u == nil {
			u = &wollet.Update{Tip: w.Tip()}
		}
		if u.Transactions == nil {
			u.Transactions = make(map[string]*transaction.Transaction)
		}
		if u.Heights == nil {
			u.Heights = make(map[string]uint32)
		}
		u.Transactions[id] = tx
		u.Heights[id] = 0
	}
	return u, nil
}

func (c *fakeChain) Broadcast(_ context.Context, tx *transaction.Transaction) (string, error) {
	c.broadcasts++
	c.mempool = append(c.mempool, tx)
	return tx.TxHash().String(), nil
}

type testEnv struct {
	session *Session
	chain   *fakeChain
	out     *bytes.Buffer
	dir     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvIn(t, t.TempDir())
}

func newTestEnvIn(t *testing.T, dir string) *testEnv {
	t.Helper()
	is := is.New(t)

	net, err := wollet.Regtest("")
	is.NoErr(err)

	var out bytes.Buffer
	chain := &fakeChain{}
	s := NewSession(Env{
		Network: net,
		Chain:   chain,
		Secrets: secret.New(dir),
		Out:     ui.New(&out, false),
		Options: Options{GapLimit: 5},
	})
	return &testEnv{session: s, chain: chain, out: &out, dir: dir}
}

func (e *testEnv) run(name string, args ...string) Outcome {
	return run(context.Background(), handlers[name], e.session, args)
}

// fundingUpdate pays value of the policy asset to the wallet's first
// receive script, once.
func fundingUpdate(t *testing.T, value uint64) func(w *wollet.Wallet) *wollet.Update {
	return func(w *wollet.Wallet) *wollet.Update {
		is := is.New(t)

		script, err := w.ScriptPubKey(wollet.External, 0)
		is.NoErr(err)
		h, err := chainhash.NewHashFromStr(w.Network().PolicyAsset())
		is.NoErr(err)
		asset := append([]byte{0x01}, h[:]...)
		amount := make([]byte, 9)
		amount[0] = 0x01
		binary.BigEndian.PutUint64(amount[1:], value)

		prev := make([]byte, 32)
		prev[0] = 0xaa
		tx := transaction.NewTx(2)
		tx.AddInput(transaction.NewTxInput(prev, 0))
		tx.AddOutput(transaction.NewTxOutput(asset, amount, script))
		id := tx.TxHash().String()
		if w.HasTransaction(id) {
			return nil
		}
		return &wollet.Update{
			Transactions: map[string]*transaction.Transaction{id: tx},
			Heights:      map[string]uint32{id: 101},
			Tip:          101,
			NextIndex:    [2]uint32{1, 0},
		}
	}
}

func TestShell_UnknownCommand(t *testing.T) {
	is := is.New(t)

	e := newTestEnv(t)
	sh := New(e.session, strings.NewReader(""), "")
	stop := sh.Dispatch(context.Background(), "frobnicate now")
	is.True(!stop)
	is.True(strings.Contains(e.out.String(), `unknown command "frobnicate"`))
	is.True(strings.Contains(e.out.String(), "help"))
	is.True(!e.session.Loaded())
	is.Equal(e.chain.scans, 0)
}

func TestShell_EmptyLine(t *testing.T) {
	is := is.New(t)

	e := newTestEnv(t)
	sh := New(e.session, strings.NewReader(""), "")
	is.True(!sh.Dispatch(context.Background(), "   "))
	is.Equal(e.out.Len(), 0)
}

func TestShell_CaseInsensitive(t *testing.T) {
	is := is.New(t)

	e := newTestEnv(t)
	sh := New(e.session, strings.NewReader(""), "")
	is.True(!sh.Dispatch(context.Background(), "HELP"))
	is.True(strings.Contains(e.out.String(), "[commands]"))
	is.True(sh.Dispatch(context.Background(), "Quit"))
}

func TestCreate_ThenLoad(t *testing.T) {
	is := is.New(t)

	dir := t.TempDir()
	first := newTestEnvIn(t, dir)
	is.Equal(first.run("create").Kind, Done)
	is.True(first.session.Loaded())
	created, err := first.session.Wallet().Address(nil)
	is.NoErr(err)

	phrase, err := secret.New(dir).Load()
	is.NoErr(err)
	is.True(strings.Contains(first.out.String(), phrase))
	is.Equal(len(strings.Fields(phrase)), wollet.DefaultWordCount)

	second := newTestEnvIn(t, dir)
	is.Equal(second.run("load").Kind, Done)
	loaded, err := second.session.Wallet().Address(nil)
	is.NoErr(err)
	is.Equal(loaded.Address, created.Address)
	is.Equal(second.session.Wallet().Descriptor().String(), first.session.Wallet().Descriptor().String())
}

func TestCreate_Twice(t *testing.T) {
	is := is.New(t)

	e := newTestEnv(t)
	is.Equal(e.run("create").Kind, Done)
	w := e.session.Wallet()
	path := e.session.Env().Secrets.Path()
	before, err := os.ReadFile(path)
	is.NoErr(err)

	o := e.run("create")
	is.Equal(o.Kind, Precondition)
	is.True(strings.Contains(o.Message, "already exists"))

	after, err := os.ReadFile(path)
	is.NoErr(err)
	is.Equal(after, before)
	is.True(e.session.Wallet() == w)
}

func TestLoad_NoWallet(t *testing.T) {
	is := is.New(t)

	e := newTestEnv(t)
	o := e.run("load")
	is.Equal(o.Kind, Precondition)
	is.True(strings.Contains(o.Message, "create"))
	is.True(!e.session.Loaded())
}

func TestRestore(t *testing.T) {
	is := is.New(t)

	e := newTestEnv(t)
	e.session.env.Options.ReadSecret = func(string) (string, error) {
		return "  " + strings.ReplaceAll(testMnemonic, " ", "   ") + "\n", nil
	}
	is.Equal(e.run("restore").Kind, Done)
	is.True(e.session.Loaded())
	is.Equal(e.session.Signer().Fingerprint(), "73c5da0a")
	is.True(strings.Contains(e.out.String(), "[73c5da0a/84h/1h/0h]"))

	saved, err := e.session.Env().Secrets.Load()
	is.NoErr(err)
	is.Equal(saved, testMnemonic)

	is.Equal(e.run("restore").Kind, Precondition)
}

func TestRestore_InvalidPhrase(t *testing.T) {
	is := is.New(t)

	e := newTestEnv(t)
	e.session.env.Options.ReadSecret = func(string) (string, error) {
		return "abandon abandon abandon", nil
	}
	is.Equal(e.run("restore").Kind, Invalid)
	is.True(!e.session.Loaded())
	is.True(!e.session.Env().Secrets.Exists())
}

func TestRestore_NoTerminal(t *testing.T) {
	is := is.New(t)

	e := newTestEnv(t)
	is.Equal(e.run("restore").Kind, Precondition)
}

func TestHandlers_NoSession(t *testing.T) {
	is := is.New(t)

	e := newTestEnv(t)
	cases := [][]string{
		{"scan"},
		{"balance"},
		{"address"},
		{"txs"},
		{"send", "el1qq", "1000"},
		{"issue", "el1qq", "1000"},
		{"reissue", "el1qq", "1000", otherAsset},
		{"burn", "1000", otherAsset},
	}
	for _, c := range cases {
		o := e.run(c[0], c[1:]...)
		is.Equal(o.Kind, Precondition)
		is.Equal(o.Message, noWallet)
	}
	is.Equal(e.chain.scans, 0)
	is.Equal(e.chain.broadcasts, 0)
}

func TestHandlers_NetworkUnavailable(t *testing.T) {
	is := is.New(t)

	var out bytes.Buffer
	dir := t.TempDir()
	s := NewSession(Env{
		NetworkErr: errors.New("connection refused"),
		Secrets:    secret.New(dir),
		Out:        ui.New(&out, false),
	})
	o := run(context.Background(), handlers["create"], s, nil)
	is.Equal(o.Kind, Precondition)
	is.True(strings.Contains(o.Message, "network unavailable: connection refused"))
	is.True(!s.Env().Secrets.Exists())
}

func TestTxHandlers_OneScanEach(t *testing.T) {
	is := is.New(t)

	e := newTestEnv(t)
	is.Equal(e.run("create").Kind, Done)
	addr, err := e.session.Wallet().Address(nil)
	is.NoErr(err)

	cases := [][]string{
		{"send", addr.Address, "1000"},
		{"issue", addr.Address, "1000"},
		{"reissue", addr.Address, "1000", otherAsset},
		{"burn", "1000", wollet.DefaultPolicyAsset},
	}
	for i, c := range cases {
		o := e.run(c[0], c[1:]...)
		is.Equal(o.Kind, Failed)
		is.Equal(e.chain.scans, i+1)
	}
	is.Equal(e.chain.broadcasts, 0)
}

func TestSend_InsufficientFunds(t *testing.T) {
	is := is.New(t)

	e := newTestEnv(t)
	is.Equal(e.run("create").Kind, Done)
	addr, err := e.session.Wallet().Address(nil)
	is.NoErr(err)

	o := e.run("send", addr.Address, "1000")
	is.Equal(o.Kind, Failed)
	is.True(errors.Is(o.Err, wollet.ErrInsufficientFunds))
}

func TestSend_RefreshFailureAborts(t *testing.T) {
	is := is.New(t)

	e := newTestEnv(t)
	is.Equal(e.run("create").Kind, Done)
	addr, err := e.session.Wallet().Address(nil)
	is.NoErr(err)

	e.chain.err = errors.New("timeout")
	o := e.run("send", addr.Address, "1000")
	is.Equal(o.Kind, Failed)
	is.True(strings.Contains(o.String(), "timeout"))
	is.Equal(e.chain.broadcasts, 0)
}

func TestTxHandlers_InvalidArgs(t *testing.T) {
	is := is.New(t)

	e := newTestEnv(t)
	is.Equal(e.run("create").Kind, Done)
	addr, err := e.session.Wallet().Address(nil)
	is.NoErr(err)

	cases := [][]string{
		{"send"},
		{"send", addr.Address},
		{"send", addr.Address, "ten"},
		{"send", addr.Address, "0"},
		{"send", "notanaddress", "1000"},
		{"send", addr.Address, "1000", "nothex"},
		{"issue", addr.Address},
		{"reissue", addr.Address, "1000"},
		{"burn", "1000"},
		{"burn", "-5", otherAsset},
	}
	for _, c := range cases {
		o := e.run(c[0], c[1:]...)
		is.Equal(o.Kind, Invalid)
		is.True(strings.HasPrefix(o.Message, "usage: "+c[0]))
	}
	is.Equal(e.chain.scans, 0)
}

func TestScan(t *testing.T) {
	is := is.New(t)

	e := newTestEnv(t)
	is.Equal(e.run("create").Kind, Done)
	e.chain.update = fundingUpdate(t, 100000)

	is.Equal(e.run("scan").Kind, Done)
	is.True(strings.Contains(e.out.String(), "wallet updated (tip 101)"))

	e.out.Reset()
	is.Equal(e.run("scan").Kind, Done)
	is.True(strings.Contains(e.out.String(), "no updates"))
	is.Equal(e.chain.scans, 2)
}

func TestBalanceAndTxs(t *testing.T) {
	is := is.New(t)

	e := newTestEnv(t)
	is.Equal(e.run("create").Kind, Done)
	e.chain.update = fundingUpdate(t, 100000)

	e.out.Reset()
	is.Equal(e.run("balance").Kind, Done)
	is.True(strings.Contains(e.out.String(), "100000 "+wollet.DefaultPolicyAsset+" (policy asset)"))

	e.out.Reset()
	is.Equal(e.run("txs").Kind, Done)
	list := e.session.Wallet().Transactions()
	is.Equal(len(list), 1)
	is.True(strings.Contains(e.out.String(), list[0].Txid+" height 101 (incoming, fee 0)"))
	is.True(strings.Contains(e.out.String(), "+100000 "+wollet.DefaultPolicyAsset))
	is.Equal(e.chain.scans, 2)

	// the first address is used now
	e.out.Reset()
	is.Equal(e.run("address").Kind, Done)
	is.True(strings.Contains(e.out.String(), "(index 1)"))
	is.Equal(e.chain.scans, 2)
}

func TestBalance_ScanFailureShowsCache(t *testing.T) {
	is := is.New(t)

	e := newTestEnv(t)
	is.Equal(e.run("create").Kind, Done)
	e.chain.err = errors.New("connection reset")

	e.out.Reset()
	is.Equal(e.run("balance").Kind, Done)
	is.True(strings.Contains(e.out.String(), "error: sync wallet"))
	is.True(strings.Contains(e.out.String(), "connection reset"))
	is.True(strings.Contains(e.out.String(), "0 "+wollet.DefaultPolicyAsset))
}

func TestRun_CreateAddressExit(t *testing.T) {
	is := is.New(t)

	e := newTestEnv(t)
	sh := New(e.session, strings.NewReader("create\naddress\nexit\nhelp\n"), "")
	is.NoErr(sh.Run(context.Background()))

	out := e.out.String()
	is.True(strings.Contains(out, "[recovery phrase]"))
	is.True(strings.Contains(out, "[address]\n\nel1"))
	is.True(!strings.Contains(out, "[commands]"))
	is.True(strings.HasSuffix(out, "(index 0)\n\n"))
}

func TestRun_EndOfInput(t *testing.T) {
	is := is.New(t)

	e := newTestEnv(t)
	sh := New(e.session, strings.NewReader("help"), DefaultPrompt)
	is.NoErr(sh.Run(context.Background()))
	is.True(strings.HasPrefix(e.out.String(), DefaultPrompt+"[commands]"))
	is.True(strings.HasSuffix(e.out.String(), DefaultPrompt+"\n"))
}

func TestRun_RecoversPanic(t *testing.T) {
	is := is.New(t)

	e := newTestEnv(t)
	o := run(context.Background(), func(context.Context, *Session, []string) Outcome {
		panic("boom")
	}, e.session, nil)
	is.Equal(o.Kind, Failed)
	is.True(strings.Contains(o.String(), "boom"))
}

func TestRestore_WalletSavedMeanwhile(t *testing.T) {
	is := is.New(t)

	e := newTestEnv(t)
	e.session.env.Options.ReadSecret = func(string) (string, error) {
		// another process stores a wallet while the phrase is typed
		is.NoErr(e.session.Env().Secrets.Save(testMnemonic))
		return testMnemonic, nil
	}
	o := e.run("restore")
	is.Equal(o.Kind, Precondition)
	is.True(strings.Contains(o.Message, "use `load`"))
	is.True(!e.session.Loaded())
}

// section returns the first line printed under the [title] header.
func section(t *testing.T, out, title string) string {
	t.Helper()
	header := "[" + title + "]\n\n"
	i := strings.Index(out, header)
	if i < 0 {
		t.Fatalf("no %s section in %q", title, out)
	}
	rest := out[i+len(header):]
	if j := strings.IndexByte(rest, '\n'); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

// txType returns the type of the wallet transaction txid.
func txType(t *testing.T, w *wollet.Wallet, txid string) string {
	t.Helper()
	for _, wtx := range w.Transactions() {
		if wtx.Txid == txid {
			return wtx.Type
		}
	}
	t.Fatalf("transaction %s not in wallet", txid)
	return ""
}

func TestSend(t *testing.T) {
	is := is.New(t)

	e := newTestEnv(t)
	is.Equal(e.run("create").Kind, Done)
	e.chain.update = fundingUpdate(t, 100000)
	addr, err := e.session.Wallet().Address(nil)
	is.NoErr(err)

	e.out.Reset()
	o := e.run("send", addr.Address, "30000")
	is.Equal(o.Kind, Done)
	is.Equal(e.chain.scans, 1)
	is.Equal(e.chain.broadcasts, 1)
	txid := section(t, e.out.String(), "txid")
	is.Equal(txid, e.chain.mempool[0].TxHash().String())

	is.Equal(e.run("scan").Kind, Done)
	w := e.session.Wallet()
	is.Equal(txType(t, w, txid), wollet.TxTypeRedeposit)
	fee := w.Transactions()[0].Fee
	is.True(fee > 0)
	is.Equal(w.Balance()[wollet.DefaultPolicyAsset], 100000-fee)
}

func TestIssueReissueBurn(t *testing.T) {
	is := is.New(t)

	e := newTestEnv(t)
	is.Equal(e.run("create").Kind, Done)
	e.chain.update = fundingUpdate(t, 100000)
	addr, err := e.session.Wallet().Address(nil)
	is.NoErr(err)

	e.out.Reset()
	is.Equal(e.run("issue", addr.Address, "1000").Kind, Done)
	is.Equal(e.chain.scans, 1)
	is.Equal(e.chain.broadcasts, 1)
	asset := section(t, e.out.String(), "asset")
	is.Equal(len(asset), 64)
	issued := section(t, e.out.String(), "txid")

	e.out.Reset()
	is.Equal(e.run("balance").Kind, Done)
	is.True(strings.Contains(e.out.String(), "1000 "+asset+"\n"))
	w := e.session.Wallet()
	is.Equal(txType(t, w, issued), wollet.TxTypeIssuance)

	// the token minted by issue is enough to reissue
	e.out.Reset()
	is.Equal(e.run("reissue", addr.Address, "500", asset).Kind, Done)
	is.Equal(e.chain.scans, 3)
	is.Equal(e.chain.broadcasts, 2)
	reissued := section(t, e.out.String(), "txid")

	e.out.Reset()
	is.Equal(e.run("balance").Kind, Done)
	is.True(strings.Contains(e.out.String(), "1500 "+asset+"\n"))
	is.Equal(txType(t, w, reissued), wollet.TxTypeReissuance)

	e.out.Reset()
	is.Equal(e.run("burn", "700", asset).Kind, Done)
	is.Equal(e.chain.scans, 5)
	is.Equal(e.chain.broadcasts, 3)
	burned := section(t, e.out.String(), "txid")

	e.out.Reset()
	is.Equal(e.run("txs").Kind, Done)
	is.True(strings.Contains(e.out.String(), burned+" unconfirmed (burn"))
	is.True(strings.Contains(e.out.String(), "  -700 "+asset))
	is.Equal(w.Balance()[asset], uint64(800))
	is.Equal(txType(t, w, burned), wollet.TxTypeBurn)
}
