// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

// Package esplora scans a wallet's scripts against an Esplora REST server and
// broadcasts transactions through it. When the server also runs Waterfalls,
// one request per descriptor chain replaces the per-script history lookups.
package esplora

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/complex-gh/wollet"
	"github.com/complex-gh/wollet/internal/logger"
	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements/transaction"
	"go.uber.org/zap"
)

// DefaultURL is the local regtest Esplora/Waterfalls endpoint.
const DefaultURL = "http://127.0.0.1:3102/"

// maxBody caps how much of a response is read.
const maxBody = 16 << 20

// Client talks to one Esplora server for one network.
type Client struct {
	base       string
	net        *wollet.Network
	waterfalls bool
	gapLimit   uint32
	http       *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithGapLimit sets how many consecutive unused scripts end a chain scan.
func WithGapLimit(limit uint32) Option {
	return func(c *Client) {
		if limit > 0 {
			c.gapLimit = limit
		}
	}
}

// New returns a client for baseURL. With waterfalls set, scans use the
// Waterfalls descriptor endpoint.
func New(net *wollet.Network, baseURL string, waterfalls bool, opts ...Option) (*Client, error) {
	if net == nil {
		return nil, errors.New("esplora client needs a network")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parse esplora url %q", baseURL)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Errorf("esplora url %q must be http(s)://host[:port]/", baseURL)
	}

	c := &Client{
		base:       strings.TrimSuffix(u.String(), "/"),
		net:        net,
		waterfalls: waterfalls,
		gapLimit:   wollet.DefaultGapLimit,
		http:       http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL returns the base URL of the server.
func (c *Client) URL() string { return c.base }

// Waterfalls reports whether scans use the Waterfalls endpoint.
func (c *Client) Waterfalls() bool { return c.waterfalls }

// historyEntry is one transaction touching a script. Height 0 is unconfirmed.
type historyEntry struct {
	Txid   string
	Height uint32
}

// FullScanToIndex scans both chains of w's descriptor from index zero, at
// least up to index and then until the gap limit, and returns what changed.
// It returns nil, nil when the wallet is already up to date.
func (c *Client) FullScanToIndex(ctx context.Context, w *wollet.Wallet, index uint32) (*wollet.Update, error) {
	if w.Network().Name() != c.net.Name() {
		return nil, errors.Errorf("wallet is on %s, esplora client on %s", w.Network().Name(), c.net.Name())
	}
	log := logger.NewLoggerFromContext(ctx)
	start := time.Now()

	history := make(map[string]uint32)
	var next [2]uint32
	for _, chain := range []wollet.Chain{wollet.External, wollet.Internal} {
		var (
			byIndex [][]historyEntry
			err     error
		)
		if c.waterfalls {
			byIndex, err = c.waterfallsHistory(ctx, w.Descriptor().Public(chain))
		} else {
			byIndex, err = c.scriptsHistory(ctx, w, chain, index)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "scan %s chain", chain)
		}
		for i, entries := range byIndex {
			if len(entries) > 0 {
				next[chain] = uint32(i) + 1
			}
			for _, e := range entries {
				history[e.Txid] = e.Height
			}
		}
	}

	tip, err := c.TipHeight(ctx)
	if err != nil {
		return nil, err
	}

	u := &wollet.Update{
		Transactions: make(map[string]*transaction.Transaction),
		Heights:      make(map[string]uint32),
		Tip:          tip,
		NextIndex:    next,
	}
	for id, height := range history {
		if !w.HasTransaction(id) {
			tx, err := c.Transaction(ctx, id)
			if err != nil {
				return nil, err
			}
			u.Transactions[id] = tx
		}
		if old, ok := w.TxHeight(id); !ok || old != height {
			u.Heights[id] = height
		}
	}

	log.Info("scan finished",
		zap.Bool("waterfalls", c.waterfalls),
		zap.Int("history", len(history)),
		zap.Int("new_txs", len(u.Transactions)),
		zap.Uint32("tip", tip),
		zap.Duration("took", time.Since(start)))

	if u.Empty() && next[wollet.External] <= w.NextIndex(wollet.External) &&
		next[wollet.Internal] <= w.NextIndex(wollet.Internal) {
		return nil, nil
	}
	return u, nil
}

type esploraTx struct {
	Txid   string `json:"txid"`
	Status struct {
		Confirmed   bool   `json:"confirmed"`
		BlockHeight uint32 `json:"block_height"`
	} `json:"status"`
}

// scriptsHistory walks chain one script at a time until gapLimit consecutive
// scripts past index have no history.
func (c *Client) scriptsHistory(ctx context.Context, w *wollet.Wallet, chain wollet.Chain, index uint32) ([][]historyEntry, error) {
	var byIndex [][]historyEntry
	gap := uint32(0)
	for i := uint32(0); ; i++ {
		script, err := w.ScriptPubKey(chain, i)
		if err != nil {
			return nil, err
		}

		var txs []esploraTx
		if err := c.getJSON(ctx, "/scripthash/"+scriptHash(script)+"/txs", &txs); err != nil {
			return nil, err
		}

		entries := make([]historyEntry, 0, len(txs))
		for _, tx := range txs {
			e := historyEntry{Txid: tx.Txid}
			if tx.Status.Confirmed {
				e.Height = tx.Status.BlockHeight
			}
			entries = append(entries, e)
		}
		byIndex = append(byIndex, entries)

		if len(entries) > 0 {
			gap = 0
			continue
		}
		gap++
		if gap >= c.gapLimit && i >= index {
			return byIndex, nil
		}
	}
}

// scriptHash is the Esplora script hash: sha256 of the output script.
func scriptHash(script []byte) string {
	h := sha256.Sum256(script)
	return hex.EncodeToString(h[:])
}

// TipHeight returns the height of the best block.
func (c *Client) TipHeight(ctx context.Context) (uint32, error) {
	body, err := c.get(ctx, "/blocks/tip/height")
	if err != nil {
		return 0, err
	}
	height, err := strconv.ParseUint(strings.TrimSpace(string(body)), 10, 32)
	if err != nil {
		return 0, errors.Wrap(err, "parse tip height")
	}
	return uint32(height), nil
}

// Transaction fetches and decodes a transaction by txid.
func (c *Client) Transaction(ctx context.Context, txid string) (*transaction.Transaction, error) {
	body, err := c.get(ctx, "/tx/"+url.PathEscape(txid)+"/hex")
	if err != nil {
		return nil, err
	}
	tx, err := transaction.NewTxFromHex(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, errors.Wrapf(err, "decode transaction %s", txid)
	}
	return tx, nil
}

// Broadcast submits tx and returns the txid reported by the server.
func (c *Client) Broadcast(ctx context.Context, tx *transaction.Transaction) (string, error) {
	raw, err := tx.ToHex()
	if err != nil {
		return "", errors.Wrap(err, "encode transaction")
	}
	body, err := c.do(ctx, http.MethodPost, "/tx", strings.NewReader(raw), "text/plain")
	if err != nil {
		return "", errors.Wrap(err, "broadcast")
	}
	return strings.TrimSpace(string(body)), nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil, "")
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	u := c.base + path
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, errors.Wrapf(err, "esplora %s %s", method, u)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "esplora %s %s", method, u)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	logger.NewLoggerFromContext(ctx).Debug("esplora request",
		zap.String("method", method),
		zap.String("url", u),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))
	if err != nil {
		return nil, errors.Wrapf(err, "esplora %s %s: read body", method, u)
	}

	if resp.StatusCode/100 != 2 {
		msg := strings.TrimSpace(string(b))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		if msg != "" {
			return nil, errors.Errorf("esplora %s %s: %s: %s", method, u, resp.Status, msg)
		}
		return nil, errors.Errorf("esplora %s %s: %s", method, u, resp.Status)
	}
	return b, nil
}
