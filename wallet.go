// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package wollet

import (
	"encoding/hex"
	"sort"

	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements/confidential"
	"github.com/vulpemventures/go-elements/psetv2"
	"github.com/vulpemventures/go-elements/transaction"
)

// DefaultGapLimit is how many consecutive unused scripts end a scan.
const DefaultGapLimit = 20

// Transaction types reported by Transactions.
const (
	TxTypeIssuance   = "issuance"
	TxTypeReissuance = "reissuance"
	TxTypeBurn       = "burn"
	TxTypeIncoming   = "incoming"
	TxTypeOutgoing   = "outgoing"
	TxTypeRedeposit  = "redeposit"
)

// OutPoint identifies a transaction output.
type OutPoint struct {
	Txid string
	Vout uint32
}

// TxOutSecrets are the unblinded asset and value of an owned output with the
// factors needed to spend it in a blinded transaction.
type TxOutSecrets struct {
	Asset        string
	Value        uint64
	AssetBlinder []byte
	ValueBlinder []byte
}

// UTXO is an unspent output owned by the wallet.
type UTXO struct {
	OutPoint
	// Height is the confirmation height; 0 is unconfirmed.
	Height  uint32
	Chain   Chain
	Index   uint32
	Script  []byte
	TxOut   *transaction.TxOutput
	Secrets TxOutSecrets
}

// WalletTx is a transaction seen from the wallet's point of view.
type WalletTx struct {
	Txid string
	// Height is the confirmation height; 0 is unconfirmed.
	Height uint32
	// Balance is the net change per asset for the wallet.
	Balance map[string]int64
	Fee     uint64
	Type    string
	Tx      *transaction.Transaction
}

// Balance maps asset ids to the wallet's unspent amount.
type Balance map[string]uint64

// Assets returns the asset ids of b sorted.
func (b Balance) Assets() []string {
	assets := make([]string, 0, len(b))
	for a := range b {
		assets = append(assets, a)
	}
	sort.Strings(assets)
	return assets
}

// AddressResult is a receive address and its derivation index.
type AddressResult struct {
	Index   uint32
	Address string
}

type scriptPath struct {
	chain Chain
	index uint32
}

type ownedOutput struct {
	path    scriptPath
	txOut   *transaction.TxOutput
	secrets TxOutSecrets
}

// issuance is what the wallet remembers about an asset issuance it has seen,
// enough to reissue if it holds the token.
type issuance struct {
	entropy []byte
	token   string
	blinded bool
}

// Wallet is a watch view over a descriptor: it tracks transactions touching
// the descriptor's scripts and unblinds the outputs sent to them.
type Wallet struct {
	net      *Network
	desc     *Descriptor
	gapLimit uint32

	derived   [2][]*Derived
	scripts   map[string]scriptPath
	txs       map[string]*transaction.Transaction
	heights   map[string]uint32
	owned     map[OutPoint]ownedOutput
	issuances map[string]issuance
	tip       uint32
	next      [2]uint32
}

// NewWallet returns an empty wallet view for desc.
func NewWallet(net *Network, desc *Descriptor) (*Wallet, error) {
	if net == nil || desc == nil {
		return nil, errors.New("wallet needs a network and a descriptor")
	}
	if desc.net.Name() != net.Name() {
		return nil, errors.Errorf("descriptor is for %s, wallet for %s", desc.net.Name(), net.Name())
	}
	w := &Wallet{
		net:       net,
		desc:      desc,
		gapLimit:  DefaultGapLimit,
		scripts:   make(map[string]scriptPath),
		txs:       make(map[string]*transaction.Transaction),
		heights:   make(map[string]uint32),
		owned:     make(map[OutPoint]ownedOutput),
		issuances: make(map[string]issuance),
	}
	if err := w.deriveUpTo(w.gapLimit); err != nil {
		return nil, err
	}
	return w, nil
}

// SetGapLimit changes the look-ahead window used to recognize owned scripts.
func (w *Wallet) SetGapLimit(limit uint32) {
	if limit > 0 {
		w.gapLimit = limit
	}
}

// GapLimit returns the look-ahead window.
func (w *Wallet) GapLimit() uint32 { return w.gapLimit }

// Descriptor returns the wallet descriptor.
func (w *Wallet) Descriptor() *Descriptor { return w.desc }

// Network returns the wallet network.
func (w *Wallet) Network() *Network { return w.net }

// Tip returns the chain height of the last applied update.
func (w *Wallet) Tip() uint32 { return w.tip }

// NextIndex returns the first unused derivation index of chain.
func (w *Wallet) NextIndex(chain Chain) uint32 { return w.next[chain] }

// HasTransaction reports whether txid is already known.
func (w *Wallet) HasTransaction(txid string) bool {
	_, ok := w.txs[txid]
	return ok
}

// TxHeight returns the known height of txid; 0 is unconfirmed.
func (w *Wallet) TxHeight(txid string) (uint32, bool) {
	h, ok := w.heights[txid]
	return h, ok
}

// ScriptPubKey returns the output script at index of chain.
func (w *Wallet) ScriptPubKey(chain Chain, index uint32) ([]byte, error) {
	d, err := w.derive(chain, index)
	if err != nil {
		return nil, err
	}
	return d.Script, nil
}

func (w *Wallet) derive(chain Chain, index uint32) (*Derived, error) {
	if chain != External && chain != Internal {
		return nil, errors.Errorf("unknown chain %d", chain)
	}
	for uint32(len(w.derived[chain])) <= index {
		i := uint32(len(w.derived[chain]))
		d, err := w.desc.Derive(chain, i)
		if err != nil {
			return nil, err
		}
		w.derived[chain] = append(w.derived[chain], d)
		w.scripts[hex.EncodeToString(d.Script)] = scriptPath{chain: chain, index: i}
	}
	return w.derived[chain][index], nil
}

// deriveUpTo makes sure every script up to the next unused index plus
// lookahead is recognized on both chains.
func (w *Wallet) deriveUpTo(lookahead uint32) error {
	for _, chain := range []Chain{External, Internal} {
		if _, err := w.derive(chain, w.next[chain]+lookahead-1); err != nil {
			return err
		}
	}
	return nil
}

// Address returns the receive address at index, or the next unused one when
// index is nil.
func (w *Wallet) Address(index *uint32) (AddressResult, error) {
	i := w.next[External]
	if index != nil {
		i = *index
	}
	d, err := w.derive(External, i)
	if err != nil {
		return AddressResult{}, err
	}
	return AddressResult{Index: i, Address: d.Address}, nil
}

// changeAddress returns the next unused internal address.
func (w *Wallet) changeAddress() (*Derived, error) {
	return w.derive(Internal, w.next[Internal])
}

// ApplyUpdate merges the result of a scan: new transactions are stored and
// their owned outputs unblinded, heights and the tip are refreshed, and the
// next unused indexes only move forward.
func (w *Wallet) ApplyUpdate(u *Update) error {
	if u == nil {
		return nil
	}
	for c := range u.NextIndex {
		if u.NextIndex[c] > w.next[c] {
			w.next[c] = u.NextIndex[c]
		}
	}
	if err := w.deriveUpTo(w.gapLimit); err != nil {
		return err
	}

	ids := make([]string, 0, len(u.Transactions))
	for id := range u.Transactions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		tx := u.Transactions[id]
		if got := txid(tx); got != id {
			return errors.Errorf("update transaction %s hashes to %s", id, got)
		}
		if err := w.addTransaction(id, tx); err != nil {
			return errors.Wrapf(err, "transaction %s", id)
		}
	}

	for id, height := range u.Heights {
		if _, err := parseTxid(id); err != nil {
			return err
		}
		w.heights[id] = height
	}
	if u.Tip > w.tip {
		w.tip = u.Tip
	}
	return w.deriveUpTo(w.gapLimit)
}

func (w *Wallet) addTransaction(id string, tx *transaction.Transaction) error {
	w.txs[id] = tx
	if _, ok := w.heights[id]; !ok {
		w.heights[id] = 0
	}

	for vout, out := range tx.Outputs {
		path, ok := w.scripts[hex.EncodeToString(out.Script)]
		if !ok {
			continue
		}
		secrets, err := w.unblind(out)
		if err != nil {
			return errors.Wrapf(err, "could not unblind output %d", vout)
		}
		w.owned[OutPoint{Txid: id, Vout: uint32(vout)}] = ownedOutput{path: path, txOut: out, secrets: secrets}
		if path.index+1 > w.next[path.chain] {
			w.next[path.chain] = path.index + 1
		}
	}

	for _, in := range tx.Inputs {
		if in.Issuance == nil {
			continue
		}
		if err := w.recordIssuance(in); err != nil {
			return err
		}
	}
	return nil
}

func (w *Wallet) recordIssuance(in *transaction.TxInput) error {
	iss, err := transaction.NewTxIssuanceFromInput(in)
	if err != nil {
		return errors.Wrap(err, "could not read issuance")
	}
	assetHash, err := iss.GenerateAsset()
	if err != nil {
		return errors.Wrap(err, "could not compute issued asset")
	}
	asset := hashString(assetHash)
	if !isNull(in.Issuance.AssetBlindingNonce) {
		// Reissuances carry the entropy but not whether the original issuance
		// was blinded; keep what the issuance told us if we saw it.
		if _, ok := w.issuances[asset]; ok {
			return nil
		}
	}
	blinded := len(in.Issuance.AssetAmount) == commitmentLen
	flag := uint(0)
	if blinded {
		flag = 1
	}
	tokenHash, err := iss.GenerateReissuanceToken(flag)
	if err != nil {
		return errors.Wrap(err, "could not compute reissuance token")
	}
	w.issuances[asset] = issuance{
		entropy: iss.TxIssuance.AssetEntropy,
		token:   hashString(tokenHash),
		blinded: blinded,
	}
	return nil
}

// unblind reveals the asset and value of an output sent to one of our
// scripts.
func (w *Wallet) unblind(out *transaction.TxOutput) (TxOutSecrets, error) {
	if !isConfidential(out) {
		value, _ := explicitValue(out.Value)
		asset, _ := explicitAsset(out.Asset)
		return TxOutSecrets{Asset: asset, Value: value, AssetBlinder: zeroBlinder, ValueBlinder: zeroBlinder}, nil
	}

	key, err := w.desc.blindingKey(out.Script)
	if err != nil {
		return TxOutSecrets{}, err
	}
	res, err := confidential.UnblindOutputWithKey(out, key.Serialize())
	if err != nil {
		return TxOutSecrets{}, err
	}
	return TxOutSecrets{
		Asset:        hashString(res.Asset),
		Value:        res.Value,
		AssetBlinder: res.AssetBlindingFactor,
		ValueBlinder: res.ValueBlindingFactor,
	}, nil
}

// spent returns every outpoint consumed by a known transaction.
func (w *Wallet) spent() map[OutPoint]bool {
	spent := make(map[OutPoint]bool)
	for _, tx := range w.txs {
		for _, in := range tx.Inputs {
			spent[OutPoint{Txid: hashString(in.Hash), Vout: in.Index}] = true
		}
	}
	return spent
}

// UTXOs returns the unspent owned outputs, largest value first.
func (w *Wallet) UTXOs() []UTXO {
	spent := w.spent()
	utxos := make([]UTXO, 0, len(w.owned))
	for op, o := range w.owned {
		if spent[op] {
			continue
		}
		d, err := w.derive(o.path.chain, o.path.index)
		if err != nil {
			continue
		}
		utxos = append(utxos, UTXO{
			OutPoint: op,
			Height:   w.heights[op.Txid],
			Chain:    o.path.chain,
			Index:    o.path.index,
			Script:   d.Script,
			TxOut:    o.txOut,
			Secrets:  o.secrets,
		})
	}
	sort.Slice(utxos, func(i, j int) bool {
		if utxos[i].Secrets.Value != utxos[j].Secrets.Value {
			return utxos[i].Secrets.Value > utxos[j].Secrets.Value
		}
		if utxos[i].Txid != utxos[j].Txid {
			return utxos[i].Txid < utxos[j].Txid
		}
		return utxos[i].Vout < utxos[j].Vout
	})
	return utxos
}

// Balance sums the unspent outputs per asset. The policy asset is always
// present.
func (w *Wallet) Balance() Balance {
	b := Balance{w.net.PolicyAsset(): 0}
	for _, u := range w.UTXOs() {
		b[u.Secrets.Asset] += u.Secrets.Value
	}
	return b
}

// Transactions returns every known transaction, unconfirmed first, then by
// height descending.
func (w *Wallet) Transactions() []WalletTx {
	list := make([]WalletTx, 0, len(w.txs))
	for id, tx := range w.txs {
		list = append(list, w.walletTx(id, tx))
	}
	sort.Slice(list, func(i, j int) bool {
		hi, hj := list[i].Height, list[j].Height
		if (hi == 0) != (hj == 0) {
			return hi == 0
		}
		if hi != hj {
			return hi > hj
		}
		return list[i].Txid < list[j].Txid
	})
	return list
}

func (w *Wallet) walletTx(id string, tx *transaction.Transaction) WalletTx {
	wtx := WalletTx{
		Txid:    id,
		Height:  w.heights[id],
		Balance: make(map[string]int64),
		Tx:      tx,
	}

	ownsInput := false
	newIssuance, reissuance := false, false
	for _, in := range tx.Inputs {
		op := OutPoint{Txid: hashString(in.Hash), Vout: in.Index}
		if o, ok := w.owned[op]; ok {
			ownsInput = true
			wtx.Balance[o.secrets.Asset] -= int64(o.secrets.Value)
		}
		if in.Issuance != nil {
			if isNull(in.Issuance.AssetBlindingNonce) {
				newIssuance = true
			} else {
				reissuance = true
			}
		}
	}

	burn := false
	for vout, out := range tx.Outputs {
		if isFee(out) {
			if v, ok := explicitValue(out.Value); ok {
				wtx.Fee += v
			}
			continue
		}
		if isBurn(out) {
			if v, ok := explicitValue(out.Value); ok && v > 0 {
				burn = true
			}
		}
		if o, ok := w.owned[OutPoint{Txid: id, Vout: uint32(vout)}]; ok {
			wtx.Balance[o.secrets.Asset] += int64(o.secrets.Value)
		}
	}

	for asset, delta := range wtx.Balance {
		if delta == 0 {
			delete(wtx.Balance, asset)
		}
	}

	switch {
	case newIssuance:
		wtx.Type = TxTypeIssuance
	case reissuance:
		wtx.Type = TxTypeReissuance
	case ownsInput && burn:
		wtx.Type = TxTypeBurn
	case !ownsInput:
		wtx.Type = TxTypeIncoming
	case w.isRedeposit(wtx):
		wtx.Type = TxTypeRedeposit
	default:
		wtx.Type = TxTypeOutgoing
	}
	return wtx
}

// isRedeposit reports whether the wallet paid only the fee.
func (w *Wallet) isRedeposit(wtx WalletTx) bool {
	for asset, delta := range wtx.Balance {
		if asset == w.net.PolicyAsset() && delta == -int64(wtx.Fee) {
			continue
		}
		return false
	}
	return true
}

// Finalize completes the scripts of every signed input and extracts the
// network transaction.
func (w *Wallet) Finalize(p *psetv2.Pset) (*transaction.Transaction, error) {
	if err := psetv2.FinalizeAll(p); err != nil {
		return nil, errors.Wrap(err, "could not finalize pset")
	}
	tx, err := psetv2.Extract(p)
	if err != nil {
		return nil, errors.Wrap(err, "could not extract transaction")
	}
	return tx, nil
}
