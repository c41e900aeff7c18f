// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package wollet

import (
	"sort"

	"github.com/btcsuite/btcd/txscript"
	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements/address"
	"github.com/vulpemventures/go-elements/confidential"
	"github.com/vulpemventures/go-elements/psetv2"
	"github.com/vulpemventures/go-elements/transaction"
)

// DefaultFeeRate is the fee rate in satoshi per 1000 virtual bytes.
const DefaultFeeRate = 100

// Virtual size estimates used for fees. Confidential outputs are dominated by
// their range and surjection proofs.
const (
	vsizeBase               = 14
	vsizeInput              = 70
	vsizeConfidentialOutput = 1200
	vsizeExplicitOutput     = 67
	vsizeIssuance           = 82
	vsizeIssuanceProof      = 1100
)

// Errors returned while building transactions.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownAsset      = errors.New("unknown asset")
	ErrNoRecipients      = errors.New("no recipients")
)

type recipient struct {
	script      []byte
	blindingKey []byte
	amount      uint64
	asset       string
}

type issueArgs struct {
	amount        uint64
	receiver      string
	tokenAmount   uint64
	tokenReceiver string
}

type reissueArgs struct {
	asset    string
	amount   uint64
	receiver string
}

// TxBuilder collects the outputs of a transaction and turns them into a
// blinded, unsigned PSET funded from a wallet. Start one with
// Network.TxBuilder.
type TxBuilder struct {
	net        *Network
	feeRate    uint64
	recipients []recipient
	issuance   *issueArgs
	reissuance *reissueArgs
}

// FeeRate sets the fee rate in sat/kvB. Zero keeps the current rate.
func (b *TxBuilder) FeeRate(satPerKvb uint64) *TxBuilder {
	if satPerKvb > 0 {
		b.feeRate = satPerKvb
	}
	return b
}

// AddRecipient pays sats of asset to addr. An empty asset selects the policy
// asset.
func (b *TxBuilder) AddRecipient(addr string, sats uint64, asset string) error {
	if sats == 0 {
		return errors.New("amount must be greater than zero")
	}
	if asset == "" {
		asset = b.net.PolicyAsset()
	}
	if err := validateAssetID(asset); err != nil {
		return err
	}
	script, blindingKey, err := b.outputScript(addr)
	if err != nil {
		return err
	}
	b.recipients = append(b.recipients, recipient{
		script:      script,
		blindingKey: blindingKey,
		amount:      sats,
		asset:       asset,
	})
	return nil
}

// AddBurn destroys sats of asset in an OP_RETURN output.
func (b *TxBuilder) AddBurn(sats uint64, asset string) error {
	if sats == 0 {
		return errors.New("amount must be greater than zero")
	}
	if err := validateAssetID(asset); err != nil {
		return err
	}
	b.recipients = append(b.recipients, recipient{script: burnScript(), amount: sats, asset: asset})
	return nil
}

// IssueAsset issues sats of a new asset to receiver and tokenSats of its
// reissuance token to tokenReceiver. Empty receivers default to the wallet's
// next receive address at Finish.
func (b *TxBuilder) IssueAsset(sats uint64, receiver string, tokenSats uint64, tokenReceiver string) error {
	if b.issuance != nil || b.reissuance != nil {
		return errors.New("only one issuance or reissuance per transaction")
	}
	if sats == 0 {
		return errors.New("amount must be greater than zero")
	}
	for _, addr := range []string{receiver, tokenReceiver} {
		if addr == "" {
			continue
		}
		if _, _, err := b.outputScript(addr); err != nil {
			return err
		}
	}
	b.issuance = &issueArgs{amount: sats, receiver: receiver, tokenAmount: tokenSats, tokenReceiver: tokenReceiver}
	return nil
}

// ReissueAsset mints sats more of asset to receiver. The wallet must hold the
// asset's reissuance token.
func (b *TxBuilder) ReissueAsset(asset string, sats uint64, receiver string) error {
	if b.issuance != nil || b.reissuance != nil {
		return errors.New("only one issuance or reissuance per transaction")
	}
	if sats == 0 {
		return errors.New("amount must be greater than zero")
	}
	if err := validateAssetID(asset); err != nil {
		return err
	}
	if receiver != "" {
		if _, _, err := b.outputScript(receiver); err != nil {
			return err
		}
	}
	b.reissuance = &reissueArgs{asset: asset, amount: sats, receiver: receiver}
	return nil
}

// outputScript decodes addr into its output script and, for confidential
// addresses, the blinding public key.
func (b *TxBuilder) outputScript(addr string) ([]byte, []byte, error) {
	script, err := address.ToOutputScript(addr)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "invalid address %q", addr)
	}
	confidentialAddr, err := address.IsConfidential(addr)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "invalid address %q", addr)
	}
	if !confidentialAddr {
		return script, nil, nil
	}
	res, err := address.FromConfidential(addr)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "invalid confidential address %q", addr)
	}
	return script, res.BlindingKey, nil
}

// estimateFee returns the fee for a transaction with the given shape.
// blindedAmounts counts the issuance amounts carrying a range proof: two for
// an issuance with a token, one for a reissuance.
func (b *TxBuilder) estimateFee(inputs, confidentialOutputs, explicitOutputs, blindedAmounts int) uint64 {
	vsize := uint64(vsizeBase +
		inputs*vsizeInput +
		confidentialOutputs*vsizeConfidentialOutput +
		(explicitOutputs+1)*vsizeExplicitOutput)
	if blindedAmounts > 0 {
		vsize += uint64(vsizeIssuance + blindedAmounts*vsizeIssuanceProof)
	}
	return (vsize*b.feeRate + 999) / 1000
}

// selectAsset picks the largest unspent outputs of asset until they cover
// target, skipping outpoints already taken.
func selectAsset(utxos []UTXO, asset string, target uint64, taken map[OutPoint]bool) ([]UTXO, uint64, error) {
	var picked []UTXO
	var total uint64
	for _, u := range utxos {
		if total >= target {
			break
		}
		if u.Secrets.Asset != asset || taken[u.OutPoint] {
			continue
		}
		picked = append(picked, u)
		total += u.Secrets.Value
	}
	if total < target {
		return nil, 0, errors.Wrapf(ErrInsufficientFunds, "need %d of %s, have %d", target, asset, total)
	}
	return picked, total, nil
}

// Finish selects coins from w, adds change and fee outputs, blinds the
// confidential outputs and attaches the key origins the signer needs.
func (b *TxBuilder) Finish(w *Wallet) (*psetv2.Pset, error) {
	if len(b.recipients) == 0 && b.issuance == nil && b.reissuance == nil {
		return nil, ErrNoRecipients
	}
	if w.Network().Name() != b.net.Name() {
		return nil, errors.Errorf("wallet is on %s, builder on %s", w.Network().Name(), b.net.Name())
	}

	receive, err := w.Address(nil)
	if err != nil {
		return nil, err
	}
	change, err := w.changeAddress()
	if err != nil {
		return nil, err
	}
	changeBlindingKey := change.BlindingKey.PubKey().SerializeCompressed()

	utxos := w.UTXOs()
	taken := make(map[OutPoint]bool)
	var inputs []UTXO

	var reissueToken *UTXO
	var reissueEntropy []byte
	if r := b.reissuance; r != nil {
		iss, ok := w.issuances[r.asset]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownAsset, "no issuance of %s seen by this wallet", r.asset)
		}
		if !iss.blinded {
			return nil, errors.Errorf("%s was issued with explicit amounts, only assets with a confidential reissuance token can be reissued", r.asset)
		}
		for i := range utxos {
			if utxos[i].Secrets.Asset == iss.token {
				reissueToken = &utxos[i]
				break
			}
		}
		if reissueToken == nil {
			return nil, errors.Wrapf(ErrInsufficientFunds, "no reissuance token for %s", r.asset)
		}
		reissueEntropy = iss.entropy
		taken[reissueToken.OutPoint] = true
	}

	needs := make(map[string]uint64)
	for _, r := range b.recipients {
		needs[r.asset] += r.amount
	}
	policy := b.net.PolicyAsset()

	assets := make([]string, 0, len(needs))
	for a := range needs {
		if a != policy {
			assets = append(assets, a)
		}
	}
	sort.Strings(assets)

	changeAmounts := make(map[string]uint64)
	for _, asset := range assets {
		picked, total, err := selectAsset(utxos, asset, needs[asset], taken)
		if err != nil {
			return nil, err
		}
		for _, u := range picked {
			taken[u.OutPoint] = true
		}
		inputs = append(inputs, picked...)
		if total > needs[asset] {
			changeAmounts[asset] = total - needs[asset]
		}
	}

	confidentialOutputs, explicitOutputs := 0, 0
	for _, r := range b.recipients {
		if r.blindingKey != nil {
			confidentialOutputs++
		} else {
			explicitOutputs++
		}
	}
	confidentialOutputs += len(changeAmounts)
	blindedAmounts := 0
	switch {
	case b.issuance != nil:
		confidentialOutputs += 2
		blindedAmounts = 2
	case b.reissuance != nil:
		confidentialOutputs += 2
		blindedAmounts = 1
	}
	tokenInputs := 0
	if reissueToken != nil {
		tokenInputs = 1
	}

	// The policy asset pays the fee, which grows with every input it adds.
	var policyInputs []UTXO
	var fee uint64
	for {
		fee = b.estimateFee(len(inputs)+len(policyInputs)+tokenInputs, confidentialOutputs+1, explicitOutputs,
			blindedAmounts)
		target := needs[policy] + fee
		picked, total, err := selectAsset(utxos, policy, target, taken)
		if err != nil {
			return nil, err
		}
		if len(picked) <= len(policyInputs) {
			if total > target {
				changeAmounts[policy] = total - target
			}
			policyInputs = picked
			break
		}
		policyInputs = picked
	}
	inputs = append(inputs, policyInputs...)
	// Issuance blinding only works on the last input, so the (re)issuance
	// rides there.
	if reissueToken != nil {
		inputs = append(inputs, *reissueToken)
	}
	issuer := len(inputs) - 1

	ins := make([]psetv2.InputArgs, 0, len(inputs))
	for _, u := range inputs {
		ins = append(ins, psetv2.InputArgs{Txid: u.Txid, TxIndex: u.Vout})
	}

	outs := make([]psetv2.OutputArgs, 0, len(b.recipients)+len(changeAmounts)+1)
	for _, r := range b.recipients {
		outs = append(outs, psetv2.OutputArgs{
			Asset:       r.asset,
			Amount:      r.amount,
			Script:      r.script,
			BlindingKey: r.blindingKey,
		})
	}
	changeAssets := make([]string, 0, len(changeAmounts))
	for a := range changeAmounts {
		changeAssets = append(changeAssets, a)
	}
	sort.Strings(changeAssets)
	for _, a := range changeAssets {
		outs = append(outs, psetv2.OutputArgs{
			Asset:       a,
			Amount:      changeAmounts[a],
			Script:      change.Script,
			BlindingKey: changeBlindingKey,
		})
	}
	outs = append(outs, psetv2.OutputArgs{Asset: policy, Amount: fee})

	p, err := psetv2.New(ins, outs, nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not create pset")
	}
	updater, err := psetv2.NewUpdater(p)
	if err != nil {
		return nil, errors.Wrap(err, "could not create pset updater")
	}

	desc := w.Descriptor()
	for i, u := range inputs {
		if err := updater.AddInWitnessUtxo(i, u.TxOut); err != nil {
			return nil, errors.Wrapf(err, "input %d witness utxo", i)
		}
		if isConfidential(u.TxOut) {
			if err := updater.AddInUtxoRangeProof(i, u.TxOut.RangeProof); err != nil {
				return nil, errors.Wrapf(err, "input %d range proof", i)
			}
		}
		if err := updater.AddInSighashType(i, txscript.SigHashAll); err != nil {
			return nil, errors.Wrapf(err, "input %d sighash", i)
		}
		d, err := w.derive(u.Chain, u.Index)
		if err != nil {
			return nil, err
		}
		if err := updater.AddInBip32Derivation(i, psetv2.DerivationPathWithPubKey{
			PubKey:               d.PublicKey.SerializeCompressed(),
			MasterKeyFingerprint: desc.fingerprint.uint32(),
			Bip32Path:            desc.bip32Path(u.Chain, u.Index),
		}); err != nil {
			return nil, errors.Wrapf(err, "input %d key origin", i)
		}
	}

	if iss := b.issuance; iss != nil {
		assetAddr, tokenAddr := iss.receiver, iss.tokenReceiver
		if assetAddr == "" {
			assetAddr = receive.Address
		}
		if tokenAddr == "" {
			tokenAddr = receive.Address
		}
		if err := updater.AddInIssuance(issuer, psetv2.AddInIssuanceArgs{
			AssetAmount:     iss.amount,
			TokenAmount:     iss.tokenAmount,
			AssetAddress:    assetAddr,
			TokenAddress:    tokenAddr,
			BlindedIssuance: true,
		}); err != nil {
			return nil, errors.Wrap(err, "could not add issuance")
		}
	}

	if r := b.reissuance; r != nil {
		assetAddr := r.receiver
		if assetAddr == "" {
			assetAddr = receive.Address
		}
		if err := updater.AddInReissuance(issuer, psetv2.AddInReissuanceArgs{
			TokenPrevOutBlinder: reissueToken.Secrets.AssetBlinder,
			Entropy:             hashString(reissueEntropy),
			AssetAmount:         r.amount,
			AssetAddress:        assetAddr,
			TokenAmount:         reissueToken.Secrets.Value,
			TokenAddress:        change.Address,
		}); err != nil {
			return nil, errors.Wrap(err, "could not add reissuance")
		}
	}

	var issuanceKeys map[uint32][]byte
	if b.issuance != nil || b.reissuance != nil {
		key, err := w.desc.blindingKey(inputs[issuer].Script)
		if err != nil {
			return nil, err
		}
		issuanceKeys = map[uint32][]byte{uint32(issuer): key.Serialize()}
	}
	if err := blind(p, inputs, issuanceKeys); err != nil {
		return nil, err
	}
	return p, nil
}

// blind blinds every output of p that carries a blinding key and the
// issuance amounts of the inputs in issuanceKeys. Transactions with only
// explicit outputs and no issuance are left as they are.
func blind(p *psetv2.Pset, inputs []UTXO, issuanceKeys map[uint32][]byte) error {
	needed := false
	for _, out := range p.Outputs {
		if len(out.BlindingPubkey) > 0 {
			needed = true
			break
		}
	}
	if !needed {
		if len(issuanceKeys) > 0 {
			return errors.New("a blinded issuance needs at least one confidential output")
		}
		return nil
	}

	owned := make([]psetv2.OwnedInput, 0, len(inputs))
	byIndex := make(map[uint32]psetv2.OwnedInput, len(inputs))
	for i, u := range inputs {
		in := psetv2.OwnedInput{
			Index:        uint32(i),
			Value:        u.Secrets.Value,
			Asset:        u.Secrets.Asset,
			ValueBlinder: u.Secrets.ValueBlinder,
			AssetBlinder: u.Secrets.AssetBlinder,
		}
		owned = append(owned, in)
		byIndex[uint32(i)] = in
	}

	generator, err := confidential.NewZKPGeneratorFromOwnedInputs(byIndex, nil)
	if err != nil {
		return errors.Wrap(err, "could not create zkp generator")
	}
	var issuanceArgs []psetv2.InputIssuanceBlindingArgs
	if len(issuanceKeys) > 0 {
		issuanceArgs, err = generator.BlindIssuances(p, issuanceKeys)
		if err != nil {
			return errors.Wrap(err, "could not blind issuance")
		}
	}
	outArgs, err := generator.BlindOutputs(p, nil)
	if err != nil {
		return errors.Wrap(err, "could not compute output blinders")
	}
	blinder, err := psetv2.NewBlinder(p, owned, confidential.NewZKPValidator(), generator)
	if err != nil {
		return errors.Wrap(err, "could not create blinder")
	}
	if err := blinder.BlindLast(issuanceArgs, outArgs); err != nil {
		return errors.Wrap(err, "could not blind outputs")
	}
	return nil
}

// IssuanceAsset returns the id of the asset issued (or reissued) by the
// input of p that carries an issuance.
func IssuanceAsset(p *psetv2.Pset) (string, error) {
	tx, err := p.UnsignedTx()
	if err != nil {
		return "", errors.Wrap(err, "could not read unsigned transaction")
	}
	var in *transaction.TxInput
	for _, candidate := range tx.Inputs {
		if candidate.Issuance != nil {
			in = candidate
			break
		}
	}
	if in == nil {
		return "", errors.New("transaction has no issuance")
	}
	iss, err := transaction.NewTxIssuanceFromInput(in)
	if err != nil {
		return "", errors.Wrap(err, "could not read issuance")
	}
	asset, err := iss.GenerateAsset()
	if err != nil {
		return "", errors.Wrap(err, "could not compute issued asset")
	}
	return hashString(asset), nil
}
