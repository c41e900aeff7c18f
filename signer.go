// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package wollet

import (
	"bytes"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/txscript"
	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements/payment"
	"github.com/vulpemventures/go-elements/psetv2"
	"github.com/vulpemventures/go-elements/slip77"
)

// purposeWpkh is the BIP84 purpose used for native segwit accounts.
const purposeWpkh = 84

// Signer holds the master keys derived from a BIP39 phrase.
type Signer struct {
	net         *Network
	master      *hdkeychain.ExtendedKey
	blinding    *slip77.Slip77
	fingerprint keyFingerprint
}

// NewSigner derives the BIP32 master key and the SLIP-77 master blinding key
// from mnemonic. The same phrase and network always yield the same signer.
func NewSigner(mnemonic string, net *Network) (*Signer, error) {
	seed, err := seedFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}

	master, err := hdkeychain.NewMaster(seed, &net.hd)
	if err != nil {
		return nil, errors.Wrap(err, "could not derive master key")
	}

	blinding, err := slip77.FromSeed(seed)
	if err != nil {
		return nil, errors.Wrap(err, "could not derive master blinding key")
	}

	pub, err := master.ECPubKey()
	if err != nil {
		return nil, errors.Wrap(err, "could not derive master public key")
	}

	s := &Signer{net: net, master: master, blinding: blinding}
	copy(s.fingerprint[:], btcutil.Hash160(pub.SerializeCompressed())[:4])
	return s, nil
}

// Fingerprint returns the master key fingerprint as hex.
func (s *Signer) Fingerprint() string {
	return s.fingerprint.String()
}

// WpkhSlip77Descriptor returns the account descriptor m/84h/<coin>h/0h with
// the signer's SLIP-77 blinding key.
func (s *Signer) WpkhSlip77Descriptor() (*Descriptor, error) {
	path := []uint32{
		hdkeychain.HardenedKeyStart + purposeWpkh,
		hdkeychain.HardenedKeyStart + s.net.coinType,
		hdkeychain.HardenedKeyStart,
	}

	key, err := s.derive(path)
	if err != nil {
		return nil, err
	}
	account, err := key.Neuter()
	if err != nil {
		return nil, errors.Wrap(err, "could not neuter account key")
	}

	return &Descriptor{
		net:         s.net,
		blinding:    s.blinding,
		fingerprint: s.fingerprint,
		path:        path,
		account:     account,
	}, nil
}

func (s *Signer) derive(path []uint32) (*hdkeychain.ExtendedKey, error) {
	key := s.master
	for _, p := range path {
		var err error
		key, err = key.Derive(p)
		if err != nil {
			return nil, errors.Wrapf(err, "could not derive child %d", p)
		}
	}
	return key, nil
}

// Sign adds a SIGHASH_ALL signature to every input of p that carries a BIP32
// derivation from this signer's master key. It returns how many inputs were
// signed.
func (s *Signer) Sign(p *psetv2.Pset) (int, error) {
	tx, err := p.UnsignedTx()
	if err != nil {
		return 0, errors.Wrap(err, "could not read unsigned transaction")
	}

	psetSigner, err := psetv2.NewSigner(p)
	if err != nil {
		return 0, errors.Wrap(err, "could not create pset signer")
	}

	signed := 0
	for i, in := range p.Inputs {
		if in.WitnessUtxo == nil {
			continue
		}
		for _, derivation := range in.Bip32Derivation {
			if derivation.MasterKeyFingerprint != s.fingerprint.uint32() {
				continue
			}

			key, err := s.derive(derivation.Bip32Path)
			if err != nil {
				return signed, err
			}
			priv, err := key.ECPrivKey()
			if err != nil {
				return signed, errors.Wrap(err, "could not read private key")
			}
			pub := priv.PubKey().SerializeCompressed()
			if !bytes.Equal(pub, derivation.PubKey) {
				return signed, errors.Errorf("input %d: derivation does not match public key", i)
			}

			scriptCode := payment.FromPublicKey(priv.PubKey(), s.net.Params(), nil).Script
			hash := tx.HashForWitnessV0(i, scriptCode, in.WitnessUtxo.Value, txscript.SigHashAll)
			sig := ecdsa.Sign(priv, hash[:])
			sigWithType := append(sig.Serialize(), byte(txscript.SigHashAll))

			if err := psetSigner.SignInput(i, sigWithType, pub, nil, nil); err != nil {
				return signed, errors.Wrapf(err, "could not sign input %d", i)
			}
			signed++
			break
		}
	}
	return signed, nil
}
