// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package wollet

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements/payment"
	"github.com/vulpemventures/go-elements/slip77"
)

// Chain selects the external (receive) or internal (change) branch of a
// descriptor.
type Chain uint32

const (
	External Chain = 0
	Internal Chain = 1
)

func (c Chain) String() string {
	if c == Internal {
		return "internal"
	}
	return "external"
}

// Descriptor is a single-signature confidential descriptor:
//
//	ct(slip77(<master blinding key>),elwpkh([fp/84h/ct/0h]xpub/<0;1>/*))
//
// Output scripts are P2WPKH; each script's blinding key is derived from the
// SLIP-77 master blinding key and the script itself.
type Descriptor struct {
	net         *Network
	blinding    *slip77.Slip77
	fingerprint keyFingerprint
	path        []uint32
	account     *hdkeychain.ExtendedKey
}

// Derived is one output script of a descriptor.
type Derived struct {
	Chain       Chain
	Index       uint32
	PublicKey   *btcec.PublicKey
	Script      []byte
	BlindingKey *btcec.PrivateKey
	Address     string
}

// keyFingerprint is the first four bytes of HASH160(master public key).
type keyFingerprint [4]byte

func (f keyFingerprint) String() string { return hex.EncodeToString(f[:]) }

// uint32 encodes the fingerprint the way PSET key origins carry it.
func (f keyFingerprint) uint32() uint32 { return binary.LittleEndian.Uint32(f[:]) }

// Fingerprint returns the master key fingerprint as hex.
func (d *Descriptor) Fingerprint() string { return d.fingerprint.String() }

// Network returns the network the descriptor derives addresses for.
func (d *Descriptor) Network() *Network { return d.net }

// String returns the full confidential descriptor with checksum.
func (d *Descriptor) String() string {
	desc := fmt.Sprintf("ct(slip77(%x),elwpkh(%s%s/<0;1>/*))",
		d.blinding.MasterKey, d.keyOrigin(), d.account.String())
	return withChecksum(desc)
}

// Public returns the descriptor of one chain without the blinding key. It is
// safe to hand to an indexing service: it reveals which scripts are ours but
// not the amounts and assets sent to them.
func (d *Descriptor) Public(chain Chain) string {
	desc := fmt.Sprintf("elwpkh(%s%s/%d/*)", d.keyOrigin(), d.account.String(), chain)
	return withChecksum(desc)
}

func (d *Descriptor) keyOrigin() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(d.Fingerprint())
	for _, p := range d.path {
		if p >= hdkeychain.HardenedKeyStart {
			fmt.Fprintf(&b, "/%dh", p-hdkeychain.HardenedKeyStart)
		} else {
			fmt.Fprintf(&b, "/%d", p)
		}
	}
	b.WriteString("]")
	return b.String()
}

// Derive returns the script, keys and confidential address at index of chain.
func (d *Descriptor) Derive(chain Chain, index uint32) (*Derived, error) {
	branch, err := d.account.Derive(uint32(chain))
	if err != nil {
		return nil, errors.Wrapf(err, "derive %s chain", chain)
	}
	child, err := branch.Derive(index)
	if err != nil {
		return nil, errors.Wrapf(err, "derive %s/%d", chain, index)
	}
	pubKey, err := child.ECPubKey()
	if err != nil {
		return nil, errors.Wrap(err, "child public key")
	}

	script := payment.FromPublicKey(pubKey, d.net.Params(), nil).WitnessScript
	blindingKey, blindingPubKey, err := d.blinding.DeriveKey(script)
	if err != nil {
		return nil, errors.Wrap(err, "derive blinding key")
	}

	addr, err := payment.FromPublicKey(pubKey, d.net.Params(), blindingPubKey).ConfidentialWitnessPubKeyHash()
	if err != nil {
		return nil, errors.Wrap(err, "encode confidential address")
	}

	return &Derived{
		Chain:       chain,
		Index:       index,
		PublicKey:   pubKey,
		Script:      script,
		BlindingKey: blindingKey,
		Address:     addr,
	}, nil
}

// blindingKey returns the SLIP-77 private blinding key for script.
func (d *Descriptor) blindingKey(script []byte) (*btcec.PrivateKey, error) {
	key, _, err := d.blinding.DeriveKey(script)
	if err != nil {
		return nil, errors.Wrap(err, "derive blinding key")
	}
	return key, nil
}

// bip32Path returns the full path from the master key to chain/index.
func (d *Descriptor) bip32Path(chain Chain, index uint32) []uint32 {
	path := make([]uint32, 0, len(d.path)+2)
	path = append(path, d.path...)
	return append(path, uint32(chain), index)
}
