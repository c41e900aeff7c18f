// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

// Package wollet provides the Liquid wallet primitives used by the wollet
// CLI: mnemonic handling, BIP84 key derivation with SLIP-77 blinding keys,
// confidential descriptors and addresses, a wallet view that tracks owned
// outputs, and a PSET builder for sends, issuances, reissuances and burns.
//
// Chain access is not part of this package. A chain client (see the esplora
// package) produces an Update that the Wallet merges with ApplyUpdate.
package wollet

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements/network"
)

// DefaultPolicyAsset is the native asset id of the local regtest chain.
const DefaultPolicyAsset = "0f82e3be4e0644251bccfc1281249d5fa77bc67bb3d32af2025b4a3c3a0eb9c8"

const (
	coinTypeLiquid  = 1776
	coinTypeTestnet = 1
)

// Network describes the Liquid chain a wallet lives on. It pairs the
// go-elements network parameters (address prefixes, policy asset) with the
// chaincfg parameters hdkeychain needs for extended key version bytes.
type Network struct {
	params   network.Network
	hd       chaincfg.Params
	coinType uint32
}

// Regtest returns the regtest network with the given policy asset. An empty
// policyAsset selects DefaultPolicyAsset.
func Regtest(policyAsset string) (*Network, error) {
	if policyAsset == "" {
		policyAsset = DefaultPolicyAsset
	}
	if err := validateAssetID(policyAsset); err != nil {
		return nil, errors.Wrap(err, "invalid policy asset")
	}
	params := network.Regtest
	params.AssetID = policyAsset
	return newNetwork(params, &chaincfg.RegressionNetParams, coinTypeTestnet), nil
}

// Testnet returns the Liquid testnet network.
func Testnet() *Network {
	return newNetwork(network.Testnet, &chaincfg.TestNet3Params, coinTypeTestnet)
}

// Liquid returns the Liquid mainnet network.
func Liquid() *Network {
	return newNetwork(network.Liquid, &chaincfg.MainNetParams, coinTypeLiquid)
}

// ParseNetwork maps a network name to its parameters. The policy asset only
// applies to regtest; the public networks have a fixed one.
func ParseNetwork(name, policyAsset string) (*Network, error) {
	switch strings.ToLower(name) {
	case "", "regtest", "elementsregtest":
		return Regtest(policyAsset)
	case "testnet", "liquidtestnet":
		return Testnet(), nil
	case "liquid", "mainnet":
		return Liquid(), nil
	default:
		return nil, errors.Errorf("unknown network %q (must be regtest, testnet or liquid)", name)
	}
}

// newNetwork bridges the Liquid parameters onto a copy of the closest
// bitcoin chaincfg so hdkeychain serializes keys with the right versions.
func newNetwork(params network.Network, base *chaincfg.Params, coinType uint32) *Network {
	hd := *base
	hd.Name = params.Name
	hd.Bech32HRPSegwit = params.Bech32
	hd.HDPrivateKeyID = params.HDPrivateKey
	hd.HDPublicKeyID = params.HDPublicKey
	hd.PubKeyHashAddrID = params.PubKeyHash
	hd.ScriptHashAddrID = params.ScriptHash
	hd.PrivateKeyID = params.Wif
	return &Network{params: params, hd: hd, coinType: coinType}
}

// Name returns the go-elements network name.
func (n *Network) Name() string { return n.params.Name }

// PolicyAsset returns the hex id of the network's native asset.
func (n *Network) PolicyAsset() string { return n.params.AssetID }

// Params returns the go-elements parameters.
func (n *Network) Params() *network.Network { return &n.params }

// TxBuilder starts a transaction on this network with the default fee rate.
func (n *Network) TxBuilder() *TxBuilder {
	return &TxBuilder{net: n, feeRate: DefaultFeeRate}
}

func (n *Network) String() string {
	return fmt.Sprintf("%s (policy asset %s)", n.params.Name, n.params.AssetID)
}

// validateAssetID checks that id is a 32 byte hex string.
func validateAssetID(id string) error {
	b, err := hex.DecodeString(id)
	if err != nil {
		return errors.Wrapf(err, "asset id %q is not hex", id)
	}
	if len(b) != 32 {
		return errors.Errorf("asset id %q must be 32 bytes, got %d", id, len(b))
	}
	return nil
}
