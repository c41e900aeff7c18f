// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package wollet

import (
	"testing"

	"github.com/matryer/is"
)

func TestRegtest_DefaultPolicyAsset(t *testing.T) {
	is := is.New(t)

	net, err := Regtest("")
	is.NoErr(err)
	is.Equal(net.PolicyAsset(), DefaultPolicyAsset)
	is.Equal(net.Params().AssetID, DefaultPolicyAsset)
}

func TestRegtest_InvalidPolicyAsset(t *testing.T) {
	is := is.New(t)

	_, err := Regtest("not-hex")
	is.True(err != nil)

	_, err = Regtest("0f82e3be")
	is.True(err != nil) // too short
}

func TestParseNetwork(t *testing.T) {
	is := is.New(t)

	for _, name := range []string{"", "regtest", "ElementsRegtest"} {
		net, err := ParseNetwork(name, "")
		is.NoErr(err)
		is.Equal(net.PolicyAsset(), DefaultPolicyAsset)
	}

	testnet, err := ParseNetwork("testnet", "")
	is.NoErr(err)
	is.Equal(testnet.Name(), Testnet().Name())

	liquid, err := ParseNetwork("liquid", DefaultPolicyAsset)
	is.NoErr(err)
	is.True(liquid.PolicyAsset() != DefaultPolicyAsset) // fixed by the network

	_, err = ParseNetwork("signet", "")
	is.True(err != nil)
}
