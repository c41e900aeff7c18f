// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package wollet

import (
	"testing"

	"github.com/matryer/is"
)

// TestDescriptorChecksum checks the BIP380 test vector
func TestDescriptorChecksum(t *testing.T) {
	is := is.New(t)

	sum, err := descriptorChecksum("raw(deadbeef)")
	is.NoErr(err)
	is.Equal(sum, "89f8spxm")
	is.Equal(withChecksum("raw(deadbeef)"), "raw(deadbeef)#89f8spxm")
}

func TestDescriptorChecksum_InvalidCharacter(t *testing.T) {
	is := is.New(t)

	_, err := descriptorChecksum("raw(deadbeef)é")
	is.True(err != nil)

	// withChecksum leaves descriptors it cannot sum untouched
	is.Equal(withChecksum("raw(é)"), "raw(é)")
}
