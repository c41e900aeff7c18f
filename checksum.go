// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package wollet

import (
	"strings"

	"github.com/pkg/errors"
)

// Descriptor checksum as defined by BIP380.
const (
	checksumInputCharset = "0123456789()[],'/*abcdefgh@:$%{}" +
		"IJKLMNOPQRSTUVWXYZ&+-.;<=>?!^_|~" +
		"ijklmnopqrstuvwxyzABCDEFGH`#\"\\ "
	checksumCharset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
)

func checksumPolyMod(c uint64, val int) uint64 {
	c0 := c >> 35
	c = ((c & 0x7ffffffff) << 5) ^ uint64(val)
	if c0&1 != 0 {
		c ^= 0xf5dee51989
	}
	if c0&2 != 0 {
		c ^= 0xa9fdca3312
	}
	if c0&4 != 0 {
		c ^= 0x1bab10e32d
	}
	if c0&8 != 0 {
		c ^= 0x3706b1677a
	}
	if c0&16 != 0 {
		c ^= 0x644d626ffd
	}
	return c
}

// descriptorChecksum returns the 8 character checksum of desc.
func descriptorChecksum(desc string) (string, error) {
	c := uint64(1)
	cls := 0
	clsCount := 0
	for _, ch := range desc {
		pos := strings.IndexRune(checksumInputCharset, ch)
		if pos < 0 {
			return "", errors.Errorf("invalid descriptor character %q", ch)
		}
		c = checksumPolyMod(c, pos&31)
		cls = cls*3 + (pos >> 5)
		clsCount++
		if clsCount == 3 {
			c = checksumPolyMod(c, cls)
			cls = 0
			clsCount = 0
		}
	}
	if clsCount > 0 {
		c = checksumPolyMod(c, cls)
	}
	for i := 0; i < 8; i++ {
		c = checksumPolyMod(c, 0)
	}
	c ^= 1

	out := make([]byte, 8)
	for j := range out {
		out[j] = checksumCharset[(c>>(5*(7-j)))&31]
	}
	return string(out), nil
}

// withChecksum appends "#<checksum>" to desc.
func withChecksum(desc string) string {
	sum, err := descriptorChecksum(desc)
	if err != nil {
		// Descriptors built by this package only use charset characters.
		return desc
	}
	return desc + "#" + sum
}
