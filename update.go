// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package wollet

import (
	"github.com/vulpemventures/go-elements/transaction"
)

// Update is the result of a chain scan. A Wallet merges it with ApplyUpdate.
type Update struct {
	// Transactions not yet known to the wallet, keyed by txid.
	Transactions map[string]*transaction.Transaction
	// Heights of every transaction touching the wallet; 0 is unconfirmed.
	Heights map[string]uint32
	// Tip is the chain height at scan time.
	Tip uint32
	// NextIndex is the first unused derivation index per chain.
	NextIndex [2]uint32
}

// Empty reports whether u carries nothing beyond the tip.
func (u *Update) Empty() bool {
	return u == nil || (len(u.Transactions) == 0 && len(u.Heights) == 0)
}
