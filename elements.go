// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package wollet

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements/transaction"
)

// Commitment prefixes for explicit (unblinded) assets and values.
const (
	explicitPrefix   = 0x01
	explicitValueLen = 9
	explicitAssetLen = 33
	commitmentLen    = 33
)

// zeroBlinder is the blinding factor of an explicit output.
var zeroBlinder = make([]byte, 32)

// hashString renders a 32 byte hash (txid, asset id) in display order.
func hashString(b []byte) string {
	h, err := chainhash.NewHash(b)
	if err != nil {
		return hex.EncodeToString(b)
	}
	return h.String()
}

// txid returns the display txid of tx.
func txid(tx *transaction.Transaction) string {
	h := tx.TxHash()
	return h.String()
}

// explicitValue decodes a 9 byte explicit value. ok is false for
// confidential commitments.
func explicitValue(b []byte) (uint64, bool) {
	if len(b) != explicitValueLen || b[0] != explicitPrefix {
		return 0, false
	}
	return binary.BigEndian.Uint64(b[1:]), true
}

// explicitAsset decodes a 33 byte explicit asset into its display id.
func explicitAsset(b []byte) (string, bool) {
	if len(b) != explicitAssetLen || b[0] != explicitPrefix {
		return "", false
	}
	return hashString(b[1:]), true
}

// isConfidential reports whether out carries blinded commitments.
func isConfidential(out *transaction.TxOutput) bool {
	_, explicitV := explicitValue(out.Value)
	_, explicitA := explicitAsset(out.Asset)
	return !explicitV || !explicitA
}

// isBurn reports whether out is a provably unspendable OP_RETURN output.
func isBurn(out *transaction.TxOutput) bool {
	return len(out.Script) > 0 && out.Script[0] == txscript.OP_RETURN
}

// isFee reports whether out is the explicit fee output of an Elements tx.
func isFee(out *transaction.TxOutput) bool {
	return len(out.Script) == 0
}

// burnScript returns the OP_RETURN script used for burn outputs.
func burnScript() []byte {
	script, _ := txscript.NewScriptBuilder().AddOp(txscript.OP_RETURN).Script()
	return script
}

func isNull(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// parseTxid validates a display txid.
func parseTxid(s string) (*chainhash.Hash, error) {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid txid %q", s)
	}
	return h, nil
}
