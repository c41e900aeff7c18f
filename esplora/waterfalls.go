// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package esplora

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
)

type waterfallsTx struct {
	Txid   string `json:"txid"`
	Height uint32 `json:"height"`
}

type waterfallsResponse struct {
	// TxsSeen maps each requested descriptor to one history list per
	// derivation index.
	TxsSeen map[string][][]waterfallsTx `json:"txs_seen"`
	Page    uint32                      `json:"page"`
	Tip     string                      `json:"tip"`
}

// waterfallsHistory asks the server for the history of every script of a
// single chain descriptor. The server applies its own gap limit.
//
// TODO: request page=1.. when a descriptor has more history than the server
// returns in one page.
func (c *Client) waterfallsHistory(ctx context.Context, descriptor string) ([][]historyEntry, error) {
	var resp waterfallsResponse
	path := "/v2/waterfalls?descriptor=" + url.QueryEscape(descriptor)
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	if len(resp.TxsSeen) > 1 {
		return nil, errors.Errorf("waterfalls returned %d descriptors, asked for one", len(resp.TxsSeen))
	}

	var byIndex [][]historyEntry
	for _, scripts := range resp.TxsSeen {
		byIndex = make([][]historyEntry, len(scripts))
		for i, txs := range scripts {
			entries := make([]historyEntry, 0, len(txs))
			for _, tx := range txs {
				entries = append(entries, historyEntry{Txid: tx.Txid, Height: tx.Height})
			}
			byIndex[i] = entries
		}
	}
	return byIndex, nil
}
