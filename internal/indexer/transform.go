package indexer

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type txRef struct {
	hash        common.Hash
	blockNumber uint64
	txIndex     uint
}

// groupByTx returns the distinct transactions of logs in chain order.
// Logs removed by a reorg are ignored.
func groupByTx(logs []types.Log) []txRef {
	seen := make(map[common.Hash]struct{}, len(logs))
	refs := make([]txRef, 0)
	for _, log := range logs {
		if log.Removed {
			continue
		}
		if _, ok := seen[log.TxHash]; ok {
			continue
		}
		seen[log.TxHash] = struct{}{}
		refs = append(refs, txRef{hash: log.TxHash, blockNumber: log.BlockNumber, txIndex: log.TxIndex})
	}
	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].blockNumber != refs[j].blockNumber {
			return refs[i].blockNumber < refs[j].blockNumber
		}
		return refs[i].txIndex < refs[j].txIndex
	})
	return refs
}
