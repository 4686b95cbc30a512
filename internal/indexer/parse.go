package indexer

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseTxHashes converts string transaction hashes into common.Hash.
func ParseTxHashes(inputs []string) ([]common.Hash, error) {
	hashes := make([]common.Hash, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		data, err := hexutil.Decode(input)
		if err != nil {
			return nil, fmt.Errorf("invalid tx hash: %s", input)
		}
		if len(data) != common.HashLength {
			return nil, fmt.Errorf("invalid tx hash length: %s", input)
		}
		hashes = append(hashes, common.BytesToHash(data))
	}
	return hashes, nil
}
