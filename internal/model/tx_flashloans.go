package model

// TxFlashloans is the detection output for one transaction.
type TxFlashloans struct {
	ChainID     uint64            `json:"chain_id"`
	BlockNumber uint64            `json:"block_number"`
	TxHash      string            `json:"tx_hash"`
	Protocols   []string          `json:"protocols"`
	Flashloans  []FlashloanRecord `json:"flashloans"`
	Errors      []string          `json:"errors,omitempty"`
}
