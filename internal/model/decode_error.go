package model

// DecodeError records a log or call frame that matched a known selector but failed to decode.
type DecodeError struct {
	ChainID     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	Source      string `json:"source"`
	Index       uint64 `json:"index"`
	Address     string `json:"address"`
	Selector    string `json:"selector"`
	Error       string `json:"error"`
}
