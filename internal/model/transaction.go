package model

// TransactionInfo is the inspectable form of a decoded transaction.
type TransactionInfo struct {
	TxID             string       `json:"txid"`
	WTxID            string       `json:"wtxid"`
	Size             int          `json:"size"`
	Weight           int64        `json:"weight"`
	VSize            int64        `json:"vsize"`
	Version          int32        `json:"version"`
	LockTime         uint32       `json:"locktime"`
	Inputs           []InputInfo  `json:"inputs"`
	Outputs          []OutputInfo `json:"outputs"`
	TotalOutputValue int64        `json:"total_output_value"`
}

// InputInfo describes a single transaction input.
type InputInfo struct {
	Prevout   string     `json:"prevout"`
	TxID      string     `json:"txid"`
	Vout      uint32     `json:"vout"`
	ScriptSig ScriptInfo `json:"script_sig"`
	Sequence  uint32     `json:"sequence"`
	Witness   []string   `json:"witness,omitempty"`
}

// OutputInfo describes a single transaction output.
type OutputInfo struct {
	Value        int64      `json:"value"`
	ScriptPubKey ScriptInfo `json:"script_pub_key"`
}

// ScriptInfo describes a script and, for locking scripts, its classification.
type ScriptInfo struct {
	Hex     string `json:"hex"`
	Asm     string `json:"asm"`
	Type    string `json:"type,omitempty"`
	Address string `json:"address,omitempty"`
}
