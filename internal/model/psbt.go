package model

// PsbtInfo summarizes a partially signed transaction.
type PsbtInfo struct {
	TxID     string           `json:"txid"`
	Inputs   []PsbtInputInfo  `json:"inputs"`
	Outputs  []PsbtOutputInfo `json:"outputs"`
	Fee      *int64           `json:"fee,omitempty"`
	Complete bool             `json:"complete"`
}

// PsbtInputInfo summarizes one PSBT input.
type PsbtInputInfo struct {
	Prevout            string   `json:"prevout"`
	State              string   `json:"state"`
	ScriptType         string   `json:"script_type,omitempty"`
	Value              *int64   `json:"value,omitempty"`
	PartialSigs        []string `json:"partial_sigs,omitempty"`
	RedeemScript       string   `json:"redeem_script,omitempty"`
	WitnessScript      string   `json:"witness_script,omitempty"`
	FinalScriptSig     string   `json:"final_script_sig,omitempty"`
	FinalScriptWitness []string `json:"final_script_witness,omitempty"`
	Derivations        []string `json:"derivations,omitempty"`
}

// PsbtOutputInfo summarizes one PSBT output.
type PsbtOutputInfo struct {
	Value        int64      `json:"value"`
	ScriptPubKey ScriptInfo `json:"script_pub_key"`
	Derivations  []string   `json:"derivations,omitempty"`
}
