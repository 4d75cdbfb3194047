package model

// AddressInfo is the result of inspecting an address string.
type AddressInfo struct {
	Network               Network    `json:"network"`
	Type                  string     `json:"type"`
	ScriptPubKey          ScriptInfo `json:"script_pub_key"`
	WitnessProgramVersion *int       `json:"witness_program_version,omitempty"`
	PubKeyHash            string     `json:"pubkey_hash,omitempty"`
	ScriptHash            string     `json:"script_hash,omitempty"`
	WitnessPubKeyHash     string     `json:"witness_pubkey_hash,omitempty"`
	WitnessScriptHash     string     `json:"witness_script_hash,omitempty"`
	TaprootOutputKey      string     `json:"taproot_output_key,omitempty"`
	WitnessProgram        string     `json:"witness_program,omitempty"`
}

// Addresses lists every address form derivable from a key or a script.
type Addresses struct {
	P2PKH    string `json:"p2pkh,omitempty"`
	P2WPKH   string `json:"p2wpkh,omitempty"`
	P2SHWPKH string `json:"p2shwpkh,omitempty"`
	P2SH     string `json:"p2sh,omitempty"`
	P2WSH    string `json:"p2wsh,omitempty"`
	P2SHWSH  string `json:"p2shwsh,omitempty"`
	P2TR     string `json:"p2tr,omitempty"`
}
