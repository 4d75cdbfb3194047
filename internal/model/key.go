package model

// KeyInfo describes a private key and everything derived from it.
type KeyInfo struct {
	RawPrivateKey         string    `json:"raw_private_key"`
	WIFPrivateKey         string    `json:"wif_private_key,omitempty"`
	PublicKey             string    `json:"public_key"`
	XOnlyPublicKey        string    `json:"xonly_public_key"`
	UncompressedPublicKey string    `json:"uncompressed_public_key"`
	Addresses             Addresses `json:"addresses"`
}

// PublicKeyInfo describes a public key in all its encodings.
type PublicKeyInfo struct {
	PublicKey             string    `json:"public_key"`
	UncompressedPublicKey string    `json:"uncompressed_public_key"`
	XOnlyPublicKey        string    `json:"xonly_public_key"`
	Addresses             Addresses `json:"addresses"`
}

// ExtendedKeyInfo describes a BIP32 extended key.
type ExtendedKeyInfo struct {
	Network           Network   `json:"network"`
	Depth             uint8     `json:"depth"`
	ParentFingerprint string    `json:"parent_fingerprint"`
	ChildNumber       uint32    `json:"child_number"`
	Hardened          bool      `json:"hardened"`
	Fingerprint       string    `json:"fingerprint"`
	Identifier        string    `json:"identifier"`
	ChainCode         string    `json:"chain_code"`
	Xpub              string    `json:"xpub"`
	Xpriv             string    `json:"xpriv,omitempty"`
	PublicKey         string    `json:"public_key"`
	PrivateKey        string    `json:"private_key,omitempty"`
	Path              string    `json:"path,omitempty"`
	Addresses         Addresses `json:"addresses"`
}

// MnemonicInfo describes a BIP39 mnemonic and the seed it stretches to.
type MnemonicInfo struct {
	Words   []string `json:"words"`
	Entropy string   `json:"entropy"`
	Seed    string   `json:"seed"`
}

// SignatureInfo carries an ECDSA signature in both wire forms.
type SignatureInfo struct {
	DER     string `json:"der"`
	Compact string `json:"compact"`
}
