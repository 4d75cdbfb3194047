package keys

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/goodnatureofminers/btctoolkit/internal/address"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

// ExtendedKey is an immutable BIP32 key. Derivation returns new values.
type ExtendedKey struct {
	key     *hdkeychain.ExtendedKey
	network model.Network
	path    DerivationPath
}

// MasterFromSeed derives the master key from a BIP39 seed.
func MasterFromSeed(seed []byte, network model.Network) (ExtendedKey, error) {
	const op = "master key from seed"
	params, err := address.Params(network)
	if err != nil {
		return ExtendedKey{}, model.NewError(model.ErrInvalidDerivation, op, "network", err)
	}
	key, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return ExtendedKey{}, model.NewError(model.ErrInvalidDerivation, op, "seed", err)
	}
	return ExtendedKey{key: key, network: networkOf(params), path: DerivationPath{}}, nil
}

// ParseExtendedKey decodes an xpub/xprv style string. Test network
// prefixes are reported as testnet since regtest and signet share them.
func ParseExtendedKey(s string) (ExtendedKey, error) {
	key, err := hdkeychain.NewKeyFromString(s)
	if err != nil {
		return ExtendedKey{}, model.NewError(model.ErrInvalidEncoding, "parse extended key", "key", err)
	}
	network := model.Testnet
	if key.IsForNet(&chaincfg.MainNetParams) {
		network = model.Mainnet
	}
	return ExtendedKey{key: key, network: network}, nil
}

// Derive walks path from parent one step at a time. A hardened step from a
// public key fails with the index of the offending segment.
func Derive(parent ExtendedKey, path DerivationPath) (ExtendedKey, error) {
	key := parent.key
	for i, idx := range path {
		child, err := key.Derive(idx)
		if err != nil {
			field := fmt.Sprintf("segment %d (%s)", i, formatIndex(idx))
			return ExtendedKey{}, model.NewError(model.ErrInvalidDerivation, "derive", field, err)
		}
		key = child
	}
	out := ExtendedKey{key: key, network: parent.network}
	if parent.path != nil {
		out.path = append(append(DerivationPath{}, parent.path...), path...)
	}
	return out, nil
}

// Derive is a convenience for Derive(k, path).
func (k ExtendedKey) Derive(path DerivationPath) (ExtendedKey, error) {
	return Derive(k, path)
}

// Neuter returns the public form of the key.
func (k ExtendedKey) Neuter() (ExtendedKey, error) {
	pub, err := k.key.Neuter()
	if err != nil {
		return ExtendedKey{}, model.NewError(model.ErrInvalidDerivation, "neuter", "key", err)
	}
	return ExtendedKey{key: pub, network: k.network, path: k.path}, nil
}

func (k ExtendedKey) String() string {
	return k.key.String()
}

func (k ExtendedKey) IsPrivate() bool {
	return k.key.IsPrivate()
}

func (k ExtendedKey) Network() model.Network {
	return k.network
}

// Path is the derivation path from the master key, when known.
func (k ExtendedKey) Path() (DerivationPath, bool) {
	return k.path, k.path != nil
}

// PublicKey returns the compressed public key.
func (k ExtendedKey) PublicKey() ([]byte, error) {
	pub, err := k.key.ECPubKey()
	if err != nil {
		return nil, model.NewError(model.ErrInvalidEncoding, "extended public key", "key", err)
	}
	return pub.SerializeCompressed(), nil
}

// Fingerprint is the first four bytes of HASH160 of the public key.
func (k ExtendedKey) Fingerprint() ([4]byte, error) {
	var fp [4]byte
	pub, err := k.PublicKey()
	if err != nil {
		return fp, err
	}
	copy(fp[:], btcutil.Hash160(pub))
	return fp, nil
}

// Info describes the key and the addresses of its public key.
func (k ExtendedKey) Info() (model.ExtendedKeyInfo, error) {
	pub, err := k.PublicKey()
	if err != nil {
		return model.ExtendedKeyInfo{}, err
	}
	neutered, err := k.Neuter()
	if err != nil {
		return model.ExtendedKeyInfo{}, err
	}
	addrs, err := address.FromPublicKey(pub, k.network)
	if err != nil {
		return model.ExtendedKeyInfo{}, err
	}
	var parent [4]byte
	binary.BigEndian.PutUint32(parent[:], k.key.ParentFingerprint())
	id := btcutil.Hash160(pub)

	info := model.ExtendedKeyInfo{
		Network:           k.network,
		Depth:             k.key.Depth(),
		ParentFingerprint: hex.EncodeToString(parent[:]),
		ChildNumber:       k.key.ChildIndex(),
		Hardened:          k.key.ChildIndex() >= hdkeychain.HardenedKeyStart,
		Fingerprint:       hex.EncodeToString(id[:4]),
		Identifier:        hex.EncodeToString(id),
		ChainCode:         hex.EncodeToString(k.key.ChainCode()),
		Xpub:              neutered.String(),
		PublicKey:         hex.EncodeToString(pub),
		Addresses:         addrs,
	}
	if path, ok := k.Path(); ok {
		info.Path = path.String()
	}
	if k.key.IsPrivate() {
		info.Xpriv = k.key.String()
		priv, err := k.key.ECPrivKey()
		if err != nil {
			return model.ExtendedKeyInfo{}, model.NewError(model.ErrInvalidEncoding, "extended key info", "key", err)
		}
		info.PrivateKey = hex.EncodeToString(priv.Serialize())
	}
	return info, nil
}

func networkOf(params *chaincfg.Params) model.Network {
	switch params.Name {
	case chaincfg.MainNetParams.Name:
		return model.Mainnet
	case chaincfg.RegressionNetParams.Name:
		return model.Regtest
	case chaincfg.SigNetParams.Name:
		return model.Signet
	default:
		return model.Testnet
	}
}
