package keys

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/goodnatureofminers/btctoolkit/internal/address"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

// PrivateKey is a secp256k1 secret with the compression flag and network it
// was encoded for.
type PrivateKey struct {
	Key        *btcec.PrivateKey
	Compressed bool
	Network    model.Network
}

// ParsePrivateKey accepts 64 hex characters or a WIF string. Hex keys are
// taken as compressed and bound to network.
func ParsePrivateKey(s string, network model.Network) (PrivateKey, error) {
	const op = "parse private key"
	s = strings.TrimSpace(s)
	if len(s) == 64 {
		if raw, err := hex.DecodeString(s); err == nil {
			return privateKeyFromBytes(raw, network)
		}
	}
	wif, err := btcutil.DecodeWIF(s)
	if err != nil {
		return PrivateKey{}, model.NewError(model.ErrInvalidEncoding, op, "key", err)
	}
	params, err := address.Params(network)
	if err != nil {
		return PrivateKey{}, model.NewError(model.ErrInvalidEncoding, op, "network", err)
	}
	if !wif.IsForNet(params) {
		return PrivateKey{}, model.Errorf(model.ErrInvalidEncoding, op, "network", "key is not for %s", network)
	}
	return PrivateKey{Key: wif.PrivKey, Compressed: wif.CompressPubKey, Network: network}, nil
}

func privateKeyFromBytes(raw []byte, network model.Network) (PrivateKey, error) {
	var scalar btcec.ModNScalar
	if overflow := scalar.SetByteSlice(raw); overflow || scalar.IsZero() {
		return PrivateKey{}, model.Errorf(model.ErrInvalidEncoding, "parse private key", "key", "scalar out of range")
	}
	priv, _ := btcec.PrivKeyFromBytes(raw)
	return PrivateKey{Key: priv, Compressed: true, Network: network}, nil
}

// GenerateKey draws a fresh compressed key.
func GenerateKey(network model.Network) (PrivateKey, error) {
	var raw [32]byte
	for {
		if _, err := rand.Read(raw[:]); err != nil {
			return PrivateKey{}, err
		}
		if k, err := privateKeyFromBytes(raw[:], network); err == nil {
			return k, nil
		}
	}
}

// PublicKey serializes the public key with the key's compression flag.
func (k PrivateKey) PublicKey() []byte {
	if k.Compressed {
		return k.Key.PubKey().SerializeCompressed()
	}
	return k.Key.PubKey().SerializeUncompressed()
}

// WIF encodes the key for its network.
func (k PrivateKey) WIF() (string, error) {
	params, err := address.Params(k.Network)
	if err != nil {
		return "", model.NewError(model.ErrInvalidEncoding, "encode wif", "network", err)
	}
	wif, err := btcutil.NewWIF(k.Key, params, k.Compressed)
	if err != nil {
		return "", model.NewError(model.ErrInvalidEncoding, "encode wif", "key", err)
	}
	return wif.String(), nil
}

// Info lists every encoding of the key and its addresses.
func (k PrivateKey) Info() (model.KeyInfo, error) {
	wif, err := k.WIF()
	if err != nil {
		return model.KeyInfo{}, err
	}
	pub := k.Key.PubKey()
	addrs, err := address.FromPublicKey(k.PublicKey(), k.Network)
	if err != nil {
		return model.KeyInfo{}, err
	}
	return model.KeyInfo{
		RawPrivateKey:         hex.EncodeToString(k.Key.Serialize()),
		WIFPrivateKey:         wif,
		PublicKey:             hex.EncodeToString(k.PublicKey()),
		XOnlyPublicKey:        hex.EncodeToString(schnorr.SerializePubKey(pub)),
		UncompressedPublicKey: hex.EncodeToString(pub.SerializeUncompressed()),
		Addresses:             addrs,
	}, nil
}

// ParsePublicKey accepts a compressed or uncompressed key.
func ParsePublicKey(b []byte) (*btcec.PublicKey, error) {
	pub, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, model.NewError(model.ErrInvalidEncoding, "parse public key", "key", err)
	}
	return pub, nil
}

// PublicKeyInfo describes a serialized public key. Addresses follow the
// compression of the input.
func PublicKeyInfo(b []byte, network model.Network) (model.PublicKeyInfo, error) {
	pub, err := ParsePublicKey(b)
	if err != nil {
		return model.PublicKeyInfo{}, err
	}
	addrs, err := address.FromPublicKey(b, network)
	if err != nil {
		return model.PublicKeyInfo{}, err
	}
	return model.PublicKeyInfo{
		PublicKey:             hex.EncodeToString(pub.SerializeCompressed()),
		UncompressedPublicKey: hex.EncodeToString(pub.SerializeUncompressed()),
		XOnlyPublicKey:        hex.EncodeToString(schnorr.SerializePubKey(pub)),
		Addresses:             addrs,
	}, nil
}

// NegatePublicKey returns -P in compressed form.
func NegatePublicKey(pub *btcec.PublicKey) []byte {
	b := pub.SerializeCompressed()
	b[0] ^= 0x01
	return b
}

// TweakAddPublicKey returns P + t·G for the 32-byte scalar t.
func TweakAddPublicKey(pub *btcec.PublicKey, tweak []byte) (*btcec.PublicKey, error) {
	const op = "tweak public key"
	if len(tweak) != 32 {
		return nil, model.Errorf(model.ErrInvalidEncoding, op, "tweak", "unexpected length %d", len(tweak))
	}
	var t btcec.ModNScalar
	if overflow := t.SetByteSlice(tweak); overflow {
		return nil, model.Errorf(model.ErrInvalidEncoding, op, "tweak", "scalar out of range")
	}
	var p, tg, sum btcec.JacobianPoint
	pub.AsJacobian(&p)
	btcec.ScalarBaseMultNonConst(&t, &tg)
	btcec.AddNonConst(&p, &tg, &sum)
	return affine(op, &sum)
}

// CombinePublicKeys returns the point sum of keys. It is not MuSig2.
func CombinePublicKeys(keys ...*btcec.PublicKey) (*btcec.PublicKey, error) {
	const op = "combine public keys"
	if len(keys) == 0 {
		return nil, model.Errorf(model.ErrInvalidEncoding, op, "keys", "no keys given")
	}
	var sum btcec.JacobianPoint
	keys[0].AsJacobian(&sum)
	for _, k := range keys[1:] {
		var p, next btcec.JacobianPoint
		k.AsJacobian(&p)
		btcec.AddNonConst(&sum, &p, &next)
		sum = next
	}
	return affine(op, &sum)
}

func affine(op string, p *btcec.JacobianPoint) (*btcec.PublicKey, error) {
	if (p.X.IsZero() && p.Y.IsZero()) || p.Z.IsZero() {
		return nil, model.Errorf(model.ErrInvalidEncoding, op, "result", "point at infinity")
	}
	p.ToAffine()
	return btcec.NewPublicKey(&p.X, &p.Y), nil
}

// NUMSKey returns H + e·G where H is the BIP341 point with no known
// discrete logarithm. Empty or zero entropy yields H itself.
func NUMSKey(entropy []byte) (*btcec.PublicKey, error) {
	if len(entropy) == 0 {
		return numsH, nil
	}
	var e btcec.ModNScalar
	if len(entropy) == 32 && !e.SetByteSlice(entropy) && e.IsZero() {
		return numsH, nil
	}
	return TweakAddPublicKey(numsH, entropy)
}

var numsH = func() *btcec.PublicKey {
	b, _ := hex.DecodeString("0250929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac0")
	pub, err := btcec.ParsePubKey(b)
	if err != nil {
		panic(err)
	}
	return pub
}()
