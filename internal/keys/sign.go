package keys

import (
	"encoding/hex"
	"slices"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

// Verification is the outcome of checking a signature against a digest.
// ValidReversed is set when only the byte-reversed digest verifies, which
// usually means a txid-style hash was passed in display order.
type Verification struct {
	Valid         bool `json:"valid"`
	ValidReversed bool `json:"valid_reversed,omitempty"`
}

func digest(op string, msg []byte, reverse bool) ([]byte, error) {
	if len(msg) != 32 {
		return nil, model.Errorf(model.ErrInvalidEncoding, op, "message", "expected a 32-byte digest, got %d bytes", len(msg))
	}
	d := slices.Clone(msg)
	if reverse {
		slices.Reverse(d)
	}
	return d, nil
}

// SignECDSA signs a 32-byte digest deterministically (RFC6979).
func SignECDSA(k PrivateKey, msg []byte, reverse bool) (model.SignatureInfo, error) {
	const op = "ecdsa sign"
	d, err := digest(op, msg, reverse)
	if err != nil {
		return model.SignatureInfo{}, err
	}
	der := ecdsa.Sign(k.Key, d).Serialize()
	compact := ecdsa.SignCompact(k.Key, d, true)
	return model.SignatureInfo{
		DER:     hex.EncodeToString(der),
		Compact: hex.EncodeToString(compact[1:]),
	}, nil
}

// VerifyECDSA checks a DER or 64-byte compact signature. Unless reverse is
// set the reversed digest is tried as a hint.
func VerifyECDSA(pub *btcec.PublicKey, msg, sig []byte, reverse bool) (Verification, error) {
	const op = "ecdsa verify"
	d, err := digest(op, msg, reverse)
	if err != nil {
		return Verification{}, err
	}
	s, err := parseECDSASignature(sig)
	if err != nil {
		return Verification{}, model.NewError(model.ErrInvalidEncoding, op, "signature", err)
	}
	if s.Verify(d, pub) {
		return Verification{Valid: true}, nil
	}
	slices.Reverse(d)
	return Verification{ValidReversed: s.Verify(d, pub)}, nil
}

func parseECDSASignature(sig []byte) (*ecdsa.Signature, error) {
	if len(sig) != 64 {
		return ecdsa.ParseDERSignature(sig)
	}
	var r, s btcec.ModNScalar
	if r.SetByteSlice(sig[:32]) || s.SetByteSlice(sig[32:]) || r.IsZero() || s.IsZero() {
		return nil, model.Errorf(model.ErrInvalidEncoding, "parse compact signature", "signature", "scalar out of range")
	}
	return ecdsa.NewSignature(&r, &s), nil
}

// SignSchnorr produces a BIP340 signature over a 32-byte digest.
func SignSchnorr(k PrivateKey, msg []byte, reverse bool) ([]byte, error) {
	const op = "schnorr sign"
	d, err := digest(op, msg, reverse)
	if err != nil {
		return nil, err
	}
	sig, err := schnorr.Sign(k.Key, d)
	if err != nil {
		return nil, model.NewError(model.ErrInvalidEncoding, op, "signature", err)
	}
	return sig.Serialize(), nil
}

// VerifySchnorr checks a BIP340 signature against a 32-byte x-only key.
func VerifySchnorr(xonly, msg, sig []byte, reverse bool) (Verification, error) {
	const op = "schnorr verify"
	d, err := digest(op, msg, reverse)
	if err != nil {
		return Verification{}, err
	}
	pub, err := schnorr.ParsePubKey(xonly)
	if err != nil {
		return Verification{}, model.NewError(model.ErrInvalidEncoding, op, "public key", err)
	}
	s, err := schnorr.ParseSignature(sig)
	if err != nil {
		return Verification{}, model.NewError(model.ErrInvalidEncoding, op, "signature", err)
	}
	if s.Verify(d, pub) {
		return Verification{Valid: true}, nil
	}
	slices.Reverse(d)
	return Verification{ValidReversed: s.Verify(d, pub)}, nil
}
