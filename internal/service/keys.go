package service

import (
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/goodnatureofminers/btctoolkit/internal/keys"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

// KeyInfo describes a hex or WIF private key.
func (s *Toolkit) KeyInfo(priv string) (model.KeyInfo, error) {
	return observe(s, "key info", func() (model.KeyInfo, error) {
		k, err := keys.ParsePrivateKey(priv, s.network)
		if err != nil {
			return model.KeyInfo{}, err
		}
		return k.Info()
	})
}

// GenerateKey draws a new private key.
func (s *Toolkit) GenerateKey() (model.KeyInfo, error) {
	return observe(s, "generate key", func() (model.KeyInfo, error) {
		k, err := keys.GenerateKey(s.network)
		if err != nil {
			return model.KeyInfo{}, err
		}
		return k.Info()
	})
}

// PublicKeyInfo describes a serialized public key.
func (s *Toolkit) PublicKeyInfo(pub []byte) (model.PublicKeyInfo, error) {
	return observe(s, "public key info", func() (model.PublicKeyInfo, error) {
		return keys.PublicKeyInfo(pub, s.network)
	})
}

// ExtendedKeyInfo describes an xpub or xprv, derived along path when path
// is not empty.
func (s *Toolkit) ExtendedKeyInfo(key, path string) (model.ExtendedKeyInfo, error) {
	return observe(s, "extended key info", func() (model.ExtendedKeyInfo, error) {
		k, err := keys.ParseExtendedKey(strings.TrimSpace(key))
		if err != nil {
			return model.ExtendedKeyInfo{}, err
		}
		return deriveInfo(k, path)
	})
}

// MasterKey stretches a mnemonic into the master key of s's network and
// derives it along path.
func (s *Toolkit) MasterKey(mnemonic, passphrase, path string) (model.ExtendedKeyInfo, error) {
	return observe(s, "master key", func() (model.ExtendedKeyInfo, error) {
		seed, err := keys.SeedFromMnemonic(keys.SplitMnemonic(mnemonic), passphrase)
		if err != nil {
			return model.ExtendedKeyInfo{}, err
		}
		k, err := keys.MasterFromSeed(seed, s.network)
		if err != nil {
			return model.ExtendedKeyInfo{}, err
		}
		return deriveInfo(k, path)
	})
}

func deriveInfo(k keys.ExtendedKey, path string) (model.ExtendedKeyInfo, error) {
	if strings.TrimSpace(path) != "" {
		p, err := keys.ParseDerivationPath(path)
		if err != nil {
			return model.ExtendedKeyInfo{}, err
		}
		if k, err = keys.Derive(k, p); err != nil {
			return model.ExtendedKeyInfo{}, err
		}
	}
	return k.Info()
}

// MnemonicInfo validates a mnemonic and reports its entropy and seed.
func (s *Toolkit) MnemonicInfo(mnemonic, passphrase string) (model.MnemonicInfo, error) {
	return observe(s, "mnemonic info", func() (model.MnemonicInfo, error) {
		return keys.MnemonicInfo(keys.SplitMnemonic(mnemonic), passphrase)
	})
}

// NewMnemonic generates a mnemonic from entropyBits of fresh randomness.
func (s *Toolkit) NewMnemonic(entropyBits int, passphrase string) (model.MnemonicInfo, error) {
	return observe(s, "new mnemonic", func() (model.MnemonicInfo, error) {
		words, err := keys.NewMnemonic(entropyBits)
		if err != nil {
			return model.MnemonicInfo{}, err
		}
		return keys.MnemonicInfo(words, passphrase)
	})
}

// SignECDSA signs a 32-byte digest.
func (s *Toolkit) SignECDSA(priv string, msg []byte, reverse bool) (model.SignatureInfo, error) {
	return observe(s, "ecdsa sign", func() (model.SignatureInfo, error) {
		k, err := keys.ParsePrivateKey(priv, s.network)
		if err != nil {
			return model.SignatureInfo{}, err
		}
		return keys.SignECDSA(k, msg, reverse)
	})
}

// VerifyECDSA checks a DER or compact signature.
func (s *Toolkit) VerifyECDSA(pub, msg, sig []byte, reverse bool) (keys.Verification, error) {
	return observe(s, "ecdsa verify", func() (keys.Verification, error) {
		pk, err := keys.ParsePublicKey(pub)
		if err != nil {
			return keys.Verification{}, err
		}
		return keys.VerifyECDSA(pk, msg, sig, reverse)
	})
}

// SignSchnorr signs a 32-byte digest with BIP340.
func (s *Toolkit) SignSchnorr(priv string, msg []byte, reverse bool) ([]byte, error) {
	return observe(s, "schnorr sign", func() ([]byte, error) {
		k, err := keys.ParsePrivateKey(priv, s.network)
		if err != nil {
			return nil, err
		}
		return keys.SignSchnorr(k, msg, reverse)
	})
}

// VerifySchnorr checks a BIP340 signature against an x-only key.
func (s *Toolkit) VerifySchnorr(xonly, msg, sig []byte, reverse bool) (keys.Verification, error) {
	return observe(s, "schnorr verify", func() (keys.Verification, error) {
		return keys.VerifySchnorr(xonly, msg, sig, reverse)
	})
}

// NegatePublicKey returns -P.
func (s *Toolkit) NegatePublicKey(pub []byte) (model.PublicKeyInfo, error) {
	return observe(s, "negate public key", func() (model.PublicKeyInfo, error) {
		pk, err := keys.ParsePublicKey(pub)
		if err != nil {
			return model.PublicKeyInfo{}, err
		}
		return keys.PublicKeyInfo(keys.NegatePublicKey(pk), s.network)
	})
}

// TweakAddPublicKey returns P + t·G.
func (s *Toolkit) TweakAddPublicKey(pub, tweak []byte) (model.PublicKeyInfo, error) {
	return observe(s, "tweak public key", func() (model.PublicKeyInfo, error) {
		pk, err := keys.ParsePublicKey(pub)
		if err != nil {
			return model.PublicKeyInfo{}, err
		}
		sum, err := keys.TweakAddPublicKey(pk, tweak)
		if err != nil {
			return model.PublicKeyInfo{}, err
		}
		return keys.PublicKeyInfo(sum.SerializeCompressed(), s.network)
	})
}

// CombinePublicKeys returns the point sum of pubs.
func (s *Toolkit) CombinePublicKeys(pubs [][]byte) (model.PublicKeyInfo, error) {
	return observe(s, "combine public keys", func() (model.PublicKeyInfo, error) {
		parsed := make([]*btcec.PublicKey, 0, len(pubs))
		for _, b := range pubs {
			pk, err := keys.ParsePublicKey(b)
			if err != nil {
				return model.PublicKeyInfo{}, err
			}
			parsed = append(parsed, pk)
		}
		sum, err := keys.CombinePublicKeys(parsed...)
		if err != nil {
			return model.PublicKeyInfo{}, err
		}
		return keys.PublicKeyInfo(sum.SerializeCompressed(), s.network)
	})
}
