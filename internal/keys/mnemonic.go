// Package keys handles BIP32 extended keys, BIP39 mnemonics and raw
// secp256k1 keys.
package keys

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"github.com/tyler-smith/go-bip39"
)

var wordIndex = func() map[string]struct{} {
	m := make(map[string]struct{}, 2048)
	for _, w := range bip39.GetWordList() {
		m[w] = struct{}{}
	}
	return m
}()

// SeedFromMnemonic checks the words against the English list and the
// checksum, then stretches them with passphrase into a 64-byte seed.
func SeedFromMnemonic(words []string, passphrase string) ([]byte, error) {
	const op = "seed from mnemonic"
	if n := len(words); n < 12 || n > 24 || n%3 != 0 {
		return nil, model.Errorf(model.ErrInvalidMnemonic, op, "length", "unexpected word count %d", n)
	}
	for i, w := range words {
		if _, ok := wordIndex[w]; !ok {
			return nil, model.Errorf(model.ErrInvalidMnemonic, op, w, "word %d is not in the word list", i+1)
		}
	}
	mnemonic := strings.Join(words, " ")
	if _, err := bip39.EntropyFromMnemonic(mnemonic); err != nil {
		if errors.Is(err, bip39.ErrChecksumIncorrect) {
			return nil, model.NewError(model.ErrInvalidMnemonic, op, "checksum", err)
		}
		return nil, model.NewError(model.ErrInvalidMnemonic, op, "mnemonic", err)
	}
	return bip39.NewSeed(mnemonic, passphrase), nil
}

// SplitMnemonic splits a space separated phrase into words.
func SplitMnemonic(phrase string) []string {
	return strings.Fields(strings.ToLower(phrase))
}

// NewMnemonic draws entropyBits of randomness and returns its mnemonic.
func NewMnemonic(entropyBits int) ([]string, error) {
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return nil, model.NewError(model.ErrInvalidMnemonic, "new mnemonic", "entropy", err)
	}
	return MnemonicFromEntropy(entropy)
}

// MnemonicFromEntropy encodes 16 to 32 bytes of entropy as words.
func MnemonicFromEntropy(entropy []byte) ([]string, error) {
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, model.NewError(model.ErrInvalidMnemonic, "mnemonic from entropy", "entropy", err)
	}
	return strings.Fields(mnemonic), nil
}

// MnemonicInfo returns the entropy and seed behind words.
func MnemonicInfo(words []string, passphrase string) (model.MnemonicInfo, error) {
	seed, err := SeedFromMnemonic(words, passphrase)
	if err != nil {
		return model.MnemonicInfo{}, err
	}
	entropy, err := bip39.EntropyFromMnemonic(strings.Join(words, " "))
	if err != nil {
		return model.MnemonicInfo{}, fmt.Errorf("entropy from mnemonic: %w", err)
	}
	return model.MnemonicInfo{
		Words:   append([]string{}, words...),
		Entropy: hex.EncodeToString(entropy),
		Seed:    hex.EncodeToString(seed),
	}, nil
}
