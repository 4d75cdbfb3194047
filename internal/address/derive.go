package address

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"github.com/goodnatureofminers/btctoolkit/internal/script"
)

// FromPublicKey lists the addresses paying to a single key. Segwit forms
// are only produced for compressed keys.
func FromPublicKey(pubKey []byte, network model.Network) (model.Addresses, error) {
	const op = "addresses from public key"
	pub, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return model.Addresses{}, model.NewError(model.ErrInvalidEncoding, op, "public key", err)
	}
	var addrs model.Addresses
	hash := btcutil.Hash160(pubKey)

	pkh, err := script.PayToPubKeyHash(hash)
	if err != nil {
		return model.Addresses{}, err
	}
	if addrs.P2PKH, err = ScriptToAddress(pkh, network); err != nil {
		return model.Addresses{}, err
	}
	if len(pubKey) != btcec.PubKeyBytesLenCompressed {
		return addrs, nil
	}

	wpkh, err := script.PayToWitnessPubKeyHash(hash)
	if err != nil {
		return model.Addresses{}, err
	}
	if addrs.P2WPKH, err = ScriptToAddress(wpkh, network); err != nil {
		return model.Addresses{}, err
	}
	shwpkh, err := script.PayToScriptHash(btcutil.Hash160(wpkh))
	if err != nil {
		return model.Addresses{}, err
	}
	if addrs.P2SHWPKH, err = ScriptToAddress(shwpkh, network); err != nil {
		return model.Addresses{}, err
	}

	tr, err := script.PayToTaproot(schnorr.SerializePubKey(txscript.ComputeTaprootKeyNoScript(pub)))
	if err != nil {
		return model.Addresses{}, err
	}
	if addrs.P2TR, err = ScriptToAddress(tr, network); err != nil {
		return model.Addresses{}, err
	}
	return addrs, nil
}

// FromScript lists the addresses paying to a redeem or witness script. When
// internalKey is set, a taproot address committing to the script as its
// single leaf is added.
func FromScript(redeemScript []byte, network model.Network, internalKey *btcec.PublicKey) (model.Addresses, error) {
	s := script.New(redeemScript)
	var addrs model.Addresses

	sh, err := script.PayToScriptHash(s.Hash160())
	if err != nil {
		return model.Addresses{}, err
	}
	if addrs.P2SH, err = ScriptToAddress(sh, network); err != nil {
		return model.Addresses{}, err
	}
	wsh, err := script.PayToWitnessScriptHash(s.WitnessHash())
	if err != nil {
		return model.Addresses{}, err
	}
	if addrs.P2WSH, err = ScriptToAddress(wsh, network); err != nil {
		return model.Addresses{}, err
	}
	shwsh, err := script.PayToScriptHash(btcutil.Hash160(wsh))
	if err != nil {
		return model.Addresses{}, err
	}
	if addrs.P2SHWSH, err = ScriptToAddress(shwsh, network); err != nil {
		return model.Addresses{}, err
	}

	if internalKey != nil {
		tr, err := TaprootScript(redeemScript, internalKey)
		if err != nil {
			return model.Addresses{}, err
		}
		if addrs.P2TR, err = ScriptToAddress(tr, network); err != nil {
			return model.Addresses{}, err
		}
	}
	return addrs, nil
}

// TaprootScript returns the p2tr output committing to leaf under internalKey.
func TaprootScript(leaf []byte, internalKey *btcec.PublicKey) ([]byte, error) {
	tree := txscript.AssembleTaprootScriptTree(txscript.NewBaseTapLeaf(leaf))
	root := tree.RootNode.TapHash()
	outputKey := txscript.ComputeTaprootOutputKey(internalKey, root[:])
	pkScript, err := script.PayToTaproot(schnorr.SerializePubKey(outputKey))
	if err != nil {
		return nil, fmt.Errorf("taproot output: %w", err)
	}
	return pkScript, nil
}
