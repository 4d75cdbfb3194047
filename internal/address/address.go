package address

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"github.com/goodnatureofminers/btctoolkit/internal/script"
)

var segwitHRPs = []string{
	chaincfg.MainNetParams.Bech32HRPSegwit,
	chaincfg.TestNet3Params.Bech32HRPSegwit,
	chaincfg.RegressionNetParams.Bech32HRPSegwit,
}

// ScriptToAddress encodes an output script for network. Key and script
// hashes use base58check, witness version 0 uses bech32 and later versions
// use bech32m.
func ScriptToAddress(pkScript []byte, network model.Network) (string, error) {
	const op = "script to address"
	params, err := Params(network)
	if err != nil {
		return "", model.NewError(model.ErrUnencodableScript, op, "network", err)
	}
	s := script.New(pkScript)
	switch s.Type() {
	case script.P2PKH:
		return base58.CheckEncode(s.Payload(), params.PubKeyHashAddrID), nil
	case script.P2SH:
		return base58.CheckEncode(s.Payload(), params.ScriptHashAddrID), nil
	case script.P2WPKH, script.P2WSH, script.P2TR, script.WitnessUnknown:
		version, program, _ := s.WitnessProgram()
		addr, err := encodeSegwit(params.Bech32HRPSegwit, version, program)
		if err != nil {
			return "", model.NewError(model.ErrUnencodableScript, op, "witness program", err)
		}
		return addr, nil
	default:
		return "", model.Errorf(model.ErrUnencodableScript, op, "script", "%s script has no address form", s.Type())
	}
}

// AddressToScript decodes addr and returns the output script it pays to.
// The address must belong to network.
func AddressToScript(addr string, network model.Network) ([]byte, error) {
	params, err := Params(network)
	if err != nil {
		return nil, model.NewError(model.ErrInvalidAddress, "address to script", "network", err)
	}
	pkScript, _, err := decode(addr, params)
	return pkScript, err
}

type decoded struct {
	kind     string
	version  int
	payload  []byte
	isSegwit bool
}

func decode(addr string, params *chaincfg.Params) ([]byte, decoded, error) {
	if looksSegwit(addr) {
		return decodeSegwit(addr, params)
	}
	return decodeBase58(addr, params)
}

func looksSegwit(addr string) bool {
	lower := strings.ToLower(addr)
	for _, hrp := range segwitHRPs {
		if strings.HasPrefix(lower, hrp+"1") {
			return true
		}
	}
	return false
}

func decodeBase58(addr string, params *chaincfg.Params) ([]byte, decoded, error) {
	const op = "decode base58 address"
	payload, version, err := base58.CheckDecode(addr)
	switch {
	case errors.Is(err, base58.ErrChecksum):
		return nil, decoded{}, model.NewError(model.ErrInvalidAddress, op, "checksum", err)
	case err != nil:
		return nil, decoded{}, model.NewError(model.ErrInvalidAddress, op, "encoding", err)
	case len(payload) != 20:
		return nil, decoded{}, model.Errorf(model.ErrInvalidAddress, op, "payload", "unexpected length %d", len(payload))
	}

	var (
		pkScript []byte
		kind     string
	)
	switch version {
	case params.PubKeyHashAddrID:
		pkScript, err = script.PayToPubKeyHash(payload)
		kind = script.P2PKH.String()
	case params.ScriptHashAddrID:
		pkScript, err = script.PayToScriptHash(payload)
		kind = script.P2SH.String()
	default:
		if chaincfg.IsPubKeyHashAddrID(version) || chaincfg.IsScriptHashAddrID(version) {
			return nil, decoded{}, model.Errorf(model.ErrInvalidAddress, op, "network", "address is not for %s", networkOf(params))
		}
		return nil, decoded{}, model.Errorf(model.ErrInvalidAddress, op, "prefix", "unknown version byte 0x%02x", version)
	}
	if err != nil {
		return nil, decoded{}, model.NewError(model.ErrInvalidAddress, op, "payload", err)
	}
	return pkScript, decoded{kind: kind, payload: payload, version: -1}, nil
}

func decodeSegwit(addr string, params *chaincfg.Params) ([]byte, decoded, error) {
	const op = "decode segwit address"
	hrp, data, variant, err := bech32.DecodeGeneric(addr)
	if err != nil {
		var checksumErr bech32.ErrInvalidChecksum
		if errors.As(err, &checksumErr) {
			return nil, decoded{}, model.NewError(model.ErrInvalidAddress, op, "checksum", err)
		}
		return nil, decoded{}, model.NewError(model.ErrInvalidAddress, op, "encoding", err)
	}
	if hrp != params.Bech32HRPSegwit {
		return nil, decoded{}, model.Errorf(model.ErrInvalidAddress, op, "network", "human readable part %q is not for %s", hrp, networkOf(params))
	}
	if len(data) < 1 {
		return nil, decoded{}, model.Errorf(model.ErrInvalidAddress, op, "witness version", "missing witness version")
	}
	version := int(data[0])
	if version > 16 {
		return nil, decoded{}, model.Errorf(model.ErrInvalidAddress, op, "witness version", "version %d out of range", version)
	}
	if version == 0 && variant != bech32.Version0 {
		return nil, decoded{}, model.Errorf(model.ErrInvalidAddress, op, "checksum", "witness version 0 requires bech32")
	}
	if version != 0 && variant != bech32.VersionM {
		return nil, decoded{}, model.Errorf(model.ErrInvalidAddress, op, "checksum", "witness version %d requires bech32m", version)
	}
	program, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return nil, decoded{}, model.NewError(model.ErrInvalidAddress, op, "witness program", err)
	}
	if len(program) < 2 || len(program) > 40 {
		return nil, decoded{}, model.Errorf(model.ErrInvalidAddress, op, "witness program", "unexpected length %d", len(program))
	}
	if version == 0 && len(program) != 20 && len(program) != 32 {
		return nil, decoded{}, model.Errorf(model.ErrInvalidAddress, op, "witness program", "unexpected length %d for version 0", len(program))
	}
	pkScript, err := script.PayToWitness(version, program)
	if err != nil {
		return nil, decoded{}, model.NewError(model.ErrInvalidAddress, op, "witness program", err)
	}
	return pkScript, decoded{kind: script.Classify(pkScript).String(), version: version, payload: program, isSegwit: true}, nil
}

func encodeSegwit(hrp string, version int, program []byte) (string, error) {
	conv, err := bech32.ConvertBits(program, 8, 5, true)
	if err != nil {
		return "", err
	}
	data := append([]byte{byte(version)}, conv...)
	if version == 0 {
		return bech32.Encode(hrp, data)
	}
	addr, err := bech32.EncodeM(hrp, data)
	if err != nil {
		return "", fmt.Errorf("encode bech32m: %w", err)
	}
	return addr, nil
}
