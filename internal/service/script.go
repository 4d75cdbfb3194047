package service

import (
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/goodnatureofminers/btctoolkit/internal/address"
	"github.com/goodnatureofminers/btctoolkit/internal/descriptor"
	"github.com/goodnatureofminers/btctoolkit/internal/inspect"
	"github.com/goodnatureofminers/btctoolkit/internal/keys"
	"github.com/goodnatureofminers/btctoolkit/internal/miniscript"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

// DecodeScript classifies and disassembles a script.
func (s *Toolkit) DecodeScript(raw []byte) (model.ScriptInfo, error) {
	return observe(s, "decode script", func() (model.ScriptInfo, error) {
		return inspect.Script(raw, s.network), nil
	})
}

// InspectAddress decodes an address into its script and payload.
func (s *Toolkit) InspectAddress(addr string) (model.AddressInfo, error) {
	return observe(s, "inspect address", func() (model.AddressInfo, error) {
		return address.Inspect(strings.TrimSpace(addr), s.network)
	})
}

// ScriptAddresses lists the addresses paying to a redeem or witness script.
// With taproot set, a p2tr address with a NUMS internal key built from
// entropy is included.
func (s *Toolkit) ScriptAddresses(raw []byte, taproot bool, entropy []byte) (model.Addresses, error) {
	return observe(s, "script addresses", func() (model.Addresses, error) {
		var internalKey *btcec.PublicKey
		if taproot {
			k, err := keys.NUMSKey(entropy)
			if err != nil {
				return model.Addresses{}, err
			}
			internalKey = k
		}
		return address.FromScript(raw, s.network, internalKey)
	})
}

// LiftScript returns the normalized semantic policy of a script.
func (s *Toolkit) LiftScript(raw []byte) (string, error) {
	return observe(s, "lift script", func() (string, error) {
		p, err := miniscript.Lift(raw)
		if err != nil {
			return "", err
		}
		return p.Normalized().String(), nil
	})
}

// CompilePolicy compiles a policy for the named script context.
func (s *Toolkit) CompilePolicy(policy, context string) (model.CompileInfo, error) {
	return observe(s, "compile policy", func() (model.CompileInfo, error) {
		ctx, err := parseContext(context)
		if err != nil {
			return model.CompileInfo{}, err
		}
		return miniscript.CompileInfo(policy, ctx)
	})
}

// PolicyInfo describes a policy and its compilations.
func (s *Toolkit) PolicyInfo(policy string) (model.PolicyInfo, error) {
	return observe(s, "policy info", func() (model.PolicyInfo, error) {
		return miniscript.PolicyInfo(policy)
	})
}

// MiniscriptInfo analyzes a miniscript given either as text or as the hex
// of its script.
func (s *Toolkit) MiniscriptInfo(ms, context string) (model.MiniscriptInfo, error) {
	return observe(s, "miniscript info", func() (model.MiniscriptInfo, error) {
		ctx, err := parseContext(context)
		if err != nil {
			return model.MiniscriptInfo{}, err
		}
		ms = strings.TrimSpace(ms)
		var node *miniscript.Node
		if raw, hexErr := hex.DecodeString(ms); hexErr == nil && len(raw) > 0 {
			node, err = miniscript.Decode(raw, ctx)
		} else {
			node, err = miniscript.Parse(ms, ctx)
		}
		if err != nil {
			return model.MiniscriptInfo{}, err
		}
		return miniscript.Info(node, ctx)
	})
}

// Descriptor parses an output descriptor and derives its scripts.
func (s *Toolkit) Descriptor(desc string) (model.DescriptorInfo, error) {
	return observe(s, "descriptor info", func() (model.DescriptorInfo, error) {
		return descriptor.Info(strings.TrimSpace(desc), s.network)
	})
}

// DescriptorChecksum returns desc with its checksum appended.
func (s *Toolkit) DescriptorChecksum(desc string) (string, error) {
	return observe(s, "descriptor checksum", func() (string, error) {
		return descriptor.AddChecksum(strings.TrimSpace(desc))
	})
}

func parseContext(s string) (miniscript.Context, error) {
	if s == "" {
		return miniscript.SegwitV0, nil
	}
	ctx, err := miniscript.ParseContext(s)
	if err != nil {
		return 0, model.NewError(model.ErrInvalidEncoding, "parse script context", "context", err)
	}
	return ctx, nil
}
