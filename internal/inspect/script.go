// Package inspect renders decoded transactions and scripts into their
// JSON-friendly info forms.
package inspect

import (
	"encoding/hex"

	"github.com/goodnatureofminers/btctoolkit/internal/address"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"github.com/goodnatureofminers/btctoolkit/internal/script"
)

// Script describes a locking script: hex, disassembly, type and, when one
// exists for the network, its address.
func Script(b []byte, network model.Network) model.ScriptInfo {
	s := script.New(b)
	info := model.ScriptInfo{
		Hex:  hex.EncodeToString(b),
		Asm:  s.Asm(),
		Type: s.Type().String(),
	}
	if addr, err := address.ScriptToAddress(b, network); err == nil {
		info.Address = addr
	}
	return info
}

// UnlockingScript describes a scriptSig. Unlocking scripts carry no type.
func UnlockingScript(b []byte) model.ScriptInfo {
	return model.ScriptInfo{
		Hex: hex.EncodeToString(b),
		Asm: script.New(b).Asm(),
	}
}
