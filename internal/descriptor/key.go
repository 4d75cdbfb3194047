package descriptor

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/goodnatureofminers/btctoolkit/internal/keys"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

// KeyOrigin is the optional [fingerprint/path] prefix of a key expression.
type KeyOrigin struct {
	Fingerprint [4]byte
	Path        keys.DerivationPath
}

func (o KeyOrigin) String() string {
	return fmt.Sprintf("[%x%s]", o.Fingerprint, strings.TrimPrefix(o.Path.String(), "m"))
}

// Key is a resolved key expression.
type Key struct {
	Expr   string
	Origin *KeyOrigin
	PubKey []byte
}

func parseOrigin(s string) (*KeyOrigin, string, error) {
	if !strings.HasPrefix(s, "[") {
		return nil, s, nil
	}
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return nil, "", fmt.Errorf("unterminated key origin in %q", s)
	}
	fpHex, pathStr, _ := strings.Cut(s[1:end], "/")
	fp, err := hex.DecodeString(fpHex)
	if err != nil || len(fp) != 4 {
		return nil, "", fmt.Errorf("key origin fingerprint %q is not 8 hex characters", fpHex)
	}
	path, err := keys.ParseDerivationPath(pathStr)
	if err != nil {
		return nil, "", err
	}
	origin := &KeyOrigin{Path: path}
	copy(origin.Fingerprint[:], fp)
	return origin, s[end+1:], nil
}

// parseKey resolves a key expression to a serialized public key. Extended
// keys may carry fixed derivation steps; wildcards are rejected.
func parseKey(s string, network model.Network) (Key, error) {
	const op = "parse descriptor key"
	origin, rest, err := parseOrigin(s)
	if err != nil {
		return Key{}, model.NewError(model.ErrInvalidEncoding, op, s, err)
	}
	k := Key{Expr: s, Origin: origin}

	base, steps, hasSteps := strings.Cut(rest, "/")
	if raw, err := hex.DecodeString(base); err == nil && !hasSteps {
		if _, err := keys.ParsePublicKey(raw); err != nil {
			return Key{}, err
		}
		k.PubKey = raw
		return k, nil
	}

	if xkey, err := keys.ParseExtendedKey(base); err == nil {
		if strings.Contains(steps, "*") {
			return Key{}, model.Errorf(model.ErrInvalidDerivation, op, s, "wildcard derivation is not supported")
		}
		path, err := keys.ParseDerivationPath(steps)
		if err != nil {
			return Key{}, err
		}
		child, err := keys.Derive(xkey, path)
		if err != nil {
			return Key{}, err
		}
		if k.PubKey, err = child.PublicKey(); err != nil {
			return Key{}, err
		}
		return k, nil
	}

	if hasSteps {
		return Key{}, model.Errorf(model.ErrInvalidEncoding, op, s, "derivation steps on a non-extended key")
	}
	priv, err := keys.ParsePrivateKey(base, network)
	if err != nil {
		return Key{}, model.Errorf(model.ErrInvalidEncoding, op, s, "not a public, private or extended key")
	}
	k.PubKey = priv.PublicKey()
	return k, nil
}

// resolver adapts parseKey to miniscript key resolution and records every
// key it sees.
type resolver struct {
	network model.Network
	keys    []Key
}

func (r *resolver) resolve(s string) ([]byte, error) {
	k, err := parseKey(s, r.network)
	if err != nil {
		return nil, err
	}
	r.keys = append(r.keys, k)
	return k.PubKey, nil
}
