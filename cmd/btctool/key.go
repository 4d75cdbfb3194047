package main

import (
	"encoding/hex"
)

func registerKey(parent commandAdder, a *app) error {
	g, err := addGroup(parent, "key", "Work with private and public keys")
	if err != nil {
		return err
	}
	commands := []struct {
		name, short string
		data        interface{}
	}{
		{"generate", "Generate a new key pair", &keyGenerateCommand{a: a}},
		{"inspect", "Inspect a hex or WIF private key", &keyInspectCommand{a: a}},
		{"pubkey", "Inspect a public key", &keyPubKeyCommand{a: a}},
		{"ecdsa-sign", "Sign a 32-byte digest with ECDSA", &keySignCommand{a: a}},
		{"ecdsa-verify", "Verify an ECDSA signature", &keyVerifyCommand{a: a}},
		{"schnorr-sign", "Sign a 32-byte digest with BIP340 Schnorr", &keySignCommand{a: a, schnorr: true}},
		{"schnorr-verify", "Verify a BIP340 Schnorr signature", &keyVerifyCommand{a: a, schnorr: true}},
		{"negate-pubkey", "Negate a public key", &keyNegateCommand{a: a}},
		{"pubkey-tweak-add", "Add a scalar tweak times G to a public key", &keyTweakCommand{a: a}},
		{"pubkey-combine", "Add public keys together", &keyCombineCommand{a: a}},
	}
	for _, cmd := range commands {
		if _, err := g.AddCommand(cmd.name, cmd.short, "", cmd.data); err != nil {
			return err
		}
	}
	return nil
}

type keyGenerateCommand struct {
	a *app
}

func (c *keyGenerateCommand) Execute([]string) error {
	info, err := c.a.toolkit.GenerateKey()
	if err != nil {
		return err
	}
	return c.a.printJSON(info)
}

type keyInspectCommand struct {
	a    *app
	Args struct {
		Key string `positional-arg-name:"privkey" description:"hex or WIF private key; read from stdin when omitted"`
	} `positional-args:"yes"`
}

func (c *keyInspectCommand) Execute([]string) error {
	key, err := c.a.input(c.Args.Key)
	if err != nil {
		return err
	}
	info, err := c.a.toolkit.KeyInfo(key)
	if err != nil {
		return err
	}
	return c.a.printJSON(info)
}

type keyPubKeyCommand struct {
	a    *app
	Args struct {
		PubKey string `positional-arg-name:"pubkey" description:"public key hex; read from stdin when omitted"`
	} `positional-args:"yes"`
}

func (c *keyPubKeyCommand) Execute([]string) error {
	pub, err := c.a.hexInput(c.Args.PubKey, "pubkey")
	if err != nil {
		return err
	}
	info, err := c.a.toolkit.PublicKeyInfo(pub)
	if err != nil {
		return err
	}
	return c.a.printJSON(info)
}

type keySignCommand struct {
	a       *app
	schnorr bool
	Reverse bool `long:"reverse" description:"reverse the digest bytes before signing"`
	Args    struct {
		Key     string `positional-arg-name:"privkey" description:"hex or WIF private key" required:"yes"`
		Message string `positional-arg-name:"digest" description:"32-byte digest hex" required:"yes"`
	} `positional-args:"yes"`
}

func (c *keySignCommand) Execute([]string) error {
	msg, err := decodeHex(c.Args.Message, "digest")
	if err != nil {
		return err
	}
	if c.schnorr {
		sig, err := c.a.toolkit.SignSchnorr(c.Args.Key, msg, c.Reverse)
		if err != nil {
			return err
		}
		return c.a.printLine(hex.EncodeToString(sig))
	}
	sig, err := c.a.toolkit.SignECDSA(c.Args.Key, msg, c.Reverse)
	if err != nil {
		return err
	}
	return c.a.printJSON(sig)
}

type keyVerifyCommand struct {
	a       *app
	schnorr bool
	Reverse bool `long:"reverse" description:"reverse the digest bytes before verifying"`
	Args    struct {
		Message   string `positional-arg-name:"digest" description:"32-byte digest hex" required:"yes"`
		PubKey    string `positional-arg-name:"pubkey" description:"public key hex, x-only for schnorr" required:"yes"`
		Signature string `positional-arg-name:"signature" description:"signature hex" required:"yes"`
	} `positional-args:"yes"`
}

func (c *keyVerifyCommand) Execute([]string) error {
	msg, err := decodeHex(c.Args.Message, "digest")
	if err != nil {
		return err
	}
	pub, err := decodeHex(c.Args.PubKey, "pubkey")
	if err != nil {
		return err
	}
	sig, err := decodeHex(c.Args.Signature, "signature")
	if err != nil {
		return err
	}
	verify := c.a.toolkit.VerifyECDSA
	if c.schnorr {
		verify = c.a.toolkit.VerifySchnorr
	}
	res, err := verify(pub, msg, sig, c.Reverse)
	if err != nil {
		return err
	}
	return c.a.printJSON(res)
}

type keyNegateCommand struct {
	a    *app
	Args struct {
		PubKey string `positional-arg-name:"pubkey" description:"public key hex; read from stdin when omitted"`
	} `positional-args:"yes"`
}

func (c *keyNegateCommand) Execute([]string) error {
	pub, err := c.a.hexInput(c.Args.PubKey, "pubkey")
	if err != nil {
		return err
	}
	info, err := c.a.toolkit.NegatePublicKey(pub)
	if err != nil {
		return err
	}
	return c.a.printJSON(info)
}

type keyTweakCommand struct {
	a    *app
	Args struct {
		PubKey string `positional-arg-name:"pubkey" description:"public key hex" required:"yes"`
		Tweak  string `positional-arg-name:"tweak" description:"32-byte scalar hex" required:"yes"`
	} `positional-args:"yes"`
}

func (c *keyTweakCommand) Execute([]string) error {
	pub, err := decodeHex(c.Args.PubKey, "pubkey")
	if err != nil {
		return err
	}
	tweak, err := decodeHex(c.Args.Tweak, "tweak")
	if err != nil {
		return err
	}
	info, err := c.a.toolkit.TweakAddPublicKey(pub, tweak)
	if err != nil {
		return err
	}
	return c.a.printJSON(info)
}

type keyCombineCommand struct {
	a    *app
	Args struct {
		PubKeys []string `positional-arg-name:"pubkey" description:"public key hex" required:"2"`
	} `positional-args:"yes"`
}

func (c *keyCombineCommand) Execute([]string) error {
	pubs := make([][]byte, 0, len(c.Args.PubKeys))
	for _, s := range c.Args.PubKeys {
		pub, err := decodeHex(s, "pubkey")
		if err != nil {
			return err
		}
		pubs = append(pubs, pub)
	}
	info, err := c.a.toolkit.CombinePublicKeys(pubs)
	if err != nil {
		return err
	}
	return c.a.printJSON(info)
}
