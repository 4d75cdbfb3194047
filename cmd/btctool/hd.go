package main

func registerBip32(parent commandAdder, a *app) error {
	g, err := addGroup(parent, "bip32", "Work with BIP32 extended keys")
	if err != nil {
		return err
	}
	if _, err := g.AddCommand("inspect", "Inspect an extended key", "", &bip32Command{a: a}); err != nil {
		return err
	}
	_, err = g.AddCommand("derive", "Derive a child of an extended key", "", &bip32Command{a: a, derive: true})
	return err
}

type bip32Command struct {
	a      *app
	derive bool
	Args   struct {
		Key  string `positional-arg-name:"xkey" description:"xpub or xprv" required:"yes"`
		Path string `positional-arg-name:"path" description:"derivation path such as m/84'/0'/0'"`
	} `positional-args:"yes"`
}

func (c *bip32Command) Execute([]string) error {
	path := c.Args.Path
	if !c.derive {
		path = ""
	}
	info, err := c.a.toolkit.ExtendedKeyInfo(c.Args.Key, path)
	if err != nil {
		return err
	}
	return c.a.printJSON(info)
}

func registerBip39(parent commandAdder, a *app) error {
	g, err := addGroup(parent, "bip39", "Work with BIP39 mnemonics")
	if err != nil {
		return err
	}
	if _, err := g.AddCommand("generate", "Generate a new mnemonic", "", &bip39GenerateCommand{a: a}); err != nil {
		return err
	}
	if _, err := g.AddCommand("get-seed", "Validate a mnemonic and print its seed", "", &bip39SeedCommand{a: a}); err != nil {
		return err
	}
	_, err = g.AddCommand("master", "Print the master key of a mnemonic, optionally derived", "", &bip39MasterCommand{a: a})
	return err
}

type bip39GenerateCommand struct {
	a          *app
	Words      int    `long:"words" description:"number of words" choice:"12" choice:"15" choice:"18" choice:"21" choice:"24" default:"24"`
	Passphrase string `long:"passphrase" env:"BTCTOOL_BIP39_PASSPHRASE" description:"seed passphrase"`
}

func (c *bip39GenerateCommand) Execute([]string) error {
	info, err := c.a.toolkit.NewMnemonic(c.Words*32/3, c.Passphrase)
	if err != nil {
		return err
	}
	return c.a.printJSON(info)
}

type mnemonicArgs struct {
	Mnemonic string `positional-arg-name:"mnemonic" description:"space separated words; read from stdin when omitted"`
}

type bip39SeedCommand struct {
	a          *app
	Passphrase string       `long:"passphrase" env:"BTCTOOL_BIP39_PASSPHRASE" description:"seed passphrase"`
	Args       mnemonicArgs `positional-args:"yes"`
}

func (c *bip39SeedCommand) Execute([]string) error {
	mnemonic, err := c.a.input(c.Args.Mnemonic)
	if err != nil {
		return err
	}
	info, err := c.a.toolkit.MnemonicInfo(mnemonic, c.Passphrase)
	if err != nil {
		return err
	}
	return c.a.printJSON(info)
}

type bip39MasterCommand struct {
	a          *app
	Passphrase string       `long:"passphrase" env:"BTCTOOL_BIP39_PASSPHRASE" description:"seed passphrase"`
	Path       string       `long:"path" description:"derivation path applied to the master key"`
	Args       mnemonicArgs `positional-args:"yes"`
}

func (c *bip39MasterCommand) Execute([]string) error {
	mnemonic, err := c.a.input(c.Args.Mnemonic)
	if err != nil {
		return err
	}
	info, err := c.a.toolkit.MasterKey(mnemonic, c.Passphrase, c.Path)
	if err != nil {
		return err
	}
	return c.a.printJSON(info)
}
