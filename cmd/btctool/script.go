package main

func registerScript(parent commandAdder, a *app) error {
	g, err := addGroup(parent, "script", "Inspect scripts")
	if err != nil {
		return err
	}
	if _, err := g.AddCommand("decode", "Classify and disassemble a script", "", &scriptDecodeCommand{a: a}); err != nil {
		return err
	}
	if _, err := g.AddCommand("lift", "Print the semantic policy of a script", "", &scriptLiftCommand{a: a}); err != nil {
		return err
	}
	_, err = g.AddCommand("addresses", "List the addresses paying to a script",
		"List the p2sh, p2wsh and p2sh-p2wsh addresses of a redeem or witness script. "+
			"With --taproot a p2tr address with the script as single leaf under a NUMS internal key is added.",
		&scriptAddressesCommand{a: a})
	return err
}

type scriptArgs struct {
	Script string `positional-arg-name:"script" description:"script hex; read from stdin when omitted"`
}

type scriptDecodeCommand struct {
	a    *app
	Args scriptArgs `positional-args:"yes"`
}

func (c *scriptDecodeCommand) Execute([]string) error {
	raw, err := c.a.hexInput(c.Args.Script, "script")
	if err != nil {
		return err
	}
	info, err := c.a.toolkit.DecodeScript(raw)
	if err != nil {
		return err
	}
	return c.a.printJSON(info)
}

type scriptLiftCommand struct {
	a    *app
	Args scriptArgs `positional-args:"yes"`
}

func (c *scriptLiftCommand) Execute([]string) error {
	raw, err := c.a.hexInput(c.Args.Script, "script")
	if err != nil {
		return err
	}
	policy, err := c.a.toolkit.LiftScript(raw)
	if err != nil {
		return err
	}
	return c.a.printLine(policy)
}

type scriptAddressesCommand struct {
	a           *app
	Taproot     bool       `long:"taproot" description:"add a p2tr address"`
	NUMSEntropy string     `long:"nums-entropy" description:"hex scalar e for the internal key H + e*G"`
	Args        scriptArgs `positional-args:"yes"`
}

func (c *scriptAddressesCommand) Execute([]string) error {
	raw, err := c.a.hexInput(c.Args.Script, "script")
	if err != nil {
		return err
	}
	var entropy []byte
	if c.NUMSEntropy != "" {
		if entropy, err = decodeHex(c.NUMSEntropy, "nums entropy"); err != nil {
			return err
		}
	}
	addrs, err := c.a.toolkit.ScriptAddresses(raw, c.Taproot || entropy != nil, entropy)
	if err != nil {
		return err
	}
	return c.a.printJSON(addrs)
}
