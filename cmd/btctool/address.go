package main

import "errors"

func registerAddress(parent commandAdder, a *app) error {
	g, err := addGroup(parent, "address", "Create and inspect addresses")
	if err != nil {
		return err
	}
	if _, err := g.AddCommand("inspect", "Decode an address", "", &addressInspectCommand{a: a}); err != nil {
		return err
	}
	_, err = g.AddCommand("create", "Create addresses for a public key or a script", "", &addressCreateCommand{a: a})
	return err
}

type addressInspectCommand struct {
	a    *app
	Args struct {
		Address string `positional-arg-name:"address" description:"address; read from stdin when omitted"`
	} `positional-args:"yes"`
}

func (c *addressInspectCommand) Execute([]string) error {
	addr, err := c.a.input(c.Args.Address)
	if err != nil {
		return err
	}
	info, err := c.a.toolkit.InspectAddress(addr)
	if err != nil {
		return err
	}
	return c.a.printJSON(info)
}

type addressCreateCommand struct {
	a      *app
	PubKey string `long:"pubkey" description:"public key hex"`
	Script string `long:"script" description:"redeem or witness script hex"`
}

func (c *addressCreateCommand) Execute([]string) error {
	switch {
	case c.PubKey != "" && c.Script != "":
		return errors.New("give either --pubkey or --script")
	case c.PubKey != "":
		pub, err := decodeHex(c.PubKey, "pubkey")
		if err != nil {
			return err
		}
		info, err := c.a.toolkit.PublicKeyInfo(pub)
		if err != nil {
			return err
		}
		return c.a.printJSON(info.Addresses)
	case c.Script != "":
		raw, err := decodeHex(c.Script, "script")
		if err != nil {
			return err
		}
		addrs, err := c.a.toolkit.ScriptAddresses(raw, false, nil)
		if err != nil {
			return err
		}
		return c.a.printJSON(addrs)
	default:
		return errors.New("one of --pubkey or --script is required")
	}
}
