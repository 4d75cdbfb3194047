package main

func registerLightning(parent commandAdder, a *app) error {
	g, err := addGroup(parent, "ln", "Lightning network helpers")
	if err != nil {
		return err
	}
	invoice, err := addGroup(g, "invoice", "BOLT11 payment requests")
	if err != nil {
		return err
	}
	_, err = invoice.AddCommand("decode", "Decode a payment request", "", &invoiceDecodeCommand{a: a})
	return err
}

type invoiceDecodeCommand struct {
	a    *app
	Args struct {
		Invoice string `positional-arg-name:"invoice" description:"bech32 payment request; read from stdin when omitted"`
	} `positional-args:"yes"`
}

func (c *invoiceDecodeCommand) Execute([]string) error {
	s, err := c.a.input(c.Args.Invoice)
	if err != nil {
		return err
	}
	info, err := c.a.toolkit.DecodeInvoice(s)
	if err != nil {
		return err
	}
	return c.a.printJSON(info)
}
