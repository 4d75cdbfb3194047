package main

func registerDescriptor(parent commandAdder, a *app) error {
	g, err := addGroup(parent, "descriptor", "Work with output descriptors")
	if err != nil {
		return err
	}
	if _, err := g.AddCommand("info", "Derive the scripts and address of a descriptor", "", &descriptorCommand{a: a}); err != nil {
		return err
	}
	_, err = g.AddCommand("checksum", "Append the checksum to a descriptor", "", &descriptorCommand{a: a, checksum: true})
	return err
}

type descriptorCommand struct {
	a        *app
	checksum bool
	Args     struct {
		Descriptor string `positional-arg-name:"descriptor" description:"descriptor; read from stdin when omitted"`
	} `positional-args:"yes"`
}

func (c *descriptorCommand) Execute([]string) error {
	desc, err := c.a.input(c.Args.Descriptor)
	if err != nil {
		return err
	}
	if c.checksum {
		out, err := c.a.toolkit.DescriptorChecksum(desc)
		if err != nil {
			return err
		}
		return c.a.printLine(out)
	}
	info, err := c.a.toolkit.Descriptor(desc)
	if err != nil {
		return err
	}
	return c.a.printJSON(info)
}
