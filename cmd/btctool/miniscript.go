package main

func registerMiniscript(parent commandAdder, a *app) error {
	g, err := addGroup(parent, "miniscript", "Work with miniscript and policies")
	if err != nil {
		return err
	}
	g.Aliases = []string{"ms"}
	if _, err := g.AddCommand("inspect", "Analyze a miniscript",
		"Analyze a miniscript given as text or as the hex of its script.",
		&miniscriptInspectCommand{a: a}); err != nil {
		return err
	}
	if _, err := g.AddCommand("policy", "Inspect a policy", "", &miniscriptPolicyCommand{a: a}); err != nil {
		return err
	}
	_, err = g.AddCommand("compile", "Compile a policy into miniscript", "", &miniscriptCompileCommand{a: a})
	return err
}

type ContextOption struct {
	Context string `long:"context" short:"c" description:"script context" choice:"segwitv0" choice:"p2sh" default:"segwitv0"`
}

type miniscriptInspectCommand struct {
	a *app
	ContextOption
	Args struct {
		Miniscript string `positional-arg-name:"miniscript" description:"miniscript or script hex; read from stdin when omitted"`
	} `positional-args:"yes"`
}

func (c *miniscriptInspectCommand) Execute([]string) error {
	ms, err := c.a.input(c.Args.Miniscript)
	if err != nil {
		return err
	}
	info, err := c.a.toolkit.MiniscriptInfo(ms, c.Context)
	if err != nil {
		return err
	}
	return c.a.printJSON(info)
}

type policyArgs struct {
	Policy string `positional-arg-name:"policy" description:"policy; read from stdin when omitted"`
}

type miniscriptPolicyCommand struct {
	a    *app
	Args policyArgs `positional-args:"yes"`
}

func (c *miniscriptPolicyCommand) Execute([]string) error {
	policy, err := c.a.input(c.Args.Policy)
	if err != nil {
		return err
	}
	info, err := c.a.toolkit.PolicyInfo(policy)
	if err != nil {
		return err
	}
	return c.a.printJSON(info)
}

type miniscriptCompileCommand struct {
	a *app
	ContextOption
	Args policyArgs `positional-args:"yes"`
}

func (c *miniscriptCompileCommand) Execute([]string) error {
	policy, err := c.a.input(c.Args.Policy)
	if err != nil {
		return err
	}
	info, err := c.a.toolkit.CompilePolicy(policy, c.Context)
	if err != nil {
		return err
	}
	return c.a.printJSON(info)
}
