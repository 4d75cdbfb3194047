package miniscript

import (
	"fmt"
	"strings"
)

// Expr is a node of the name(arg,...) syntax shared by policies,
// miniscript and output descriptors.
type Expr struct {
	Name string
	Args []*Expr
}

// ParseExpr parses s into an expression tree. Whitespace is not allowed.
func ParseExpr(s string) (*Expr, error) {
	e, rest, err := parseExpr(s)
	if err != nil {
		return nil, err
	}
	if rest != "" {
		return nil, fmt.Errorf("unexpected %q after expression", rest)
	}
	return e, nil
}

func parseExpr(s string) (*Expr, string, error) {
	end := strings.IndexAny(s, "(),")
	if end < 0 {
		end = len(s)
	}
	name := s[:end]
	if name == "" {
		return nil, "", fmt.Errorf("missing expression name at %q", s)
	}
	e := &Expr{Name: name}
	s = s[end:]
	if !strings.HasPrefix(s, "(") {
		return e, s, nil
	}
	s = s[1:]
	for {
		arg, rest, err := parseExpr(s)
		if err != nil {
			return nil, "", err
		}
		e.Args = append(e.Args, arg)
		switch {
		case strings.HasPrefix(rest, ","):
			s = rest[1:]
		case strings.HasPrefix(rest, ")"):
			return e, rest[1:], nil
		default:
			return nil, "", fmt.Errorf("unterminated argument list of %s", name)
		}
	}
}

// IsLeaf reports whether e has no argument list.
func (e *Expr) IsLeaf() bool {
	return len(e.Args) == 0
}

func (e *Expr) String() string {
	if e.IsLeaf() {
		return e.Name
	}
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return e.Name + "(" + strings.Join(args, ",") + ")"
}
