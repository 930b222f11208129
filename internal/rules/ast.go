package rules

import (
	"fmt"
	"strings"

	"github.com/richxcame/account-onboarding/internal/facts"
)

// expr is a node of a compiled condition. check runs once against the
// schema when the rule is registered; eval runs per evaluation.
type expr interface {
	check(s facts.Schema) (facts.Kind, error)
	eval(f facts.Facts) (facts.Value, error)
	String() string
}

// undefinedError is raised when the context lacks a variable the schema declares.
type undefinedError struct {
	name string
}

func (e *undefinedError) Error() string {
	return fmt.Sprintf("undefined variable %q", e.name)
}

type literal struct {
	v facts.Value
}

func (n *literal) check(facts.Schema) (facts.Kind, error) { return n.v.Kind(), nil }

func (n *literal) eval(facts.Facts) (facts.Value, error) { return n.v, nil }

func (n *literal) String() string { return n.v.String() }

type variable struct {
	name string
	pos  int
}

func (n *variable) check(s facts.Schema) (facts.Kind, error) {
	k, ok := s.Lookup(n.name)
	if !ok {
		return facts.KindInvalid, &ParseError{Pos: n.pos, Msg: fmt.Sprintf("unknown variable %q", n.name)}
	}
	return k, nil
}

func (n *variable) eval(f facts.Facts) (facts.Value, error) {
	v, ok := f.Get(n.name)
	if !ok {
		return facts.Value{}, &undefinedError{name: n.name}
	}
	return v, nil
}

func (n *variable) String() string { return n.name }

type listLiteral struct {
	items []*literal
	pos   int
	elem  facts.Kind
}

func (n *listLiteral) check(facts.Schema) (facts.Kind, error) {
	n.elem = facts.KindInvalid
	for _, item := range n.items {
		k := item.v.Kind()
		if n.elem == facts.KindInvalid {
			n.elem = k
		} else if k != n.elem {
			return facts.KindInvalid, &ParseError{Pos: n.pos, Msg: "list mixes " + n.elem.String() + " and " + k.String()}
		}
	}
	return facts.KindList, nil
}

func (n *listLiteral) eval(facts.Facts) (facts.Value, error) {
	vals := make([]facts.Value, len(n.items))
	for i, item := range n.items {
		vals[i] = item.v
	}
	return facts.List(vals...), nil
}

func (n *listLiteral) String() string {
	parts := make([]string, len(n.items))
	for i, item := range n.items {
		parts[i] = item.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

type logical struct {
	op          string // and, or
	left, right expr
}

func (n *logical) check(s facts.Schema) (facts.Kind, error) {
	for _, side := range []expr{n.left, n.right} {
		k, err := side.check(s)
		if err != nil {
			return facts.KindInvalid, err
		}
		if k != facts.KindBool {
			return facts.KindInvalid, fmt.Errorf("%q operand %s is %s, want bool", n.op, side, k)
		}
	}
	return facts.KindBool, nil
}

func (n *logical) eval(f facts.Facts) (facts.Value, error) {
	l, err := evalBool(n.left, f)
	if err != nil {
		return facts.Value{}, err
	}
	if n.op == "and" && !l {
		return facts.Bool(false), nil
	}
	if n.op == "or" && l {
		return facts.Bool(true), nil
	}
	r, err := evalBool(n.right, f)
	if err != nil {
		return facts.Value{}, err
	}
	return facts.Bool(r), nil
}

func (n *logical) String() string {
	return "(" + n.left.String() + " " + n.op + " " + n.right.String() + ")"
}

type negation struct {
	x expr
}

func (n *negation) check(s facts.Schema) (facts.Kind, error) {
	k, err := n.x.check(s)
	if err != nil {
		return facts.KindInvalid, err
	}
	if k != facts.KindBool {
		return facts.KindInvalid, fmt.Errorf("\"not\" operand %s is %s, want bool", n.x, k)
	}
	return facts.KindBool, nil
}

func (n *negation) eval(f facts.Facts) (facts.Value, error) {
	b, err := evalBool(n.x, f)
	if err != nil {
		return facts.Value{}, err
	}
	return facts.Bool(!b), nil
}

func (n *negation) String() string { return "(not " + n.x.String() + ")" }

type comparison struct {
	op          string
	left, right expr
}

func (n *comparison) check(s facts.Schema) (facts.Kind, error) {
	lk, err := n.left.check(s)
	if err != nil {
		return facts.KindInvalid, err
	}
	rk, err := n.right.check(s)
	if err != nil {
		return facts.KindInvalid, err
	}
	if lk != rk {
		return facts.KindInvalid, fmt.Errorf("cannot compare %s %s %s", lk, n.op, rk)
	}
	switch n.op {
	case "==", "!=":
		if lk == facts.KindList {
			return facts.KindInvalid, fmt.Errorf("cannot compare lists with %s", n.op)
		}
	default:
		if lk != facts.KindNumber && lk != facts.KindString {
			return facts.KindInvalid, fmt.Errorf("operator %s needs numbers or strings, got %s", n.op, lk)
		}
	}
	return facts.KindBool, nil
}

func (n *comparison) eval(f facts.Facts) (facts.Value, error) {
	l, err := n.left.eval(f)
	if err != nil {
		return facts.Value{}, err
	}
	r, err := n.right.eval(f)
	if err != nil {
		return facts.Value{}, err
	}
	if l.Kind() != r.Kind() {
		return facts.Value{}, fmt.Errorf("type mismatch: %s %s %s", l.Kind(), n.op, r.Kind())
	}

	switch n.op {
	case "==":
		return facts.Bool(l.Equal(r)), nil
	case "!=":
		return facts.Bool(!l.Equal(r)), nil
	}

	var cmp int
	switch l.Kind() {
	case facts.KindNumber:
		switch {
		case l.Num() < r.Num():
			cmp = -1
		case l.Num() > r.Num():
			cmp = 1
		}
	case facts.KindString:
		cmp = strings.Compare(l.Str(), r.Str())
	default:
		return facts.Value{}, fmt.Errorf("operator %s needs numbers or strings, got %s", n.op, l.Kind())
	}

	switch n.op {
	case "<":
		return facts.Bool(cmp < 0), nil
	case "<=":
		return facts.Bool(cmp <= 0), nil
	case ">":
		return facts.Bool(cmp > 0), nil
	case ">=":
		return facts.Bool(cmp >= 0), nil
	}
	return facts.Value{}, fmt.Errorf("unknown operator %s", n.op)
}

func (n *comparison) String() string {
	return "(" + n.left.String() + " " + n.op + " " + n.right.String() + ")"
}

// membership is "x in list" or "x not in list". A string on the right
// means substring containment.
type membership struct {
	negated     bool
	left, right expr
}

func (n *membership) check(s facts.Schema) (facts.Kind, error) {
	lk, err := n.left.check(s)
	if err != nil {
		return facts.KindInvalid, err
	}
	rk, err := n.right.check(s)
	if err != nil {
		return facts.KindInvalid, err
	}
	switch rk {
	case facts.KindList:
		if lk == facts.KindList {
			return facts.KindInvalid, fmt.Errorf("cannot test a list for membership")
		}
		if lit, ok := n.right.(*listLiteral); ok && lit.elem != facts.KindInvalid && lit.elem != lk {
			return facts.KindInvalid, fmt.Errorf("cannot look for %s in a list of %s", lk, lit.elem)
		}
	case facts.KindString:
		if lk != facts.KindString {
			return facts.KindInvalid, fmt.Errorf("cannot look for %s in a string", lk)
		}
	default:
		return facts.KindInvalid, fmt.Errorf("right side of in is %s, want list or string", rk)
	}
	return facts.KindBool, nil
}

func (n *membership) eval(f facts.Facts) (facts.Value, error) {
	l, err := n.left.eval(f)
	if err != nil {
		return facts.Value{}, err
	}
	r, err := n.right.eval(f)
	if err != nil {
		return facts.Value{}, err
	}

	found := false
	switch r.Kind() {
	case facts.KindList:
		for _, item := range r.Items() {
			if item.Equal(l) {
				found = true
				break
			}
		}
	case facts.KindString:
		if l.Kind() != facts.KindString {
			return facts.Value{}, fmt.Errorf("type mismatch: %s in string", l.Kind())
		}
		found = strings.Contains(r.Str(), l.Str())
	default:
		return facts.Value{}, fmt.Errorf("right side of in is %s", r.Kind())
	}
	return facts.Bool(found != n.negated), nil
}

func (n *membership) String() string {
	op := " in "
	if n.negated {
		op = " not in "
	}
	return "(" + n.left.String() + op + n.right.String() + ")"
}

var stringPredicates = map[string]func(s, arg string) bool{
	"startswith": strings.HasPrefix,
	"endswith":   strings.HasSuffix,
	"contains":   strings.Contains,
}

type stringPredicate struct {
	op          string
	left, right expr
}

func (n *stringPredicate) check(s facts.Schema) (facts.Kind, error) {
	for _, side := range []expr{n.left, n.right} {
		k, err := side.check(s)
		if err != nil {
			return facts.KindInvalid, err
		}
		if k != facts.KindString {
			return facts.KindInvalid, fmt.Errorf("%s operand %s is %s, want string", n.op, side, k)
		}
	}
	return facts.KindBool, nil
}

func (n *stringPredicate) eval(f facts.Facts) (facts.Value, error) {
	l, err := n.left.eval(f)
	if err != nil {
		return facts.Value{}, err
	}
	r, err := n.right.eval(f)
	if err != nil {
		return facts.Value{}, err
	}
	if l.Kind() != facts.KindString || r.Kind() != facts.KindString {
		return facts.Value{}, fmt.Errorf("type mismatch: %s %s %s", l.Kind(), n.op, r.Kind())
	}
	return facts.Bool(stringPredicates[n.op](l.Str(), r.Str())), nil
}

func (n *stringPredicate) String() string {
	return "(" + n.left.String() + " " + n.op + " " + n.right.String() + ")"
}

func evalBool(e expr, f facts.Facts) (bool, error) {
	v, err := e.eval(f)
	if err != nil {
		return false, err
	}
	if v.Kind() != facts.KindBool {
		return false, fmt.Errorf("%s is %s, want bool", e, v.Kind())
	}
	return v.Truth(), nil
}
