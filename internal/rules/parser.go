package rules

import (
	"fmt"

	"github.com/richxcame/account-onboarding/internal/facts"
)

// Condition grammar, lowest precedence first:
//
//	or         = and { "or" and }
//	and        = not { "and" not }
//	not        = "not" not | comparison
//	comparison = operand [ compop operand | ["not"] "in" operand | strop operand ]
//	operand    = primary { "." strop "(" or ")" }
//	primary    = number | string | "true" | "false" | ident | list | "(" or ")"
//	list       = "[" [ literal { "," literal } ] "]"
//	compop     = "<" | "<=" | ">" | ">=" | "==" | "!="
//	strop      = "startswith" | "endswith" | "contains"
//
// Comparisons do not chain.
type parser struct {
	toks []token
	pos  int
}

// parse builds the expression tree for a condition without schema checks.
func parse(src string) (expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	if p.peek().kind == tokEOF {
		return nil, &ParseError{Pos: 0, Msg: "empty condition"}
	}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %s", t)}
	}
	return e, nil
}

// compile parses src and type checks it against schema. The condition must
// produce a bool.
func compile(src string, schema facts.Schema) (expr, error) {
	e, err := parse(src)
	if err != nil {
		return nil, err
	}
	k, err := e.check(schema)
	if err != nil {
		return nil, err
	}
	if k != facts.KindBool {
		return nil, fmt.Errorf("condition yields %s, want bool", k)
	}
	return e, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) keyword(kw string) bool {
	t := p.peek()
	return t.kind == tokIdent && t.text == kw
}

func (p *parser) keywordAt(offset int, kw string) bool {
	i := p.pos + offset
	if i >= len(p.toks) {
		return false
	}
	return p.toks[i].kind == tokIdent && p.toks[i].text == kw
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("expected %s, got %s", what, t)}
	}
	return t, nil
}

func (p *parser) parseOr() (expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.keyword("or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &logical{op: "or", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.keyword("and") {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &logical{op: "and", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (expr, error) {
	if p.keyword("not") {
		p.next()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &negation{x: x}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (expr, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	t := p.peek()
	switch {
	case t.kind == tokOp:
		p.next()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &comparison{op: t.text, left: left, right: right}, nil
	case p.keyword("in"):
		p.next()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &membership{left: left, right: right}, nil
	case p.keyword("not") && p.keywordAt(1, "in"):
		p.next()
		p.next()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &membership{negated: true, left: left, right: right}, nil
	case t.kind == tokIdent && stringPredicates[t.text] != nil:
		p.next()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &stringPredicate{op: t.text, left: left, right: right}, nil
	}
	return left, nil
}

func (p *parser) parseOperand() (expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokDot {
		p.next()
		method, err := p.expect(tokIdent, "method name")
		if err != nil {
			return nil, err
		}
		if stringPredicates[method.text] == nil {
			return nil, &ParseError{Pos: method.pos, Msg: fmt.Sprintf("unknown method %q", method.text)}
		}
		if _, err := p.expect(tokLParen, "\"(\""); err != nil {
			return nil, err
		}
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "\")\""); err != nil {
			return nil, err
		}
		x = &stringPredicate{op: method.text, left: x, right: arg}
	}
	return x, nil
}

var reserved = map[string]bool{"and": true, "or": true, "not": true, "in": true}

func (p *parser) parsePrimary() (expr, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return &literal{v: facts.Number(t.num)}, nil
	case tokString:
		return &literal{v: facts.String(t.text)}, nil
	case tokIdent:
		switch t.text {
		case "true", "True":
			return &literal{v: facts.Bool(true)}, nil
		case "false", "False":
			return &literal{v: facts.Bool(false)}, nil
		}
		if reserved[t.text] || stringPredicates[t.text] != nil {
			return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %s", t)}
		}
		return &variable{name: t.text, pos: t.pos}, nil
	case tokLParen:
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "\")\""); err != nil {
			return nil, err
		}
		return e, nil
	case tokLBracket:
		return p.parseList(t.pos)
	}
	return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %s", t)}
}

func (p *parser) parseList(pos int) (expr, error) {
	list := &listLiteral{pos: pos}
	if p.peek().kind == tokRBracket {
		p.next()
		return list, nil
	}
	for {
		x, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		lit, ok := x.(*literal)
		if !ok {
			return nil, &ParseError{Pos: pos, Msg: "list elements must be literals"}
		}
		list.items = append(list.items, lit)

		t := p.next()
		switch t.kind {
		case tokComma:
			continue
		case tokRBracket:
			return list, nil
		}
		return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("expected \",\" or \"]\", got %s", t)}
	}
}
