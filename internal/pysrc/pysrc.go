// Package pysrc extracts and rewrites keyword arguments of a setup() call
// in Python source, without running the file.
//
// Extraction tokenizes the source and partially evaluates the literal
// subset of the language: string literals (including implicit
// concatenation), lists and tuples of strings, "sep".join([...]), and +
// concatenation.  Anything dynamic produces a warning and an absent value
// instead of a guess.  Updates are line-oriented and preserve the file's
// indentation and quoting.
package pysrc

import (
	"strings"

	"github.com/mgedmin/check-python-versions/internal/diag"
	"github.com/mgedmin/check-python-versions/internal/fileutil"
)

// Value is a partially evaluated keyword argument: either a single string
// or a sequence of strings.
type Value struct {
	Str    string
	List   []string
	IsList bool
	tuple  bool
}

// StringValue wraps a plain string for UpdateCallArg.
func StringValue(s string) Value {
	return Value{Str: s}
}

// ListValue wraps a list of strings for UpdateCallArg.
func ListValue(items []string) Value {
	return Value{List: items, IsList: true}
}

func (v Value) typeName() string {
	switch {
	case v.tuple:
		return "tuple"
	case v.IsList:
		return "list"
	default:
		return "str"
	}
}

// FindSetupKeyword locates a call to one of functions (dotted names are
// allowed) and partially evaluates the value of its keyword argument.
// ok is false when the call or the keyword is missing, or when the value
// is too dynamic to understand.
func FindSetupKeyword(f *fileutil.File, functions []string, keyword string) (Value, bool) {
	tokens := tokenize(f.Text())
	argPos, found := findCallKeyword(tokens, functions, keyword)
	if !found {
		if argPos < 0 {
			diag.Warnf("Could not find %s() call in %s", functions[0], f.Name)
		}
		return Value{}, false
	}
	p := &parser{tokens: tokens, pos: argPos, keyword: keyword, filename: f.Name}
	value, ok := p.parseExpr()
	if !ok && !p.explained {
		diag.Warnf("Non-literal %s= passed to setup() in %s", keyword, f.Name)
	}
	return value, ok
}

// findCallKeyword returns the token index of the keyword's value
// expression.  When the keyword is absent, found is false and the index
// is non-negative if at least the call itself was found.
func findCallKeyword(tokens []token, functions []string, keyword string) (int, bool) {
	want := make(map[string]bool, len(functions))
	for _, fn := range functions {
		want[fn] = true
	}
	for i := 0; i < len(tokens); i++ {
		if tokens[i].kind != tokenName {
			continue
		}
		if i > 0 && tokens[i-1].kind == tokenOp && tokens[i-1].text == "." {
			continue // part of a longer dotted name
		}
		name := tokens[i].text
		j := i
		for j+2 < len(tokens) && tokens[j+1].kind == tokenOp &&
			tokens[j+1].text == "." && tokens[j+2].kind == tokenName {
			name += "." + tokens[j+2].text
			j += 2
		}
		if !want[name] || j+1 >= len(tokens) ||
			tokens[j+1].kind != tokenOp || tokens[j+1].text != "(" {
			continue
		}
		return scanCallForKeyword(tokens, j+2, keyword)
	}
	return -1, false
}

// scanCallForKeyword walks the argument list starting just inside the
// opening parenthesis and finds keyword= at the top nesting level.
func scanCallForKeyword(tokens []token, start int, keyword string) (int, bool) {
	depth := 0
	atArgStart := true
	for i := start; i < len(tokens); i++ {
		t := tokens[i]
		if t.kind == tokenEOF {
			break
		}
		if t.kind == tokenOp {
			switch t.text {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				if t.text == ")" && depth == 0 {
					return start, false // call ends, keyword not passed
				}
				depth--
			case ",":
				if depth == 0 {
					atArgStart = true
					continue
				}
			}
		}
		if depth == 0 && atArgStart && t.kind == tokenName && t.text == keyword &&
			i+1 < len(tokens) && tokens[i+1].kind == tokenOp && tokens[i+1].text == "=" &&
			!(i+2 < len(tokens) && tokens[i+2].kind == tokenOp && tokens[i+2].text == "=") {
			return i + 2, true
		}
		atArgStart = false
	}
	return start, false
}

type parser struct {
	tokens    []token
	pos       int
	keyword   string
	filename  string
	warned    bool
	explained bool // a failure was already reported in detail
}

func (p *parser) peek() token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return token{kind: tokenEOF}
}

func (p *parser) isOp(text string) bool {
	t := p.peek()
	return t.kind == tokenOp && t.text == text
}

// parseExpr handles + concatenation on top of single values.  A dynamic
// half of a + is dropped and the other half kept; incompatible types
// (str + list) drop the whole value.
func (p *parser) parseExpr() (Value, bool) {
	left, leftOK := p.parseValue()
	for p.isOp("+") {
		p.pos++
		right, rightOK := p.parseValue()
		switch {
		case leftOK && rightOK:
			if left.typeName() != right.typeName() {
				diag.Warnf("%s= in %s is computed by adding incompatible types: %s and %s",
					p.keyword, p.filename, left.typeName(), right.typeName())
				p.explained = true
				return Value{}, false
			}
			if left.IsList {
				left.List = append(left.List, right.List...)
			} else {
				left.Str += right.Str
			}
		case !leftOK:
			left, leftOK = right, rightOK
		}
	}
	return left, leftOK
}

func (p *parser) parseValue() (Value, bool) {
	t := p.peek()
	switch {
	case t.kind == tokenString:
		s, isStr := p.parseStringLiteral()
		if !isStr {
			return Value{}, false
		}
		if p.isOp(".") {
			return p.parseJoin(s)
		}
		return Value{Str: s}, true
	case t.kind == tokenOp && t.text == "[":
		p.pos++
		items, skipped, ok := p.parseElements("]")
		if !ok || skipped && len(items) == 0 {
			p.explained = ok
			return Value{}, false
		}
		return Value{List: items, IsList: true}, true
	case t.kind == tokenOp && t.text == "(":
		return p.parseParenthesized()
	default:
		p.skipExpr()
		return Value{}, false
	}
}

// parseStringLiteral consumes one string literal, applying Python's
// implicit adjacent-literal concatenation.
func (p *parser) parseStringLiteral() (string, bool) {
	var sb strings.Builder
	isStr := true
	for p.peek().kind == tokenString {
		t := p.peek()
		sb.WriteString(t.value)
		isStr = isStr && t.str
		p.pos++
	}
	return sb.String(), isStr
}

// parseJoin handles "sep".join([...]).
func (p *parser) parseJoin(sep string) (Value, bool) {
	// positioned at the "." after the separator literal
	if p.pos+2 >= len(p.tokens) ||
		p.tokens[p.pos+1].kind != tokenName || p.tokens[p.pos+1].text != "join" ||
		p.tokens[p.pos+2].kind != tokenOp || p.tokens[p.pos+2].text != "(" {
		p.skipExpr()
		return Value{}, false
	}
	p.pos += 3
	var close string
	switch {
	case p.isOp("["):
		close = "]"
	case p.isOp("("):
		close = ")"
	default:
		p.skipExpr()
		return Value{}, false
	}
	p.pos++
	items, skipped, ok := p.parseElements(close)
	if !ok || skipped {
		// join() of anything but a clean sequence of strings is dynamic
		p.skipExpr()
		return Value{}, false
	}
	if p.isOp(")") {
		p.pos++
	}
	return Value{Str: strings.Join(items, sep)}, true
}

// parseParenthesized disambiguates (expr) from a tuple.
func (p *parser) parseParenthesized() (Value, bool) {
	p.pos++ // past "("
	if p.isOp(")") {
		p.pos++
		return Value{IsList: true, tuple: true}, true
	}
	value, ok := p.parseExpr()
	if p.isOp(")") {
		p.pos++
		return value, ok
	}
	if !p.isOp(",") {
		p.skipExpr()
		return Value{}, false
	}
	// a tuple: the first element is re-wrapped, the rest parsed as elements
	var items []string
	firstSkipped := false
	if ok && !value.IsList {
		items = append(items, value.Str)
	} else {
		p.warnSkipping()
		firstSkipped = true
	}
	p.pos++ // past ","
	rest, skipped, restOK := p.parseElements(")")
	if !restOK {
		return Value{}, false
	}
	items = append(items, rest...)
	if (skipped || firstSkipped) && len(items) == 0 {
		p.explained = true
		return Value{}, false
	}
	return Value{List: items, IsList: true, tuple: true}, true
}

// parseElements parses list or tuple elements up to the closing bracket.
// Elements that are not string literals are skipped with a single warning;
// skipped reports whether any were, so the caller can decide if a sequence
// with nothing salvageable should count as dynamic.
func (p *parser) parseElements(close string) (items []string, skipped, ok bool) {
	items = []string{}
	for {
		for p.isOp(",") {
			p.pos++
		}
		if p.isOp(close) {
			p.pos++
			return items, skipped, true
		}
		if p.peek().kind == tokenEOF {
			return nil, skipped, false
		}
		if p.peek().kind == tokenString {
			s, isStr := p.parseStringLiteral()
			if isStr && (p.isOp(",") || p.isOp(close)) {
				items = append(items, s)
				continue
			}
		}
		p.warnSkipping()
		skipped = true
		p.skipElement(close)
	}
}

func (p *parser) warnSkipping() {
	if !p.warned {
		diag.Warnf("Non-literal %s= passed to setup() in %s, skipping some values",
			p.keyword, p.filename)
		p.warned = true
	}
}

// skipElement advances past one malformed element, to the next comma or
// the closing bracket at this nesting level.
func (p *parser) skipElement(close string) {
	depth := 0
	for {
		t := p.peek()
		if t.kind == tokenEOF {
			return
		}
		if t.kind == tokenOp {
			switch t.text {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				if depth == 0 {
					return
				}
				depth--
			case ",":
				if depth == 0 {
					return
				}
			}
		}
		p.pos++
	}
}

// skipExpr advances past the rest of an expression we gave up on, so that
// an enclosing sequence can resynchronize.
func (p *parser) skipExpr() {
	depth := 0
	for {
		t := p.peek()
		if t.kind == tokenEOF {
			return
		}
		if t.kind == tokenOp {
			switch t.text {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				if depth == 0 {
					return
				}
				depth--
			case ",":
				if depth == 0 {
					return
				}
			}
		}
		p.pos++
	}
}
