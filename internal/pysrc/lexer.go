package pysrc

import "strings"

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenName
	tokenNumber
	tokenString // value holds the decoded string
	tokenOp     // punctuation, one rune per token
)

type token struct {
	kind  tokenKind
	text  string // raw source text
	value string // decoded value, for strings
	str   bool   // a real str literal, not bytes or an f-string
}

// lexer produces a flat token stream from Python source.  It only
// understands the subset of the language that can appear in a setup() call:
// names, numbers, string literals in all quoting styles, and punctuation.
// Whitespace, comments and line continuations are skipped; anything
// unrecognizable comes out as a one-rune tokenOp so the parser can reject
// it in context.
type lexer struct {
	src string
	pos int
}

func isNameStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

func isNameChar(c byte) bool {
	return isNameStart(c) || c >= '0' && c <= '9'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isStringPrefix(s string) bool {
	if len(s) > 2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'r', 'R', 'b', 'B', 'u', 'U', 'f', 'F':
		default:
			return false
		}
	}
	return true
}

func (l *lexer) next() token {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case c == '\\' && l.pos+1 < len(l.src):
			// line continuation
			l.pos++
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			goto scan
		}
	}
	return token{kind: tokenEOF}

scan:
	start := l.pos
	c := l.src[l.pos]
	if c == '"' || c == '\'' {
		return l.scanString(start, "")
	}
	if isNameStart(c) {
		for l.pos < len(l.src) && isNameChar(l.src[l.pos]) {
			l.pos++
		}
		word := l.src[start:l.pos]
		if l.pos < len(l.src) && (l.src[l.pos] == '"' || l.src[l.pos] == '\'') &&
			isStringPrefix(word) {
			return l.scanString(start, strings.ToLower(word))
		}
		return token{kind: tokenName, text: word}
	}
	if isDigit(c) || c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]) {
		for l.pos < len(l.src) {
			c := l.src[l.pos]
			if isDigit(c) || c == '.' || c == '_' || c == 'e' || c == 'E' ||
				c == 'x' || c == 'X' || c == 'o' || c == 'O' || c == 'j' ||
				c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F' {
				l.pos++
			} else {
				break
			}
		}
		return token{kind: tokenNumber, text: l.src[start:l.pos]}
	}
	l.pos++
	return token{kind: tokenOp, text: l.src[start:l.pos]}
}

func (l *lexer) scanString(start int, prefix string) token {
	quote := l.src[l.pos]
	raw := strings.Contains(prefix, "r")
	isStr := !strings.ContainsAny(prefix, "bf")
	l.pos++
	triple := false
	if l.pos+1 < len(l.src) && l.src[l.pos] == quote && l.src[l.pos+1] == quote {
		triple = true
		l.pos += 2
	}
	var value strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\\' && l.pos+1 < len(l.src) && !raw {
			value.WriteString(decodeEscape(l.src[l.pos+1]))
			l.pos += 2
			continue
		}
		if c == '\\' && l.pos+1 < len(l.src) && raw {
			// raw strings keep the backslash but it still shields a quote
			value.WriteByte(c)
			value.WriteByte(l.src[l.pos+1])
			l.pos += 2
			continue
		}
		if c == quote {
			if !triple {
				l.pos++
				break
			}
			if l.pos+2 < len(l.src) && l.src[l.pos+1] == quote && l.src[l.pos+2] == quote {
				l.pos += 3
				break
			}
		}
		if c == '\n' && !triple {
			break // unterminated; parser will choke on what follows
		}
		value.WriteByte(c)
		l.pos++
	}
	return token{
		kind:  tokenString,
		text:  l.src[start:l.pos],
		value: value.String(),
		str:   isStr,
	}
}

func decodeEscape(c byte) string {
	switch c {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case '\\', '\'', '"':
		return string(c)
	case '\n':
		return ""
	default:
		// Python keeps unrecognized escapes verbatim
		return "\\" + string(c)
	}
}

func tokenize(src string) []token {
	l := &lexer{src: src}
	var tokens []token
	for {
		t := l.next()
		tokens = append(tokens, t)
		if t.kind == tokenEOF {
			return tokens
		}
	}
}
