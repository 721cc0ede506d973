// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pep508

import (
	"fmt"
	"strings"
	"unicode"
)

//nolint:gochecknoglobals // Would be 'const'.
var markerVariables = map[string]string{
	"python_version":                 "python_version",
	"python_full_version":            "python_full_version",
	"os_name":                        "os_name",
	"sys_platform":                   "sys_platform",
	"platform_release":               "platform_release",
	"platform_system":                "platform_system",
	"platform_version":               "platform_version",
	"platform_machine":               "platform_machine",
	"platform_python_implementation": "platform_python_implementation",
	"implementation_name":            "implementation_name",
	"implementation_version":         "implementation_version",
	"extra":                          "extra",
	// legacy spellings from PEP 345
	"os.name":                        "os_name",
	"sys.platform":                   "sys_platform",
	"platform.version":               "platform_version",
	"platform.machine":               "platform_machine",
	"platform.python_implementation": "platform_python_implementation",
	"python_implementation":          "platform_python_implementation",
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokString
	tokIdent
	tokOp
)

type token struct {
	kind tokenKind
	val  string
	pos  int
}

func tokenizeMarker(str string) ([]token, error) {
	var toks []token
	for i := 0; i < len(str); {
		c := str[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case c == '"' || c == '\'':
			end := strings.IndexByte(str[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("unterminated string at position %d", i)
			}
			toks = append(toks, token{tokString, str[i+1 : i+1+end], i})
			i += end + 2
		case strings.ContainsRune("<>=!~", rune(c)):
			op := str[i : i+1]
			for _, candidate := range []string{"===", "==", "!=", "<=", ">=", "~="} {
				if strings.HasPrefix(str[i:], candidate) {
					op = candidate
					break
				}
			}
			if op == "=" || op == "!" || op == "~" {
				return nil, fmt.Errorf("invalid operator at position %d", i)
			}
			toks = append(toks, token{tokOp, op, i})
			i += len(op)
		case unicode.IsLetter(rune(c)) || c == '_':
			start := i
			for i < len(str) && (unicode.IsLetter(rune(str[i])) || unicode.IsDigit(rune(str[i])) ||
				str[i] == '_' || str[i] == '.') {
				i++
			}
			toks = append(toks, token{tokIdent, str[start:i], start})
		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", c, i)
		}
	}
	toks = append(toks, token{tokEOF, "", len(str)})
	return toks, nil
}

type markerParser struct {
	toks []token
	pos  int
}

func (p *markerParser) peek() token {
	return p.toks[p.pos]
}

func (p *markerParser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *markerParser) peekKeyword(word string) bool {
	tok := p.peek()
	return tok.kind == tokIdent && tok.val == word
}

// ParseMarker parses a marker expression, the part of a requirement after the ";".
func ParseMarker(str string) (Marker, error) {
	toks, err := tokenizeMarker(str)
	if err != nil {
		return nil, fmt.Errorf("pep508.ParseMarker: %q: %w", str, err)
	}
	p := &markerParser{toks: toks}
	m, err := p.parseOr()
	if err == nil && p.peek().kind != tokEOF {
		err = fmt.Errorf("unexpected %q at position %d", p.peek().val, p.peek().pos)
	}
	if err != nil {
		return nil, fmt.Errorf("pep508.ParseMarker: %q: %w", str, err)
	}
	return m, nil
}

func (p *markerParser) parseOr() (Marker, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peekKeyword("or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = MarkerOr{Left: left, Right: right}
	}
	return left, nil
}

func (p *markerParser) parseAnd() (Marker, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.peekKeyword("and") {
		p.next()
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		left = MarkerAnd{Left: left, Right: right}
	}
	return left, nil
}

func (p *markerParser) parseAtom() (Marker, error) {
	if p.peek().kind == tokLParen {
		p.next()
		m, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if tok := p.next(); tok.kind != tokRParen {
			return nil, fmt.Errorf("expected \")\" at position %d", tok.pos)
		}
		return m, nil
	}
	left, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	op, err := p.parseOp()
	if err != nil {
		return nil, err
	}
	right, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return MarkerCompare{Left: left, Op: op, Right: right}, nil
}

func (p *markerParser) parseValue() (MarkerValue, error) {
	tok := p.next()
	switch tok.kind {
	case tokString:
		return MarkerValue{Literal: tok.val}, nil
	case tokIdent:
		name, ok := markerVariables[tok.val]
		if !ok {
			return MarkerValue{}, fmt.Errorf("unknown marker variable %q at position %d", tok.val, tok.pos)
		}
		return MarkerValue{Variable: name}, nil
	default:
		return MarkerValue{}, fmt.Errorf("expected a marker variable or string at position %d", tok.pos)
	}
}

func (p *markerParser) parseOp() (string, error) {
	tok := p.next()
	switch {
	case tok.kind == tokOp:
		return tok.val, nil
	case tok.kind == tokIdent && tok.val == "in":
		return "in", nil
	case tok.kind == tokIdent && tok.val == "not" && p.peekKeyword("in"):
		p.next()
		return "not in", nil
	default:
		return "", fmt.Errorf("expected a marker operator at position %d", tok.pos)
	}
}
