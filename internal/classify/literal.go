package classify

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// parsePythonDict parses a Python-repr-style dict literal into a map.
// It supports the subset that classification payloads actually use:
// single/double-quoted strings, nested dicts and lists, numbers, True,
// False, and None.
func parsePythonDict(s string) (map[string]any, error) {
	p := &literalParser{src: strings.TrimSpace(s)}
	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("trailing characters at %d", p.pos)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("literal is not a dict")
	}
	return m, nil
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *literalParser) peek() (byte, error) {
	if p.pos >= len(p.src) {
		return 0, fmt.Errorf("unexpected end of input")
	}
	return p.src[p.pos], nil
}

func (p *literalParser) parseValue() (any, error) {
	p.skipSpace()
	c, err := p.peek()
	if err != nil {
		return nil, err
	}

	switch {
	case c == '{':
		return p.parseDict()
	case c == '[':
		return p.parseList()
	case c == '\'' || c == '"':
		return p.parseString(c)
	case strings.HasPrefix(p.src[p.pos:], "True"):
		p.pos += 4
		return true, nil
	case strings.HasPrefix(p.src[p.pos:], "False"):
		p.pos += 5
		return false, nil
	case strings.HasPrefix(p.src[p.pos:], "None"):
		p.pos += 4
		return nil, nil
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	}
	return nil, fmt.Errorf("unexpected character %q at %d", c, p.pos)
}

func (p *literalParser) parseDict() (map[string]any, error) {
	p.pos++ // consume '{'
	m := make(map[string]any)
	p.skipSpace()
	if c, err := p.peek(); err == nil && c == '}' {
		p.pos++
		return m, nil
	}

	for {
		p.skipSpace()
		c, err := p.peek()
		if err != nil {
			return nil, err
		}
		if c != '\'' && c != '"' {
			return nil, fmt.Errorf("dict key must be a string at %d", p.pos)
		}
		key, err := p.parseString(c)
		if err != nil {
			return nil, err
		}

		p.skipSpace()
		if c, err := p.peek(); err != nil || c != ':' {
			return nil, fmt.Errorf("expected ':' at %d", p.pos)
		}
		p.pos++

		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		m[key] = val

		p.skipSpace()
		c, err = p.peek()
		if err != nil {
			return nil, err
		}
		switch c {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return m, nil
		default:
			return nil, fmt.Errorf("expected ',' or '}' at %d", p.pos)
		}
	}
}

func (p *literalParser) parseList() ([]any, error) {
	p.pos++ // consume '['
	var list []any
	p.skipSpace()
	if c, err := p.peek(); err == nil && c == ']' {
		p.pos++
		return list, nil
	}

	for {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		list = append(list, v)

		p.skipSpace()
		c, err := p.peek()
		if err != nil {
			return nil, err
		}
		switch c {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return list, nil
		default:
			return nil, fmt.Errorf("expected ',' or ']' at %d", p.pos)
		}
	}
}

func (p *literalParser) parseString(quote byte) (string, error) {
	p.pos++ // consume opening quote
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case quote:
			p.pos++
			return b.String(), nil
		case '\\':
			p.pos++
			if p.pos >= len(p.src) {
				return "", fmt.Errorf("unterminated escape")
			}
			esc := p.src[p.pos]
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(esc)
			}
			p.pos++
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", fmt.Errorf("unterminated string")
}

func (p *literalParser) parseNumber() (any, error) {
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	isFloat := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
		} else if c == '.' && !isFloat {
			isFloat = true
			p.pos++
		} else {
			break
		}
	}
	text := p.src[start:p.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, err
	}
	return float64(n), nil
}
