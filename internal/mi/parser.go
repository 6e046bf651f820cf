// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package mi

import (
	"errors"
	"strconv"
	"strings"
)

// PromptLine terminates every chunk of MI output.
const PromptLine = "(gdb)"

// Parse decodes one chunk of MI output (the lines preceding a prompt).
// Lines that are not MI records are treated as target output, because the inferior
// usually shares the debugger's terminal.
// Parse always returns every record it could decode; malformed records are reported
// through the returned error (one *ParseError per line, joined).
func Parse(text string) (Output, error) {
	var out Output
	var errs []error

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" || isPrompt(line) {
			continue
		}

		record, parseErr := parseLine(line)
		if parseErr != nil {
			errs = append(errs, parseErr)
			continue
		}

		switch r := record.(type) {
		case *ResultRecord:
			if out.Result != nil {
				errs = append(errs, &ParseError{Line: line, Column: 1, Message: "more than one result record before the prompt"})
				continue
			}
			out.Result = r
		case OOBRecord:
			out.OOB = append(out.OOB, r)
		}
	}

	return out, errors.Join(errs...)
}

func isPrompt(line string) bool {
	return strings.TrimRight(line, " ") == PromptLine
}

func parseLine(line string) (any, error) {
	p := &lineParser{line: line}

	switch line[0] {
	case byte(ConsoleStream), byte(TargetStream), byte(LogStream):
		p.pos = 1
		text, err := p.cstring()
		if err != nil {
			return nil, err
		}
		return &StreamRecord{Kind: StreamKind(line[0]), Content: text}, nil
	}

	token := p.token()
	if p.eof() {
		return &StreamRecord{Kind: TargetStream, Content: line + "\n"}, nil
	}

	switch kind := p.line[p.pos]; kind {
	case '^':
		p.pos++
		class, results, err := p.classAndResults()
		if err != nil {
			return nil, err
		}
		return &ResultRecord{Token: token, Class: ResultClass(class), Results: results}, nil

	case byte(ExecAsync), byte(StatusAsync), byte(NotifyAsync):
		p.pos++
		class, results, err := p.classAndResults()
		if err != nil {
			return nil, err
		}
		return &AsyncRecord{Token: token, Kind: AsyncKind(kind), Class: class, Results: results}, nil

	default:
		return &StreamRecord{Kind: TargetStream, Content: line + "\n"}, nil
	}
}

type lineParser struct {
	line string
	pos  int
}

func (p *lineParser) eof() bool {
	return p.pos >= len(p.line)
}

func (p *lineParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.line[p.pos]
}

func (p *lineParser) fail(msg string) error {
	return &ParseError{Line: p.line, Column: p.pos + 1, Message: msg}
}

func (p *lineParser) expect(c byte) error {
	if p.peek() != c {
		return p.fail("expected '" + string(c) + "'")
	}
	p.pos++
	return nil
}

func (p *lineParser) token() Token {
	start := p.pos
	for !p.eof() && p.line[p.pos] >= '0' && p.line[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return NoToken
	}
	t, err := strconv.Atoi(p.line[start:p.pos])
	if err != nil {
		// Out of range; the record cannot belong to any command we sent.
		return NoToken
	}
	return Token(t)
}

func (p *lineParser) classAndResults() (string, []Result, error) {
	start := p.pos
	for !p.eof() && p.line[p.pos] != ',' {
		p.pos++
	}
	class := p.line[start:p.pos]
	if class == "" {
		return "", nil, p.fail("missing record class")
	}
	if p.eof() {
		return class, nil, nil
	}

	p.pos++ // ','
	results, err := p.results(0)
	if err != nil {
		return "", nil, err
	}
	if !p.eof() {
		return "", nil, p.fail("unexpected trailing text")
	}
	return class, results, nil
}

// results parses a comma-separated list of results until the end of the line, or until the closing character.
func (p *lineParser) results(closing byte) ([]Result, error) {
	var retval []Result
	for {
		r, err := p.result()
		if err != nil {
			return nil, err
		}
		retval = append(retval, r)

		switch {
		case p.eof() && closing == 0:
			return retval, nil
		case closing != 0 && p.peek() == closing:
			return retval, nil
		case p.peek() == ',':
			p.pos++
		default:
			return nil, p.fail("expected ','")
		}
	}
}

func (p *lineParser) result() (Result, error) {
	start := p.pos
	for !p.eof() {
		switch p.line[p.pos] {
		case '=':
			name := p.line[start:p.pos]
			if name == "" {
				return Result{}, p.fail("missing variable name")
			}
			p.pos++
			v, err := p.value()
			if err != nil {
				return Result{}, err
			}
			return Result{Variable: name, Value: v}, nil
		case ',', '{', '}', '[', ']', '"':
			return Result{}, p.fail("expected '='")
		}
		p.pos++
	}
	return Result{}, p.fail("unexpected end of line, expected '='")
}

func (p *lineParser) value() (Value, error) {
	switch p.peek() {
	case '"':
		s, err := p.cstring()
		return Const(s), err
	case '{':
		return p.tuple()
	case '[':
		return p.list()
	default:
		return nil, p.fail("expected a value")
	}
}

func (p *lineParser) tuple() (Value, error) {
	p.pos++ // '{'
	if p.peek() == '}' {
		p.pos++
		return Tuple{}, nil
	}
	results, err := p.results('}')
	if err != nil {
		return nil, err
	}
	if err = p.expect('}'); err != nil {
		return nil, err
	}
	return Tuple(results), nil
}

func (p *lineParser) list() (Value, error) {
	p.pos++ // '['
	if p.peek() == ']' {
		p.pos++
		return List{}, nil
	}

	switch p.peek() {
	case '"', '{', '[':
		var values []Value
		for {
			v, err := p.value()
			if err != nil {
				return nil, err
			}
			values = append(values, v)
			if p.peek() != ',' {
				break
			}
			p.pos++
		}
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		return List{Values: values}, nil

	default:
		results, err := p.results(']')
		if err != nil {
			return nil, err
		}
		if err = p.expect(']'); err != nil {
			return nil, err
		}
		return List{Results: results}, nil
	}
}

func (p *lineParser) cstring() (string, error) {
	if err := p.expect('"'); err != nil {
		return "", err
	}

	var sb strings.Builder
	for !p.eof() {
		c := p.line[p.pos]
		p.pos++
		switch c {
		case '"':
			return sb.String(), nil
		case '\\':
			if p.eof() {
				return "", p.fail("unterminated escape sequence")
			}
			p.unescape(&sb)
		default:
			sb.WriteByte(c)
		}
	}
	return "", p.fail("unterminated string")
}

func (p *lineParser) unescape(sb *strings.Builder) {
	c := p.line[p.pos]
	p.pos++
	switch c {
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case 'a':
		sb.WriteByte('\a')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'v':
		sb.WriteByte('\v')
	case 'e':
		sb.WriteByte(0x1b)
	case '0', '1', '2', '3', '4', '5', '6', '7':
		// Up to three octal digits; GDB uses these for non-printable bytes.
		n := int(c - '0')
		for i := 0; i < 2 && !p.eof() && p.line[p.pos] >= '0' && p.line[p.pos] <= '7'; i++ {
			n = n*8 + int(p.line[p.pos]-'0')
			p.pos++
		}
		sb.WriteByte(byte(n))
	default:
		// \" \\ \' and anything unknown stand for the character itself.
		sb.WriteByte(c)
	}
}
