// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package mi

import (
	"strconv"
	"strings"
)

// Token correlates a command with its result record. Zero means "no token".
type Token int

func (t Token) String() string {
	if t == NoToken {
		return ""
	}
	return strconv.Itoa(int(t))
}

const NoToken Token = 0

type ResultClass string

const (
	ResultDone      ResultClass = "done"
	ResultRunning   ResultClass = "running"
	ResultConnected ResultClass = "connected"
	ResultError     ResultClass = "error"
	ResultExit      ResultClass = "exit"
)

type AsyncKind byte

const (
	ExecAsync   AsyncKind = '*'
	StatusAsync AsyncKind = '+'
	NotifyAsync AsyncKind = '='
)

func (k AsyncKind) String() string {
	switch k {
	case ExecAsync:
		return "exec"
	case StatusAsync:
		return "status"
	case NotifyAsync:
		return "notify"
	default:
		return "unknown"
	}
}

type StreamKind byte

const (
	ConsoleStream StreamKind = '~'
	TargetStream  StreamKind = '@'
	LogStream     StreamKind = '&'
)

func (k StreamKind) String() string {
	switch k {
	case ConsoleStream:
		return "console"
	case TargetStream:
		return "target"
	case LogStream:
		return "log"
	default:
		return "unknown"
	}
}

// Value is one of Const, Tuple or List.
type Value interface {
	writeTo(sb *strings.Builder)
}

// Const is a decoded MI c-string.
type Const string

// Tuple is an ordered set of results: {name=value,...}.
// MI occasionally repeats a name inside a tuple, so it is not modeled as a map.
type Tuple []Result

// List holds either values or results: [value,...] or [name=value,...].
type List struct {
	Values  []Value
	Results []Result
}

type Result struct {
	Variable string
	Value    Value
}

func (c Const) writeTo(sb *strings.Builder) {
	writeCString(sb, string(c))
}

func (t Tuple) writeTo(sb *strings.Builder) {
	sb.WriteByte('{')
	writeResults(sb, t)
	sb.WriteByte('}')
}

func (l List) writeTo(sb *strings.Builder) {
	sb.WriteByte('[')
	if len(l.Results) > 0 {
		writeResults(sb, l.Results)
	} else {
		for i, v := range l.Values {
			if i > 0 {
				sb.WriteByte(',')
			}
			v.writeTo(sb)
		}
	}
	sb.WriteByte(']')
}

// Field returns the first result with the given name, or nil.
func (t Tuple) Field(name string) Value {
	return findField(t, name)
}

// String returns the named field if it is a Const, or an empty string otherwise.
func (t Tuple) String(name string) string {
	return constField(t, name)
}

type ResultRecord struct {
	Token   Token
	Class   ResultClass
	Results []Result
}

func (rr *ResultRecord) Field(name string) Value {
	return findField(rr.Results, name)
}

func (rr *ResultRecord) String(name string) string {
	return constField(rr.Results, name)
}

// Text renders the record in MI syntax.
func (rr *ResultRecord) Text() string {
	var sb strings.Builder
	sb.WriteString(rr.Token.String())
	sb.WriteByte('^')
	sb.WriteString(string(rr.Class))
	if len(rr.Results) > 0 {
		sb.WriteByte(',')
		writeResults(&sb, rr.Results)
	}
	return sb.String()
}

// OOBRecord is either an *AsyncRecord or a *StreamRecord.
type OOBRecord interface {
	Text() string
}

type AsyncRecord struct {
	Token   Token
	Kind    AsyncKind
	Class   string
	Results []Result
}

func (ar *AsyncRecord) Field(name string) Value {
	return findField(ar.Results, name)
}

func (ar *AsyncRecord) String(name string) string {
	return constField(ar.Results, name)
}

func (ar *AsyncRecord) Text() string {
	var sb strings.Builder
	sb.WriteString(ar.Token.String())
	sb.WriteByte(byte(ar.Kind))
	sb.WriteString(ar.Class)
	if len(ar.Results) > 0 {
		sb.WriteByte(',')
		writeResults(&sb, ar.Results)
	}
	return sb.String()
}

type StreamRecord struct {
	Kind    StreamKind
	Content string
}

func (sr *StreamRecord) Text() string {
	var sb strings.Builder
	sb.WriteByte(byte(sr.Kind))
	writeCString(&sb, sr.Content)
	return sb.String()
}

// Output is the parsed form of one prompt-terminated chunk of debugger output.
type Output struct {
	Result *ResultRecord
	OOB    []OOBRecord
}

// Class returns the class of the result record, or an empty string if the output has none.
func (o Output) Class() ResultClass {
	if o.Result == nil {
		return ""
	}
	return o.Result.Class
}

func (o Output) IsError() bool {
	return o.Class() == ResultError
}

// Streams returns the stream records of the output, in order.
func (o Output) Streams() []*StreamRecord {
	var retval []*StreamRecord
	for _, r := range o.OOB {
		if sr, isStream := r.(*StreamRecord); isStream {
			retval = append(retval, sr)
		}
	}
	return retval
}

// Text renders the output in MI syntax, OOB records first, without the trailing prompt.
func (o Output) Text() string {
	var lines []string
	for _, r := range o.OOB {
		lines = append(lines, r.Text())
	}
	if o.Result != nil {
		lines = append(lines, o.Result.Text())
	}
	return strings.Join(lines, "\n")
}

func findField(results []Result, name string) Value {
	for _, r := range results {
		if r.Variable == name {
			return r.Value
		}
	}
	return nil
}

func constField(results []Result, name string) string {
	if c, isConst := findField(results, name).(Const); isConst {
		return string(c)
	}
	return ""
}

func writeResults(sb *strings.Builder, results []Result) {
	for i, r := range results {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(r.Variable)
		sb.WriteByte('=')
		r.Value.writeTo(sb)
	}
}

func writeCString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				sb.WriteString(`\` + strconv.FormatInt(int64(c)+01000, 8)[1:])
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
}
