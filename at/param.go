package at

import (
	"strconv"
	"strings"
)

// ValueType identifies how a parameter token was interpreted, decided
// by a look-ahead on its first character.
type ValueType int

const (
	ValueUnknown      ValueType = iota // first character matched no supported type, token kept verbatim
	ValueNumber                        // 13, -5
	ValueNumberHex                     // 0xAB25
	ValueNumberBinary                  // 0b01100101
	ValueFloat                         // 2.54
	ValueState                         // high, low
	ValueStateKey                      // on, off
	ValueBoolean                       // true, false
	ValueString                        // "text"
	ValueNull                          // null
)

func (t ValueType) String() string {
	switch t {
	case ValueNumber:
		return "number"
	case ValueNumberHex:
		return "hex"
	case ValueNumberBinary:
		return "binary"
	case ValueFloat:
		return "float"
	case ValueState:
		return "state"
	case ValueStateKey:
		return "statekey"
	case ValueBoolean:
		return "boolean"
	case ValueString:
		return "string"
	case ValueNull:
		return "null"
	default:
		return "unknown"
	}
}

// Value is one typed positional parameter.
//
// Int is populated for the Number, NumberHex and NumberBinary types,
// Float for Float, Str for String (quotes removed), Bool for Boolean,
// State (high=true) and StateKey (on=true). Raw always holds the
// trimmed source token.
type Value struct {
	Type  ValueType
	Raw   string
	Int   int64
	Float float64
	Str   string
	Bool  bool
}

// Cursor walks a comma-delimited parameter string, producing one typed
// Value at a time. It trims surrounding whitespace per token and takes
// characters between a pair of '"' verbatim.
//
// There is no escape mechanism inside quoted strings: a literal '"'
// cannot appear in a string value. This matches the wire format, which
// defines none.
type Cursor struct {
	s   string
	pos int
	sep byte
}

// NewCursor returns a cursor over s using sep as the parameter
// separator. AT parameter lists use ','.
func NewCursor(s string, sep byte) *Cursor {
	return &Cursor{s: s, sep: sep}
}

// Next produces the next parameter. It returns false once the cursor
// is exhausted.
func (c *Cursor) Next() (Value, bool) {
	if c.pos >= len(c.s) {
		return Value{}, false
	}

	end := c.pos
	inQuote := false
	for end < len(c.s) {
		ch := c.s[end]
		if ch == '"' {
			inQuote = !inQuote
		} else if ch == c.sep && !inQuote {
			break
		}
		end++
	}

	token := strings.TrimSpace(c.s[c.pos:end])
	if end < len(c.s) {
		c.pos = end + 1 // past the separator
	} else {
		c.pos = end
	}

	return classifyValue(token), true
}

// Remaining returns the unconsumed tail of the parameter string.
func (c *Cursor) Remaining() string {
	return c.s[c.pos:]
}

func classifyValue(token string) Value {
	v := Value{Type: ValueUnknown, Raw: token}
	if token == "" {
		return v
	}

	switch ch := token[0]; {
	case ch == '"':
		v.Type = ValueString
		v.Str = unquote(token)
		return v

	case ch == '-' || ch == '+' || (ch >= '0' && ch <= '9'):
		return classifyNumeric(token, v)
	}

	switch strings.ToLower(token) {
	case "true":
		v.Type, v.Bool = ValueBoolean, true
	case "false":
		v.Type, v.Bool = ValueBoolean, false
	case "on":
		v.Type, v.Bool = ValueStateKey, true
	case "off":
		v.Type, v.Bool = ValueStateKey, false
	case "high":
		v.Type, v.Bool = ValueState, true
	case "low":
		v.Type, v.Bool = ValueState, false
	case "null":
		v.Type = ValueNull
	}
	return v
}

func classifyNumeric(token string, v Value) Value {
	lower := strings.ToLower(token)
	switch {
	case strings.HasPrefix(lower, "0x"):
		n, err := strconv.ParseInt(token[2:], 16, 64)
		if err != nil {
			return v
		}
		v.Type, v.Int = ValueNumberHex, n

	case strings.HasPrefix(lower, "0b"):
		n, err := strconv.ParseInt(token[2:], 2, 64)
		if err != nil {
			return v
		}
		v.Type, v.Int = ValueNumberBinary, n

	case strings.ContainsAny(token, ".eE"):
		f, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return v
		}
		v.Type, v.Float = ValueFloat, f

	default:
		n, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			return v
		}
		v.Type, v.Int = ValueNumber, n
	}
	return v
}

// unquote strips one leading and one trailing '"' and returns the
// characters between them verbatim.
func unquote(token string) string {
	s := strings.TrimPrefix(token, `"`)
	return strings.TrimSuffix(s, `"`)
}
