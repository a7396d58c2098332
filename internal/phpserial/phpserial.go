// Package phpserial reads and writes the PHP serialize() text format, which is
// how WordPress stores structured values in its meta tables.
package phpserial

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var scalarPattern = regexp.MustCompile(`^[bid]:[0-9.E+-]+;$`)

// IsSerialized reports whether data looks like a PHP-serialized value. This is
// the same heuristic WordPress applies before unserializing meta values: it is
// applied per value, and false positives are resolved by Unserialize failing.
func IsSerialized(data string) bool {
	data = strings.TrimSpace(data)
	if data == "N;" {
		return true
	}
	if len(data) < 4 || data[1] != ':' {
		return false
	}
	last := data[len(data)-1]
	if last != ';' && last != '}' {
		return false
	}
	switch data[0] {
	case 's':
		return strings.HasSuffix(data, `";`)
	case 'a', 'O':
		return last == '}'
	case 'b', 'i', 'd':
		return scalarPattern.MatchString(data)
	}
	return false
}

// Unserialize decodes a PHP-serialized string into nil, bool, int64, float64,
// string, []any (sequential integer keys starting at zero) or map[string]any
// (anything else). Serialized objects (O:) are not supported and return an
// error, as do truncated or malformed inputs.
func Unserialize(data string) (any, error) {
	p := &parser{src: data}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("trailing data at offset %d", p.pos)
	}
	return v, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) fail(format string, args ...any) error {
	return fmt.Errorf("offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *parser) expect(s string) error {
	if !strings.HasPrefix(p.src[p.pos:], s) {
		return p.fail("expected %q", s)
	}
	p.pos += len(s)
	return nil
}

// readUntil consumes up to and including the delimiter, returning the text
// before it.
func (p *parser) readUntil(delim byte) (string, error) {
	i := strings.IndexByte(p.src[p.pos:], delim)
	if i < 0 {
		return "", p.fail("missing %q", string(delim))
	}
	s := p.src[p.pos : p.pos+i]
	p.pos += i + 1
	return s, nil
}

func (p *parser) value() (any, error) {
	if p.pos >= len(p.src) {
		return nil, p.fail("unexpected end of input")
	}
	switch p.src[p.pos] {
	case 'N':
		if err := p.expect("N;"); err != nil {
			return nil, err
		}
		return nil, nil
	case 'b':
		if err := p.expect("b:"); err != nil {
			return nil, err
		}
		s, err := p.readUntil(';')
		if err != nil {
			return nil, err
		}
		switch s {
		case "0":
			return false, nil
		case "1":
			return true, nil
		}
		return nil, p.fail("bad bool %q", s)
	case 'i':
		if err := p.expect("i:"); err != nil {
			return nil, err
		}
		s, err := p.readUntil(';')
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, p.fail("bad int %q", s)
		}
		return n, nil
	case 'd':
		if err := p.expect("d:"); err != nil {
			return nil, err
		}
		s, err := p.readUntil(';')
		if err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, p.fail("bad float %q", s)
		}
		return f, nil
	case 's':
		return p.stringValue()
	case 'a':
		return p.arrayValue()
	}
	return nil, p.fail("unsupported type %q", string(p.src[p.pos]))
}

// stringValue parses s:<bytelen>:"<raw>"; — the length is in bytes and the
// payload is not escaped, so it may itself contain quotes.
func (p *parser) stringValue() (string, error) {
	if err := p.expect("s:"); err != nil {
		return "", err
	}
	lenStr, err := p.readUntil(':')
	if err != nil {
		return "", err
	}
	n, err := strconv.Atoi(lenStr)
	if err != nil || n < 0 {
		return "", p.fail("bad string length %q", lenStr)
	}
	if err := p.expect(`"`); err != nil {
		return "", err
	}
	if p.pos+n > len(p.src) {
		return "", p.fail("string shorter than declared length %d", n)
	}
	s := p.src[p.pos : p.pos+n]
	p.pos += n
	if err := p.expect(`";`); err != nil {
		return "", err
	}
	return s, nil
}

func (p *parser) arrayValue() (any, error) {
	if err := p.expect("a:"); err != nil {
		return nil, err
	}
	countStr, err := p.readUntil(':')
	if err != nil {
		return nil, err
	}
	count, err := strconv.Atoi(countStr)
	if err != nil || count < 0 {
		return nil, p.fail("bad array length %q", countStr)
	}
	if err := p.expect("{"); err != nil {
		return nil, err
	}

	type pair struct {
		key any
		val any
	}
	pairs := make([]pair, 0, count)
	for i := 0; i < count; i++ {
		k, err := p.value()
		if err != nil {
			return nil, err
		}
		switch k.(type) {
		case int64, string:
		default:
			return nil, p.fail("array key must be int or string, got %T", k)
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair{k, v})
	}
	if err := p.expect("}"); err != nil {
		return nil, err
	}

	// PHP arrays with keys 0..n-1 in order come back as lists; everything
	// else becomes a string-keyed map.
	isList := true
	for i, pr := range pairs {
		if k, ok := pr.key.(int64); !ok || k != int64(i) {
			isList = false
			break
		}
	}
	if isList {
		list := make([]any, 0, len(pairs))
		for _, pr := range pairs {
			list = append(list, pr.val)
		}
		return list, nil
	}
	m := make(map[string]any, len(pairs))
	for _, pr := range pairs {
		switch k := pr.key.(type) {
		case string:
			m[k] = pr.val
		case int64:
			m[strconv.FormatInt(k, 10)] = pr.val
		}
	}
	return m, nil
}

// Serialize encodes a value in PHP serialize() format. JSON-decoded numbers
// arrive as float64; whole floats are written as PHP integers, matching what
// PHP itself would have produced for the round trip. Map keys are emitted in
// sorted order so output is deterministic.
func Serialize(v any) string {
	var b strings.Builder
	serialize(&b, v)
	return b.String()
}

func serialize(b *strings.Builder, v any) {
	switch x := v.(type) {
	case nil:
		b.WriteString("N;")
	case bool:
		if x {
			b.WriteString("b:1;")
		} else {
			b.WriteString("b:0;")
		}
	case int:
		fmt.Fprintf(b, "i:%d;", x)
	case int64:
		fmt.Fprintf(b, "i:%d;", x)
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			fmt.Fprintf(b, "i:%d;", int64(x))
		} else {
			fmt.Fprintf(b, "d:%s;", strconv.FormatFloat(x, 'f', -1, 64))
		}
	case string:
		// The payload is raw bytes, not escaped; the byte length disambiguates.
		fmt.Fprintf(b, `s:%d:"%s";`, len(x), x)
	case []any:
		fmt.Fprintf(b, "a:%d:{", len(x))
		for i, e := range x {
			fmt.Fprintf(b, "i:%d;", i)
			serialize(b, e)
		}
		b.WriteString("}")
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(b, "a:%d:{", len(x))
		for _, k := range keys {
			fmt.Fprintf(b, `s:%d:"%s";`, len(k), k)
			serialize(b, x[k])
		}
		b.WriteString("}")
	default:
		// Anything exotic degrades to its string form rather than panicking.
		s := fmt.Sprint(x)
		fmt.Fprintf(b, `s:%d:"%s";`, len(s), s)
	}
}
