package parse

import (
	"fmt"
	"strings"
)

// cEscapes maps the single-letter escapes git uses in quoted paths to their bytes.
var cEscapes = map[byte]byte{
	'a':  '\a',
	'b':  '\b',
	't':  '\t',
	'n':  '\n',
	'v':  '\v',
	'f':  '\f',
	'r':  '\r',
	'"':  '"',
	'\\': '\\',
}

// DecodePath turns a path as git prints it into the raw path. Unquoted paths
// come back unchanged. For a quoted path, C escapes and \NNN octal bytes are
// decoded. When an escape is malformed the longest prefix decoded so far is
// returned together with an error describing the problem.
func DecodePath(s string) (string, error) {
	if len(s) == 0 || s[0] != '"' {
		return s, nil
	}
	body := s[1:]
	terminated := strings.HasSuffix(body, `"`) && !escapedQuoteAtEnd(body)
	if terminated {
		body = body[:len(body)-1]
	}

	buf := make([]byte, 0, len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			buf = append(buf, c)
			continue
		}
		if i+1 >= len(body) {
			return string(buf), fmt.Errorf("path %s: dangling escape at offset %d", s, i)
		}
		next := body[i+1]
		if b, ok := cEscapes[next]; ok {
			buf = append(buf, b)
			i++
			continue
		}
		if !isOctal(next) {
			return string(buf), fmt.Errorf("path %s: unknown escape \\%c", s, next)
		}
		if i+3 >= len(body) || !isOctal(body[i+2]) || !isOctal(body[i+3]) {
			return string(buf), fmt.Errorf("path %s: short octal escape at offset %d", s, i)
		}
		v := int(next-'0')<<6 | int(body[i+2]-'0')<<3 | int(body[i+3]-'0')
		if v > 0xff {
			return string(buf), fmt.Errorf("path %s: octal escape \\%s out of range", s, body[i+1:i+4])
		}
		buf = append(buf, byte(v))
		i += 3
	}
	if !terminated {
		return string(buf), fmt.Errorf("path %s: missing closing quote", s)
	}
	return string(buf), nil
}

// escapedQuoteAtEnd reports whether the final quote of body is itself escaped,
// i.e. preceded by an odd number of backslashes.
func escapedQuoteAtEnd(body string) bool {
	n := 0
	for i := len(body) - 2; i >= 0 && body[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

func isOctal(c byte) bool {
	return c >= '0' && c <= '7'
}

// EncodePath quotes a path the way git does when it contains bytes that are
// not printable ASCII, a double quote or a backslash. Other paths are returned as is.
func EncodePath(s string) string {
	if !needsQuoting(s) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\a':
			sb.WriteString(`\a`)
		case '\b':
			sb.WriteString(`\b`)
		case '\t':
			sb.WriteString(`\t`)
		case '\n':
			sb.WriteString(`\n`)
		case '\v':
			sb.WriteString(`\v`)
		case '\f':
			sb.WriteString(`\f`)
		case '\r':
			sb.WriteString(`\r`)
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		default:
			if c < 0x20 || c >= 0x7f {
				fmt.Fprintf(&sb, `\%03o`, c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func needsQuoting(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c >= 0x7f || c == '"' || c == '\\' {
			return true
		}
	}
	return false
}
