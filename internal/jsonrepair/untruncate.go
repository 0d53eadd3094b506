package jsonrepair

import "strings"

// frame tracks one open container while scanning. expectKey is meaningful for
// objects only: true between '{'/',' and the following ':'.
type frame struct {
	kind      byte // '{' or '['
	expectKey bool
}

// CompleteTruncated applies a truncation-completion heuristic to text assumed
// to have been cut off mid-generation: it closes an unterminated string,
// completes dangling literals and numbers, drops trailing commas, pairs a
// dangling object key with null, and balances every open bracket. It only
// closes what is open; it never invents data, so the leading well-formed
// entries survive intact. The result is not guaranteed to parse; callers must
// re-validate.
func CompleteTruncated(s string) string {
	var stack []frame
	inString := false
	escaped := false
	lastSig := byte(0)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				lastSig = '"'
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, frame{kind: '{', expectKey: true})
			lastSig = c
		case '[':
			stack = append(stack, frame{kind: '['})
			lastSig = c
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			lastSig = c
		case ':':
			if len(stack) > 0 && stack[len(stack)-1].kind == '{' {
				stack[len(stack)-1].expectKey = false
			}
			lastSig = c
		case ',':
			if len(stack) > 0 && stack[len(stack)-1].kind == '{' {
				stack[len(stack)-1].expectKey = true
			}
			lastSig = c
		case ' ', '\t', '\r', '\n':
		default:
			lastSig = c
		}
	}

	out := s
	if inString {
		if escaped {
			// Trailing lone backslash from a cut-off escape sequence.
			out = out[:len(out)-1]
		}
		out += `"`
		lastSig = '"'
	}

	out = strings.TrimRight(out, " \t\r\n")
	out = completeLiteral(out)

	out = strings.TrimRight(out, " \t\r\n")
	if strings.HasSuffix(out, ",") {
		out = strings.TrimRight(out[:len(out)-1], " \t\r\n")
	} else if strings.HasSuffix(out, ":") {
		out += "null"
		if len(stack) > 0 {
			stack[len(stack)-1].expectKey = false
		}
		lastSig = 'l'
	}

	// A string that closed while the enclosing object still expected a key is
	// a key with no value.
	if lastSig == '"' && len(stack) > 0 && stack[len(stack)-1].kind == '{' && stack[len(stack)-1].expectKey {
		out += ":null"
	}

	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].kind == '{' {
			out += "}"
		} else {
			out += "]"
		}
	}
	return out
}

// completeLiteral finishes a cut-off bare token at the end of the text:
// prefixes of true/false/null are completed, and numbers left hanging on a
// sign, decimal point, or exponent marker get a final digit.
func completeLiteral(s string) string {
	i := len(s)
	for i > 0 {
		c := s[i-1]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
			c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' {
			i--
			continue
		}
		break
	}
	tail := s[i:]
	if tail == "" {
		return s
	}

	for _, lit := range []string{"true", "false", "null"} {
		if tail != lit && strings.HasPrefix(lit, tail) {
			return s[:i] + lit
		}
	}

	switch tail[len(tail)-1] {
	case '-', '+', '.', 'e', 'E':
		return s + "0"
	}
	return s
}
