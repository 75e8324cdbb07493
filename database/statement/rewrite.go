package statement

import (
	"strconv"
	"strings"
)

// Rewrite converts named (":name") and positional ("?") placeholders in
// query into the driver's positional form. It returns the rewritten text
// and the binding keys in the order they appear. Quoted strings,
// identifiers and "::" casts are copied unchanged.
func Rewrite(query string, placeholder func(position int) string) (string, []string) {
	var (
		sb       strings.Builder
		names    []string
		quote    byte
		position int
		unnamed  int
	)
	sb.Grow(len(query))

	for i := 0; i < len(query); i++ {
		ch := query[i]

		if quote != 0 {
			sb.WriteByte(ch)
			if ch == quote {
				quote = 0
			}
			continue
		}

		switch ch {
		case '\'', '"', '`':
			quote = ch
			sb.WriteByte(ch)
		case ':':
			if i+1 < len(query) && query[i+1] == ':' {
				sb.WriteString("::")
				i++
				continue
			}
			j := i + 1
			for j < len(query) && isNameByte(query[j]) {
				j++
			}
			if j == i+1 {
				sb.WriteByte(ch)
				continue
			}
			position++
			names = append(names, query[i+1:j])
			sb.WriteString(placeholder(position))
			i = j - 1
		case '?':
			position++
			names = append(names, strconv.Itoa(unnamed))
			unnamed++
			sb.WriteString(placeholder(position))
		default:
			sb.WriteByte(ch)
		}
	}

	return sb.String(), names
}

func isNameByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
