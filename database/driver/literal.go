package driver

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// literal renders value as a SQL literal, delegating strings to quote.
func literal(value any, quote func(string) string) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(v)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return quote(v.Format("2006-01-02 15:04:05"))
	case []byte:
		return quote(string(v))
	case fmt.Stringer:
		return quote(v.String())
	case string:
		return quote(v)
	default:
		return quote(fmt.Sprint(v))
	}
}

// quoteStandard doubles single quotes, which is what the SQL standard and
// SQLite expect.
func quoteStandard(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
