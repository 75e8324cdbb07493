package driver

import (
	"regexp"
	"strings"
)

// Patterns are tried in order; the first one that matches decides how the
// identifier is quoted.
var (
	reBare         = regexp.MustCompile(`^[\p{L}\p{N}_-]+$`)
	reDotted       = regexp.MustCompile(`^[\p{L}\p{N}_-]+\.[^ *]*$`)
	reDottedStar   = regexp.MustCompile(`^[\p{L}\p{N}_-]+\.\*$`)
	reFunction     = regexp.MustCompile(`^([\p{L}\p{N}_-]+)\((.*)\)$`)
	reAlias        = regexp.MustCompile(`(?i)^([\p{L}\p{N}_-]+(?:\.[\p{L}\p{N}_\s-]+|\(.*\))*)\s+AS\s*([\p{L}\p{N}_-]+)$`)
	reDottedSpaces = regexp.MustCompile(`^([\p{L}\p{N}_-]+\.[\p{L}\p{N}_][\p{L}\p{N}_\s-]*[\p{L}\p{N}_])(.*)`)
	reSpaced       = regexp.MustCompile(`^[\p{L}\p{N}_\s-]*[\p{L}\p{N}_-]+`)
)

func quoteIdentifier(identifier, start, end string) string {
	identifier = strings.TrimSpace(identifier)
	if identifier == "*" || identifier == "" {
		return identifier
	}

	// users
	if reBare.MatchString(identifier) {
		return start + identifier + end
	}

	// users.id
	if reDotted.MatchString(identifier) {
		items := strings.Split(identifier, ".")
		return start + strings.Join(items, end+"."+start) + end
	}

	// users.*
	if reDottedStar.MatchString(identifier) {
		return start + strings.Replace(identifier, ".*", end+".*", 1)
	}

	// COUNT(users.id)
	if m := reFunction.FindStringSubmatch(identifier); m != nil {
		return m[1] + "(" + quoteIdentifier(m[2], start, end) + ")"
	}

	// users.id AS user_id
	if m := reAlias.FindStringSubmatch(identifier); m != nil {
		return quoteIdentifier(m[1], start, end) + " AS " + quoteIdentifier(m[2], start, end)
	}

	// users.first name
	if m := reDottedSpaces.FindStringSubmatch(identifier); m != nil {
		items := strings.Split(m[1], ".")
		return start + strings.Join(items, end+"."+start) + end + m[2]
	}

	// first name
	if reSpaced.MatchString(identifier) {
		return start + identifier + end
	}

	return identifier
}
