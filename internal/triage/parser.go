package triage

import (
	"regexp"
	"strconv"
	"strings"
)

var bracketGroupRe = regexp.MustCompile(`\[[^\[\]]*\]`)

// ParseResponse splits raw model output into advisory prose and the ordered
// doctor ID list. The list is the last bracketed group that qualifies as one:
// empty, or carrying at least one purely numeric token. Prose brackets like
// "[as needed]" never qualify and are left in the advisory text untouched;
// a trailing prose bracket does not shadow an earlier ID list. Never errors:
// when no group qualifies the advisory is the full trimmed text and the ID
// list is empty. Duplicate IDs are preserved as emitted.
func ParseResponse(raw string) (advisory string, doctorIDs []int64) {
	locs := bracketGroupRe.FindAllStringIndex(raw, -1)
	for i := len(locs) - 1; i >= 0; i-- {
		start, end := locs[i][0], locs[i][1]

		ids, ok := idList(raw[start+1 : end-1])
		if !ok {
			continue
		}

		// Drop the group and any blank lines directly before it; the rest of
		// the text, earlier brackets included, stays untouched.
		before := strings.TrimRight(raw[:start], " \t\r\n")
		return strings.TrimSpace(before + raw[end:]), ids
	}

	return strings.TrimSpace(raw), nil
}

// idList parses the inner content of a bracketed group. A group counts as an
// ID list when it is empty (just whitespace or commas) or yields at least one
// numeric token. Models regularly slip stray tokens into the list, so
// non-numeric tokens inside a qualifying group are dropped rather than
// disqualifying it.
func idList(inner string) ([]int64, bool) {
	if strings.Trim(inner, " \t\r\n,") == "" {
		return nil, true
	}

	var ids []int64
	for _, token := range strings.Split(inner, ",") {
		token = strings.TrimSpace(token)
		if !numeric(token) {
			continue
		}
		id, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	return ids, len(ids) > 0
}

func numeric(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
