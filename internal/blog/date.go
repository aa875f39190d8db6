package blog

import (
	"strings"
	"time"
)

// parseDay parses a canonical YYYY-MM-DD date at local midnight. Anything
// else reports false and sorts as invalid. Free-text dates are tolerated
// in post headers but never interpreted.
func parseDay(s string) (time.Time, bool) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}
