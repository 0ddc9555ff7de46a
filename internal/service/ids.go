package service

import (
	"strings"

	"github.com/google/uuid"
)

// canonicalID parses id in any form uuid.Parse accepts (upper case, braces, urn prefix)
// and returns the lower-case hyphenated form Postgres hands back.
func canonicalID(id string) (string, bool) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

// canonicalIDs canonicalises and de-duplicates ids. ok is false if any id is not a UUID.
func canonicalIDs(ids []string) ([]string, bool) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		canonical, valid := canonicalID(id)
		if !valid {
			return nil, false
		}
		out = append(out, canonical)
	}
	return uniqueStrings(out), true
}

// uniqueStrings drops blanks and duplicates, keeping first occurrence order.
func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
