package repository

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern that matches search as a literal substring.
// Queries using it must declare ESCAPE '\'.
func containsPattern(search string) string {
	return "%" + likeEscaper.Replace(search) + "%"
}
