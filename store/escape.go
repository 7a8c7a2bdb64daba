package store

import "strings"

// likeEscape is the escape character declared in every LIKE clause.
const likeEscape = `\`

var likeReplacer = strings.NewReplacer(
	`\`, `\\`,
	`%`, `\%`,
	`_`, `\_`,
)

// EscapeLike neutralizes LIKE wildcards so s matches only itself.
func EscapeLike(s string) string {
	return likeReplacer.Replace(s)
}

// containsPattern returns a LIKE pattern matching s anywhere. Case folding
// is left to LOWER() in SQL so the column and the pattern fold alike.
func containsPattern(s string) string {
	return "%" + EscapeLike(s) + "%"
}
