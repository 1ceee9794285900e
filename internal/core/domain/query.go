package domain

import (
	"regexp"
	"strings"
)

// QueryEdit transforms the text of one custom query. It returns the new text
// and the number of changes made; zero means the query is left as it was.
type QueryEdit func(query string) (string, int)

// ReplaceText returns an edit replacing every occurrence of old with new.
func ReplaceText(old, new string) QueryEdit {
	return func(query string) (string, int) {
		n := strings.Count(query, old)
		if n == 0 || old == "" {
			return query, 0
		}
		return strings.ReplaceAll(query, old, new), n
	}
}

var fromKeyword = regexp.MustCompile(`(?i)\bFROM\b`)

// AddSelectItem returns an edit appending item to the select list, directly
// before the first FROM keyword. Queries without FROM are left alone.
func AddSelectItem(item string) QueryEdit {
	item = strings.TrimSpace(item)
	return func(query string) (string, int) {
		loc := fromKeyword.FindStringIndex(query)
		if loc == nil || item == "" {
			return query, 0
		}
		head := strings.TrimRight(query[:loc[0]], " \t\r\n")
		return head + ", " + item + query[len(head):], 1
	}
}
