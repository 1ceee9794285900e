// Package corrections reads and writes the human-edited definition CSV.
//
// The file carries one row per field. Headers are matched case-insensitively
// and a few aliases are accepted so that an exported file can be edited and
// fed straight back:
//
//	FIELD_NAME | COL_NAME
//	FIELD_DESCRIPTION | DESCRIPTION
//	FIELD_DTYPE | DTYPE
//	FIELD_TAG | TAGS | TAG
//
// A UTF-8 or UTF-16 byte order mark is honoured, which covers files saved
// by spreadsheet tools.
package corrections
