// Package twb reads and rewrites Tableau workbook documents.
//
// A .twb file is plain XML. A .twbx file is a zip archive holding one .twb
// at its root next to extracts and images; only the .twb is read, and on
// rewrite every other entry is copied through unchanged.
//
// Fields come from the <column> elements of each data source, followed by
// the source columns listed in the connection's metadata records that have
// no <column> element of their own. Custom queries are <relation> elements
// of type "text", at any nesting depth.
package twb
