// Package schema embeds the SQL that builds and tears down the metadata tables.
package schema

import _ "embed"

// Create establishes the fields, reports and bridge tables.
//
//go:embed create.sql
var Create string

// Drop removes every metadata table, including a leftover staging table.
//
//go:embed drop.sql
var Drop string

// Staging creates the bridge staging table.
//
//go:embed staging.sql
var Staging string
