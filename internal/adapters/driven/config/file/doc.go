// Package file provides the TOML file implementation of driven.ConfigStore.
//
// Keys are flat dot-notation strings ("server.url"); on disk they are
// written as nested tables so the file stays hand-editable.
package file
