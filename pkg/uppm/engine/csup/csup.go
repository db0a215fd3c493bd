// Package csup implements the C#-like script engine: its header is
// delimited by `/* ... */`, and it supports a single action, "install".
package csup

import (
	"uppm/pkg/uppm/engine"
	"uppm/pkg/uppm/metadata"
)

// Extension is the file extension this engine owns.
const Extension = "csup"

// New constructs the csup engine. importTempDir is the folder imported
// script files materialize under (engine.NewBase's importTempDir); the
// zero value selects os.TempDir().
func New(importTempDir ...string) engine.Engine {
	var dir string
	if len(importTempDir) > 0 {
		dir = importTempDir[0]
	}
	return engine.NewBase(Extension, metadata.Delimiters{Open: "/*", Close: "*/"}, true, "install", dir)
}
