package rules

import (
	"embed"
	"io/fs"
	"sync"
)

//go:embed variants/*.yaml
var embeddedVariants embed.FS

// EmbeddedFS returns the bundled rule tables. Callers may pass it to LoadFS.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embeddedVariants, "variants")
	if err != nil {
		// the embed directive guarantees the directory exists
		panic(err)
	}
	return sub
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Default returns the table parsed from the embedded rule files.
func Default() (*Table, error) {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = LoadFS(EmbeddedFS())
	})
	return defaultTable, defaultErr
}
