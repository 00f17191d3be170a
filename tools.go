//go:build tools
// +build tools

// Package tools declares tool dependencies of the module,
// so that `go generate` (mockgen) is reproducible from go.mod.
package tools

import (
	_ "go.uber.org/mock/mockgen"
)
