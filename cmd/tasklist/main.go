// Package main is the single-binary entrypoint for the task list node.
package main

import "github.com/ppc-network/tasklist/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
