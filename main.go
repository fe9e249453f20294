// Package main is the entry point for the playcall CLI, which consolidates
// fantasy-football rankings from many sources into one table.
package main

import "github.com/pable/go-playcall/cmd"

func main() {
	cmd.Execute()
}
