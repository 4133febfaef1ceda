// Package main is the entry point of the pincers binary.
package main

import "github.com/grafana/pincers/cmd"

func main() {
	cmd.Execute()
}
