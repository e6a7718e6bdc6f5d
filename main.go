// Package main provides the hubcrawl CLI entrypoint.
package main

import "github.com/lukemcguire/hubcrawl/cmd"

func main() {
	cmd.Execute()
}
