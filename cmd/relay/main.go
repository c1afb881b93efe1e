package main

import "github.com/youmna-rabie/mcp-relay/internal/cli"

func main() {
	cli.Execute()
}
