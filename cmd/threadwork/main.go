package main

import "github.com/threadwork-cc/threadwork/internal/mcpserver"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	mcpserver.Version = version
	Execute()
}
