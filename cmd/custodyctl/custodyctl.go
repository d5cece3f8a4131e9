package main

import (
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/cmd/custodyctl/cmd"
)

// Custody CLI
func main() {
	cmd.Execute()
}
