package main

import (
	"github.com/Laisky/fingenius-compliance/cmd"
)

func main() {
	cmd.Execute()
}
