package main

import (
	"os"

	"github.com/gaborage/rurl/internal/commands"
)

var version = "dev" // Will be set during build

func main() {
	os.Exit(commands.Execute(version, os.Args[1:], nil))
}
