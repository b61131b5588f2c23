package main

import (
	"os"

	"github.com/itchan-dev/echobox/cli/internal/command"
)

func main() {
	os.Exit(command.Execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
