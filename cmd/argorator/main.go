package main

import (
	"os"

	"github.com/dotle-git/argorator/pkgs/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
