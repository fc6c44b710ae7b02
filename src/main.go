package main

import (
	"os"

	"github.com/jxl-ui/jxl-release/src/commands"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/print"
)

var (
	version = "master"
)

func main() {
	if err := commands.Run(os.Args, version); err != nil {
		print.Erro(err)
		os.Exit(1)
	}
}
