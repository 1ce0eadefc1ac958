package main

import (
	"os"

	"github.com/Dicklesworthstone/procmon/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
