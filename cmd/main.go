package main

import (
	"os"

	"github.com/linjuya-lu/serial_tester_go/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
