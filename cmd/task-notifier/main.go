package main

import (
	"os"
	_ "time/tzdata"

	"github.com/nhle/task-notifier/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
