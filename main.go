package main

import (
	"os"
	"path/filepath"

	"github.com/karasz/gtscale/cmd"
)

func main() {
	_, calledAs := filepath.Split(os.Args[0])
	args := os.Args[1:]
	if run, ok := cmd.Applets[calledAs]; ok {
		os.Exit(run(args))
	}
	os.Exit(cmd.MainDispatcher(args))
}
