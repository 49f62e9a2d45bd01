package cmd

import (
	"fmt"
	"os"
)

// Applets maps applet names to their entry points.
var Applets = map[string]func([]string) int{
	"gtaiutc":  GTAIUTCRun,
	"gtscale":  GTScaleRun,
	"gtscalec": GTScaleCRun,
	"gtscaled": GTScaleDRun,
}

// MainDispatcher runs the applet named by args[0]. It is used when the
// binary is installed under a name that is not an applet.
func MainDispatcher(args []string) int {
	if len(args) == 0 {
		_, _ = fmt.Println("Available applets: gtaiutc,gtscale,gtscalec,gtscaled")
		return 1
	}
	run, ok := Applets[args[0]]
	if !ok {
		_, _ = fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		return 1
	}
	return run(args[1:])
}
