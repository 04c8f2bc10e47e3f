// Command studiosdk updates the Android Studio SDK prebuilts of a
// workspace from a released build.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Version will be set at build time via -ldflags
var Version = "v0.0.1-alpha"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd := newRootCmd()
	cmd.SetContext(ctx)
	code := execute(cmd, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
