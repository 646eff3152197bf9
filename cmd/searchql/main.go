// Command searchql compiles and runs construction search forms.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/diachronicon/searchql/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
