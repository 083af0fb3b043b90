package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// An interrupted scan already reported its partial session; the
		// cancellation itself is not worth an extra error line.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "dupscan: %v\n", err)
		}
		os.Exit(1)
	}
}
