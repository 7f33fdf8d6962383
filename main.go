package main

import (
	"context"
	"os"

	"github.com/dmorgan81/qrgen/internal/cmd"
)

func main() {
	args := os.Args[1:]
	// The Lambda runtime starts the bootstrap binary without arguments.
	if len(args) == 0 && os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		args = []string{"lambda"}
	}
	if err := cmd.Execute(context.Background(), args); err != nil {
		os.Exit(1)
	}
}
