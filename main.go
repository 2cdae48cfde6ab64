package main

import (
	"context"
	"os"

	"github.com/cleftly/cleftly/internal/app"
	"github.com/cleftly/cleftly/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), app.Options{}, os.Args[1:], os.Stdout, os.Stderr))
}
