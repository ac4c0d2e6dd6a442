package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/roach88/infobase/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("infobase failed", slog.String("error", err.Error()))
		os.Exit(cli.GetExitCode(err))
	}
}
