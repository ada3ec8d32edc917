package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/foodie/internal/buildinfo"
	"github.com/dmitrijs2005/foodie/internal/logging"
	"github.com/dmitrijs2005/foodie/internal/server"
	"github.com/dmitrijs2005/foodie/internal/server/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.LoadConfig(args)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.NewJSON(os.Stdout, "foodie-server", level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	logger.Info(ctx, "foodie-server", "version", buildinfo.GetVersion(), "commit", buildinfo.GetCommit(), "date", buildinfo.GetDate())

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.Run(ctx)
}
