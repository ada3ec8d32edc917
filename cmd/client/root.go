// Command foodie is the interactive allergen label scanner.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/dmitrijs2005/foodie/internal/buildinfo"
	"github.com/dmitrijs2005/foodie/internal/client/cli"
	"github.com/dmitrijs2005/foodie/internal/client/config"
	"github.com/dmitrijs2005/foodie/internal/logging"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command. Flags are parsed by the config
// package so that the same -a/-i/-d/-l/-c flags work in every layer.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "foodie [flags]",
		Short: "Scan food labels against your allergen profile",
		Long: `foodie checks food labels against the allergens you declared and keeps
a short history of your scans. It works offline; when a sync server is
configured, signed-in accounts are kept in sync across devices.

Flags:
  -c, -config string   config file (.json, .yaml or .yml)
  -a string            sync server address ("" = offline only)
  -i int               online check interval in seconds
  -d string            local database path
  -l string            log level (debug, info, warn, error)`,
		Version:            buildinfo.GetVersion(),
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE:               runRoot,
	}

	cmd.AddCommand(NewVersionCmd())
	return cmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	if slices.Contains(args, "-h") || slices.Contains(args, "--help") {
		return cmd.Help()
	}

	cfg, err := config.LoadConfig(args)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log := logging.NewText(cmd.ErrOrStderr(), level)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	buildinfo.PrintBuildData(cmd.OutOrStdout())

	app, err := cli.NewApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	app.Run(ctx)
	return nil
}

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "foodie version %s\n", buildinfo.GetVersion())
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", buildinfo.GetCommit())
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", buildinfo.GetDate())
		},
	}
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
