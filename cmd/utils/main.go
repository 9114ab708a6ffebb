package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/appetiteclub/kiosk/cmd/utils/internal/commands"
	"github.com/appetiteclub/kiosk/cmd/utils/internal/seeding"
	"github.com/appetiteclub/kiosk/pkg/lib/auth"
	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/spf13/cobra"
)

const (
	appName    = "kiosk-utils"
	appVersion = "0.1.0"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env carries what the database commands share once flags are parsed.
type env struct {
	configPath string
	logLevel   string
	config     *core.Config
	logger     core.Logger
}

func (e *env) load(cmd *cobra.Command, _ []string) error {
	var args []string
	if e.configPath != "" {
		args = append(args, "--config", e.configPath)
	}
	if e.logLevel != "" {
		args = append(args, "--log-level", e.logLevel)
	}

	config, err := core.LoadConfig("UTILS", args)
	if err != nil {
		return err
	}
	e.config = config
	e.logger = core.NewLogger(config.GetStringOrDef("log.level", "info"))
	return nil
}

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           appName,
		Short:         "Kiosk operator commands",
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&e.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&e.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(seedDemoCmd(e))
	root.AddCommand(clearDemoCmd(e))
	root.AddCommand(resetDBCmd(e))
	root.AddCommand(hashPasswordCmd())
	root.AddCommand(versionCmd())

	return root
}

func seedDemoCmd(e *env) *cobra.Command {
	creds := seeding.Credentials{}

	cmd := &cobra.Command{
		Use:     "seed-demo",
		Short:   "Create a demo activity, room, products, admin and kiosk",
		Args:    cobra.NoArgs,
		PreRunE: e.load,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := commands.SeedDemo(cmd.Context(), e.config, e.logger, creds); err != nil {
				return fmt.Errorf("demo seeding failed: %w", err)
			}
			e.logger.Info("Demo seeding completed")
			return nil
		},
	}

	cmd.Flags().StringVar(&creds.AdminUsername, "admin-username", "admin", "demo admin username")
	cmd.Flags().StringVar(&creds.AdminPassword, "admin-password", "admin-password", "demo admin password")
	cmd.Flags().StringVar(&creds.KioskUsername, "kiosk-username", "demo-kiosk", "demo kiosk username")
	cmd.Flags().StringVar(&creds.KioskPassword, "kiosk-password", "kiosk-password", "demo kiosk password")

	return cmd
}

func clearDemoCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "clear-demo",
		Short:   "Remove the demo catalog",
		Args:    cobra.NoArgs,
		PreRunE: e.load,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := commands.ClearDemo(cmd.Context(), e.config, e.logger); err != nil {
				return fmt.Errorf("clear demo data failed: %w", err)
			}
			e.logger.Info("Demo data cleared")
			return nil
		},
	}
}

func resetDBCmd(e *env) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:     "reset-db",
		Short:   "Drop the kiosk database",
		Args:    cobra.NoArgs,
		PreRunE: e.load,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return fmt.Errorf("refusing to drop the database without --yes")
			}
			if err := commands.ResetDB(cmd.Context(), e.config, e.logger); err != nil {
				return fmt.Errorf("database reset failed: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm the drop")

	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash stored for a kiosk or admin password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, appVersion)
		},
	}
}
