// Command theora is the terminal client: an interactive dashboard plus
// one-shot commands over the same synchronized state.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nhle/theora/internal/app"
)

var (
	configFlag string
	rootCmd    = &cobra.Command{
		Use:           "theora",
		Short:         "Local-first productivity and budget copilot",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.RunDashboard(ctx)
			})
		},
	}
)

// withApp builds the application for one command and closes it afterwards,
// flushing pending remote writes.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	a, err := app.New(ctx, app.Options{ConfigPath: configFlag})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			a.Log.Warn().Err(cerr).Msg("closing application")
		}
	}()
	return fn(ctx, a)
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "config file (default ~/.config/theora/config.yaml)")

	rootCmd.AddCommand(
		dashboardCmd(),
		statusCmd(),
		briefCmd(),
		chatCmd(),
		signinCmd(),
		signoutCmd(),
		todoCmd(),
		spendCmd(),
		notifyCmd(),
		keyCmd(),
		resetCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
