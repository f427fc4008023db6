package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var reconcileOnce bool

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run background workers",
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Re-check stale pending payments against the gateway",
	Long: `Periodically queries the payment gateway for orders that stayed PENDING
longer than the configured minimum age and applies the result, covering lost callbacks.`,
	Run: func(cmd *cobra.Command, args []string) {
		runReconcileWorker()
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileOnce, "once", false, "run a single sweep and exit")
	workerCmd.AddCommand(reconcileCmd)
}

func runReconcileWorker() {
	cfg, lg, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	sweeper := app.sweeper()

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		sweeper.Stop(shutdownCtx)
		app.shutdown(shutdownCtx)
	}

	if reconcileOnce {
		summary, err := sweeper.RunOnce(ctx)
		shutdown()
		if err != nil {
			lg.Error("reconcile sweep failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("checked=%d succeeded=%d failed=%d pending=%d errors=%d\n",
			summary.Checked, summary.Succeeded, summary.Failed, summary.Pending, summary.Errors)
		return
	}

	if err := sweeper.Start(ctx); err != nil {
		lg.Error("failed to start reconcile worker", "error", err)
		app.close()
		os.Exit(1)
	}
	lg.Info("reconcile worker started", "schedule", cfg.Reconciler.Schedule)

	<-ctx.Done()
	lg.Info("Received signal, stopping reconcile worker...")
	shutdown()
	lg.Info("Reconcile worker stopped")
}
