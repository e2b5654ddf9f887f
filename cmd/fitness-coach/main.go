package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ai-fitness-coach/internal/config"
	"ai-fitness-coach/internal/logger"
	"ai-fitness-coach/internal/wiring"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := &env{}
	err := newRootCmd(e).ExecuteContext(ctx)
	e.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is built once per invocation. Services are connected lazily so
// commands that only need configuration stay offline.
type env struct {
	cfg *config.Config
	log *logger.Logger
	svc *wiring.Services
}

func (e *env) services(ctx context.Context) (*wiring.Services, error) {
	if e.svc != nil {
		return e.svc, nil
	}
	svc, err := wiring.Build(ctx, e.cfg, e.log)
	if err != nil {
		return nil, err
	}
	e.svc = svc
	return svc, nil
}

func (e *env) close() {
	if e.svc != nil {
		e.svc.Close()
	}
	if e.log != nil {
		e.log.Sync()
	}
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "fitness-coach",
		Short:         "AI fitness coach: weekly plans, adjustments and workout catalog tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewFromEnv()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			log, err := logger.New(cfg.LogMode)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			e.cfg, e.log = cfg, log
			return nil
		},
	}

	root.AddCommand(
		newIngestCmd(e),
		newPlanCmd(e),
		newChatCmd(e),
		newHistoryCmd(e),
		newClipCmd(e),
		newUsageCmd(e),
		newMetricsCleanupCmd(e),
		newTokenCmd(e),
	)
	return root
}
