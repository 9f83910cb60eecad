package loadgen

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/orris-inc/ticketstore/internal/infrastructure/config"
	"github.com/orris-inc/ticketstore/internal/shared/logger"
)

var (
	configFile string
	capacity   int
	policy     string
	producers  int
	requests   int
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Drive a ticket store with concurrent producers",
		Long:  `Launch an in-process ticket store, insert tickets from many producers at once, verify every id is distinct and readable, then shut the store down.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to config file (default ./configs/config.yaml)")
	cmd.Flags().IntVar(&capacity, "capacity", 0, "Transport capacity, 0 for unbounded")
	cmd.Flags().StringVar(&policy, "policy", "", "Backpressure policy (blocking, fail-fast)")
	cmd.Flags().IntVar(&producers, "producers", 0, "Number of concurrent producers")
	cmd.Flags().IntVar(&requests, "requests", 0, "Inserts per producer")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("capacity") {
		cfg.Store.TransportCapacity = capacity
	}
	if flags.Changed("policy") {
		cfg.Store.BackpressurePolicy = policy
	}
	if flags.Changed("producers") {
		cfg.Loadgen.Producers = producers
	}
	if flags.Changed("requests") {
		cfg.Loadgen.RequestsPerProducer = requests
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.NewLogger().Named("loadgen")
	log.Infow("starting load generation",
		"capacity", cfg.Store.TransportCapacity,
		"policy", cfg.Store.BackpressurePolicy,
		"producers", cfg.Loadgen.Producers,
		"requests_per_producer", cfg.Loadgen.RequestsPerProducer,
	)

	report, err := Run(ctx, cfg.Store, cfg.Loadgen, log)
	if err != nil {
		log.Errorw("load generation failed", "error", err)
		return err
	}

	log.Infow("load generation finished",
		"accepted", report.Accepted,
		"overload_retries", report.OverloadRetries,
		"stored", report.Stored,
		"elapsed", report.Elapsed,
	)
	return nil
}

