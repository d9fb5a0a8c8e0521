package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/QQHKX/rollcall-module/config"
	"github.com/QQHKX/rollcall-module/game"
	"github.com/QQHKX/rollcall-module/logging"
	"github.com/QQHKX/rollcall-module/wire"
)

var (
	configFile string
	simDraws   int
	simSeed    int64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rollcalld",
		Short: "Classroom roll-call raffle service",
		Long: `rollcalld runs the roll-call raffle HTTP service: weighted rarity
draws over a student roster with a loot-box style reel animation plan,
no-repeat pool tracking and auto multi-draw sessions.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config/config.yaml", "path to the configuration file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run seeded draws and print the rarity/wear distribution",
		Long: `simulate draws repeatedly from a synthetic roster with a seeded
random source and prints the observed rarity and wear distributions next
to the configured probabilities. Useful for eyeballing a custom table.`,
		RunE: runSimulate,
	}
	simulateCmd.Flags().IntVarP(&simDraws, "draws", "n", 100000, "number of draws")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 1, "random seed")

	rootCmd.AddCommand(serveCmd, simulateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := wire.ProvideLogger(cfg)

	gameCfg, err := wire.ProvideGameConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to load raffle config: %w", err)
	}

	redisClient, err := wire.ProvideRedisClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	store := wire.ProvideStoreProvider(redisClient, gameCfg, logger)

	producer, err := wire.ProvideKafkaProducer(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	audioSvc := wire.ProvideAudioService(logger)

	svc, err := wire.ProvideRollcallService(cfg, gameCfg, store, producer, audioSvc, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize rollcall service: %w", err)
	}

	app := wire.ProvideApp(wire.ProvideServerOptions(cfg, logger, svc, audioSvc))
	app.UseCommonMiddlewares()
	app.RegisterHealthCheck()
	app.RegisterRollcallRoutes()

	if producer != nil {
		app.OnShutdown(func() {
			if err := producer.Close(); err != nil {
				logger.Error().Err(err).Msg("Error closing Kafka producer")
			}
		})
	}
	if redisClient != nil {
		app.OnShutdown(func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("Error closing Redis client")
			}
		})
	}

	return app.Run()
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		// simulation works without a deployment config
		cfg = &config.Config{}
	}

	gameCfg, err := wire.ProvideGameConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to load raffle config: %w", err)
	}

	logger := logging.NewDefault()
	rng := game.NewSeededSource(simSeed)
	model := game.NewModel(gameCfg.Rarities, gameCfg.Wears, rng, logger)

	rarityCounts := make(map[game.RarityTier]int)
	wearCounts := make(map[game.WearLevel]int)
	for i := 0; i < simDraws; i++ {
		rarityCounts[model.DrawRarity()]++
		wearCounts[model.DrawWearLevel()]++
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "rarity\tconfigured\tobserved\n")
	for _, t := range model.Tiers() {
		observed := float64(rarityCounts[t.Tier]) / float64(simDraws)
		fmt.Fprintf(w, "%s\t%s\t%.5f\n", t.Tier, t.Probability.String(), observed)
	}
	fmt.Fprintf(w, "\nwear\tconfigured\tobserved\n")
	for _, wl := range model.Wears() {
		observed := float64(wearCounts[wl.Level]) / float64(simDraws)
		fmt.Fprintf(w, "%s\t%s\t%.5f\n", wl.Level, wl.Probability.String(), observed)
	}
	return w.Flush()
}
