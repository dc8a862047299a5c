package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/wearsim/internal/config"
	"codeberg.org/mutker/wearsim/internal/errors"
	"codeberg.org/mutker/wearsim/internal/logger"
	"codeberg.org/mutker/wearsim/internal/mechanism"
	"codeberg.org/mutker/wearsim/internal/platform"
	"codeberg.org/mutker/wearsim/internal/results"
	"codeberg.org/mutker/wearsim/internal/sim"
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose)
	if !cfg.Debug && !cfg.Verbose {
		switch cfg.LogLevel {
		case "debug":
			logger.SetLogLevel(logger.DebugLevel)
		case "info":
			logger.SetLogLevel(logger.InfoLevel)
		case "warning":
			logger.SetLogLevel(logger.WarnLevel)
		case "error":
			logger.SetLogLevel(logger.ErrorLevel)
		}
	}
	logger.Debug().Msg("Config loaded")
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx); err != nil {
		logger.Error().Err(err).Msg("simulation failed")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	errFactory := errors.New()

	if cfg.Platform == "" {
		return errFactory.WithMessage(errors.ErrMissingConfig, "a platform description file is required (--platform)")
	}

	mechanisms, err := mechanism.FromNames(cfg.Mechanisms, mechanism.Files{
		Technology: cfg.TechnologyFile,
		NBTI:       cfg.NBTIParams,
		EM:         cfg.EMParams,
		HCI:        cfg.HCIParams,
		TDDB:       cfg.TDDBParams,
	})
	if err != nil {
		return err
	}

	logger.Info().Str("platform", cfg.Platform).Msg("Creating units")
	root, units, err := platform.Load(cfg.Platform, cfg.Delimiter())
	if err != nil {
		return err
	}

	logger.Info().Int("units", len(units)).Msg("Computing aging rates")
	for _, u := range units {
		if err := u.ComputeReliability(mechanisms); err != nil {
			return err
		}
	}

	engine, err := sim.New(root, units, sim.Options{
		Iterations: cfg.Iterations,
		Seed:       cfg.Seed,
	})
	if err != nil {
		return err
	}

	logger.Info().Int("iterations", cfg.Iterations).Msg("Running Monte Carlo simulation")
	if err := engine.Run(ctx); err != nil {
		return err
	}

	return report(root, units, mechanisms)
}

func report(root platform.Component, units []*platform.Unit, mechanisms []mechanism.Mechanism) error {
	// The time unit was validated at config load.
	conv := func(seconds float64) float64 {
		v, _ := results.ConvertTime(seconds, cfg.TimeUnits)
		return v
	}

	lifetimes := root.Lifetimes()
	lo, hi := lifetimes.Interval()
	fmt.Printf("Lifetime statistics for %s (%s)\n", root.Name(), cfg.TimeUnits)
	fmt.Printf("Mean: %g\n", conv(lifetimes.Mean()))
	fmt.Printf("Standard deviation: %g\n", conv(lifetimes.StdDev()))
	fmt.Printf("95%% confidence interval: [%g, %g]\n", conv(lo), conv(hi))

	if cfg.UnitRates != "" {
		columns := []results.UnitColumn{
			{Name: "mttf", Value: func(u *platform.Unit) float64 { return conv(u.Lifetimes().Mean()) }},
			{Name: "failures", Value: func(u *platform.Unit) float64 { return float64(u.Lifetimes().Len()) }},
			{Name: "alpha", Value: func(u *platform.Unit) float64 { return conv(u.FreshAgingRate()) }},
		}
		if err := results.WriteUnitCSV(cfg.UnitRates, units, columns); err != nil {
			return err
		}
	}

	if cfg.MechanismRates != "" {
		columns := make([]results.UnitColumn, 0, len(mechanisms))
		for _, m := range mechanisms {
			name := m.Name()
			columns = append(columns, results.UnitColumn{
				Name:  name,
				Value: func(u *platform.Unit) float64 { return conv(u.MechanismRate(name)) },
			})
		}
		if err := results.WriteUnitCSV(cfg.MechanismRates, units, columns); err != nil {
			return err
		}
	}

	if cfg.DumpTTFs != "" {
		if err := results.WriteTTFDump(cfg.DumpTTFs, root, units, cfg.TimeUnits); err != nil {
			return err
		}
	}

	if cfg.ResultsDB != "" {
		repoCfg := results.DefaultConfig()
		repoCfg.DBPath = cfg.ResultsDB
		repo, err := results.NewRepository(repoCfg, logger.Default())
		if err != nil {
			return err
		}
		if err := results.Store(repo, root); err != nil {
			repo.Close()
			return err
		}
		if err := repo.Close(); err != nil {
			return err
		}
	}

	return nil
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal")
	cancel()
}
