package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"zerosum/config"
	"zerosum/game"
	"zerosum/gamemaster"
	"zerosum/player"
	"zerosum/pool"
	"zerosum/rating"
	"zerosum/store"
	"zerosum/utils"
)

func main() {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("zerosum", flag.ExitOnError)
	fs.Usage = usage(fs)
	opts, err := parseFlags(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		var usageErr usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintln(os.Stderr, err)
			fs.Usage()
			os.Exit(2)
		}
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

type usageError string

func (e usageError) Error() string { return string(e) }

func run(ctx context.Context, opts *options, stdout io.Writer) error {
	cfg, err := opts.resolve()
	if err != nil {
		return err
	}

	isPool := opts.args.Pool || (opts.configPath != "" && len(cfg.LLMs) > 0 && len(cfg.Game.Args.Players) == 0)
	// Asking for ratings without a pool only rates existing logs.
	isSingle := !isPool && !opts.calculateElos && len(cfg.Game.Args.Players) > 0

	switch {
	case isPool || isSingle:
		if cfg.Game.Name == "" {
			return usageError("a game is required, set --game or game.name")
		}
	case opts.calculateElos:
		setupLogging(opts.logLevel, nil)
		ratings, err := rating.FromDir(cfg.Manager.OutputDir, ratingOptions(opts, cfg.Manager.Seed)...)
		if err != nil {
			return err
		}
		printRatings(stdout, ratings)
		return nil
	default:
		return usageError("nothing to do: bind players with -p, use --pool, or --calculate_elos")
	}

	prefix := "game"
	if isPool {
		prefix = "match_series"
	}
	logFile, err := openRunLog(cfg.Manager.OutputDir, prefix)
	if err != nil {
		return err
	}
	defer logFile.Close()
	setupLogging(opts.logLevel, logFile)

	llm, err := config.LoadLLM()
	if err != nil {
		return err
	}
	factory := &player.Factory{LLM: llm, Seed: cfg.Manager.Seed}
	registry := gamemaster.Games()

	if isSingle {
		gm := gamemaster.NewGameMaster(registry, factory.New)
		out, err := gm.RunGame(ctx, gamemaster.Options{
			Game:              cfg.Game.Name,
			Args:              game.Args(cfg.Game.GameKwargs()),
			Players:           cfg.Game.RoleModels(),
			MaxRounds:         cfg.Manager.RoundLimit(),
			MaxPlayerAttempts: cfg.Manager.MaxPlayerAttempts,
			OutputDir:         cfg.Manager.OutputDir,
		})
		if out.Rendered != "" {
			fmt.Fprintln(stdout, out.Rendered)
		}
		return err
	}

	index, err := store.Open(filepath.Join(cfg.Manager.OutputDir, "index.db"))
	if err != nil {
		return err
	}
	defer index.Close()

	args := game.Args(cfg.Game.GameKwargs())
	p, err := pool.New(pool.Config{
		NewGame:           func() (game.Game, error) { return registry.Build(cfg.Game.Name, args) },
		NewPlayer:         factory.New,
		Roster:            cfg.LLMs,
		MaxMatches:        cfg.Manager.MaxMatches,
		MaxRounds:         cfg.Manager.RoundLimit(),
		MaxPlayerAttempts: cfg.Manager.MaxPlayerAttempts,
		BootstrapRounds:   cfg.Manager.WarmupMatches,
		OutputDir:         cfg.Manager.OutputDir,
		Concurrency:       cfg.Manager.Concurrency,
		Seed:              cfg.Manager.Seed,
		Index:             index,
	})
	if err != nil {
		return err
	}
	report, err := p.Run(ctx)
	printReport(stdout, report)
	if err != nil {
		return err
	}

	if opts.calculateElos {
		ratings, err := rating.FromIndex(ctx, index, ratingOptions(opts, cfg.Manager.Seed)...)
		if err != nil {
			return err
		}
		printRatings(stdout, ratings)
	}
	return nil
}

func setupLogging(level string, file io.Writer) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	if file != nil {
		w = zerolog.MultiLevelWriter(w, file)
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

func openRunLog(dir, prefix string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, prefix+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	return f, nil
}

func printReport(w io.Writer, report pool.Report) {
	fmt.Fprintf(w, "%-32s %6s %6s %6s %6s\n", "model", "wins", "draws", "losses", "aborts")
	for _, model := range utils.SortedKeys(report.WDL) {
		wdl := report.WDL[model]
		fmt.Fprintf(w, "%-32s %6d %6d %6d %6d\n", model, wdl.Wins, wdl.Draws, wdl.Losses, wdl.Aborts)
	}
	fmt.Fprintf(w, "%d matches, %d aborted\n", report.Matches, len(report.Aborted))
}

func ratingOptions(opts *options, seed uint64) []rating.Option {
	return []rating.Option{
		rating.WithBootstrapRounds(opts.bootstrapRounds),
		rating.WithSeed(seed),
	}
}

func printRatings(w io.Writer, ratings rating.Ratings) {
	fmt.Fprintf(w, "%-32s %8s %8s %8s\n", "model", "rating", "std", "matches")
	for _, r := range ratings.Ranked() {
		fmt.Fprintf(w, "%-32s %8.1f %8.1f %8d\n", r.Model, r.Mean, r.Std, r.Matches)
	}
}
