package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"zerosum/config"
)

// listFlag collects a repeatable flag. Each value may also hold several
// space or comma separated items.
type listFlag []string

func (l *listFlag) String() string {
	return strings.Join(*l, " ")
}

func (l *listFlag) Set(value string) error {
	for _, item := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' }) {
		*l = append(*l, item)
	}
	return nil
}

type options struct {
	configPath      string
	args            config.Args
	calculateElos   bool
	bootstrapRounds int
	logLevel        string
	set             map[string]bool
}

func parseFlags(fs *flag.FlagSet, argv []string) (*options, error) {
	o := &options{}
	var players, gameKwargs, models listFlag

	fs.StringVar(&o.configPath, "config", "", "Path to a YAML run configuration")
	fs.StringVar(&o.configPath, "c", "", "Shorthand for --config")
	fs.StringVar(&o.args.Game, "game", "", "Name of the game to play")
	fs.StringVar(&o.args.Game, "g", "", "Shorthand for --game")
	fs.StringVar(&o.args.OutputDir, "output_dir", config.OutputDir, "Directory for logs and results")
	fs.StringVar(&o.args.OutputDir, "o", config.OutputDir, "Shorthand for --output_dir")
	fs.Var(&players, "players", "Role bindings as role=model, repeatable")
	fs.Var(&players, "p", "Shorthand for --players")
	fs.Var(&gameKwargs, "game_kwargs", "Game arguments as key=value, repeatable")
	fs.IntVar(&o.args.MaxRounds, "max_rounds", config.MaxRounds, "Maximum rounds per match")
	fs.IntVar(&o.args.MaxPlayerAttempts, "max_player_attempts", config.MaxPlayerAttempts, "Attempts a player gets per round")

	fs.BoolVar(&o.args.Pool, "pool", false, "Run a pool of matches across --models")
	fs.Var(&models, "models", "Models in the pool, repeatable")
	fs.Var(&models, "m", "Shorthand for --models")
	fs.IntVar(&o.args.MaxMatches, "max_matches", config.MaxMatches, "Matches in a pool run")
	fs.IntVar(&o.args.Concurrency, "concurrency", 1, "Matches played at once in a pool run")
	fs.IntVar(&o.args.WarmupMatches, "warmup_matches", 0, "Leading pool matches flagged as warm-up")
	fs.Uint64Var(&o.args.Seed, "seed", 0, "Seed for pairing, baseline players and rating; 0 picks one")

	fs.BoolVar(&o.calculateElos, "calculate_elos", false, "Calculate Elo ratings from the output directory")
	fs.IntVar(&o.bootstrapRounds, "bootstrap_rounds", config.BootstrapRounds, "Shuffled passes used to average ratings")
	fs.StringVar(&o.logLevel, "log_level", "info", "Log level: debug, info, warn or error")

	if err := fs.Parse(argv); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	o.args.Players = players
	o.args.GameKwargs = gameKwargs
	o.args.Models = models
	o.set = map[string]bool{}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

func (o *options) isSet(names ...string) bool {
	for _, n := range names {
		if o.set[n] {
			return true
		}
	}
	return false
}

// resolve builds the run configuration. A config file is the base and
// explicitly set flags override it.
func (o *options) resolve() (*config.Config, error) {
	if o.configPath == "" {
		return config.FromArgs(o.args)
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	m := &cfg.Manager
	if o.isSet("output_dir", "o") {
		m.OutputDir = o.args.OutputDir
	}
	if o.isSet("max_matches") {
		m.MaxMatches = o.args.MaxMatches
	}
	if o.isSet("max_rounds") {
		m.MaxRounds = o.args.MaxRounds
		m.MaxRoundsPerMatch = 0
	}
	if o.isSet("max_player_attempts") {
		m.MaxPlayerAttempts = o.args.MaxPlayerAttempts
	}
	if o.isSet("concurrency") {
		m.Concurrency = o.args.Concurrency
	}
	if o.isSet("warmup_matches") {
		m.WarmupMatches = o.args.WarmupMatches
	}
	if o.isSet("seed") {
		m.Seed = o.args.Seed
	}
	if o.isSet("game", "g") {
		cfg.Game.Name = o.args.Game
	}
	return cfg, nil
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "Usage:\n"+
			"  zerosum -g <game> -p role=model -p role=model [flags]\n"+
			"  zerosum -g <game> --pool -m model -m model [--calculate_elos] [flags]\n"+
			"  zerosum -c config.yaml [flags]\n"+
			"  zerosum --calculate_elos -o <output_dir>\n\nFlags:\n")
		fs.PrintDefaults()
	}
}
