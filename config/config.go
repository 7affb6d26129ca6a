// Package config holds run defaults and loads run configuration from YAML,
// environment variables and command-line arguments.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	MaxRounds         = 100
	MaxPlayerAttempts = 5
	MaxMatches        = 10
	BootstrapRounds   = 100
	OutputDir         = "./zse_outputs"

	EloBaseline = 1000.0
	EloK        = 32.0
)

type Config struct {
	Game    GameConfig    `yaml:"game"`
	Manager ManagerConfig `yaml:"manager"`
	LLMs    []ModelConfig `yaml:"llms"`
}

type GameConfig struct {
	Name string   `yaml:"name"`
	Args GameArgs `yaml:"args"`
}

// GameArgs holds the per-role player bindings for single games; every other
// key is passed to the game constructor.
type GameArgs struct {
	Players map[string]PlayerSpec `yaml:"players"`
	Extra   map[string]any        `yaml:",inline"`
}

type PlayerSpec struct {
	Args PlayerArgs `yaml:"args"`
}

type PlayerArgs struct {
	ID string `yaml:"id"`
	LM struct {
		Model string `yaml:"model"`
	} `yaml:"lm"`
}

type ManagerConfig struct {
	MaxMatches        int    `yaml:"max_matches" env:"ZSE_MAX_MATCHES"`
	MaxRounds         int    `yaml:"max_rounds" env:"ZSE_MAX_ROUNDS"`
	MaxRoundsPerMatch int    `yaml:"max_rounds_per_match"`
	MaxPlayerAttempts int    `yaml:"max_player_attempts" env:"ZSE_MAX_PLAYER_ATTEMPTS"`
	OutputDir         string `yaml:"output_dir" env:"ZSE_OUTPUT_DIR"`
	Concurrency       int    `yaml:"concurrency" env:"ZSE_CONCURRENCY"`
	WarmupMatches     int    `yaml:"warmup_matches"`
	Seed              uint64 `yaml:"seed" env:"ZSE_SEED"`
}

// ModelConfig is one roster entry: a stable name and the model reference a
// player is built from.
type ModelConfig struct {
	Name  string `yaml:"name"`
	Model string `yaml:"model"`
}

// RoundLimit resolves the per-match round ceiling; pool configs name it
// max_rounds_per_match.
func (m ManagerConfig) RoundLimit() int {
	if m.MaxRoundsPerMatch > 0 {
		return m.MaxRoundsPerMatch
	}
	if m.MaxRounds > 0 {
		return m.MaxRounds
	}
	return MaxRounds
}

// GameKwargs flattens the extra game arguments into strings.
func (g GameConfig) GameKwargs() map[string]string {
	out := make(map[string]string, len(g.Args.Extra))
	for k, v := range g.Args.Extra {
		out[k] = fmt.Sprint(v)
	}
	return out
}

// RoleModels returns role -> player spec, sorted by role for stable output.
func (g GameConfig) RoleModels() []RoleModel {
	out := make([]RoleModel, 0, len(g.Args.Players))
	for role, spec := range g.Args.Players {
		out = append(out, RoleModel{Role: role, ID: spec.Args.ID, Model: spec.Args.LM.Model})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out
}

type RoleModel struct {
	Role  string
	ID    string
	Model string
}

// Load reads a YAML config, expanding ${VAR} references from the environment,
// then applies environment overrides.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := ParseEnv(&cfg.Manager); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a config populated with the package defaults.
func Default() *Config {
	return &Config{
		Manager: ManagerConfig{
			MaxMatches:        MaxMatches,
			MaxRounds:         MaxRounds,
			MaxPlayerAttempts: MaxPlayerAttempts,
			OutputDir:         OutputDir,
			Concurrency:       1,
		},
	}
}

// ParseEnv loads configuration from environment variables. Fields whose
// variables are unset keep their current values.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Args mirrors the command-line surface.
type Args struct {
	Game              string
	OutputDir         string
	Players           []string // role=model
	GameKwargs        []string // key=value
	Models            []string
	MaxRounds         int
	MaxPlayerAttempts int
	MaxMatches        int
	Concurrency       int
	WarmupMatches     int
	Seed              uint64
	Pool              bool
}

// FromArgs builds a config from command-line arguments.
func FromArgs(a Args) (*Config, error) {
	cfg := Default()
	cfg.Game.Name = a.Game
	cfg.Manager.Seed = a.Seed
	if a.OutputDir != "" {
		cfg.Manager.OutputDir = a.OutputDir
	}
	if a.MaxRounds > 0 {
		cfg.Manager.MaxRounds = a.MaxRounds
	}
	if a.MaxPlayerAttempts > 0 {
		cfg.Manager.MaxPlayerAttempts = a.MaxPlayerAttempts
	}
	if a.Concurrency > 0 {
		cfg.Manager.Concurrency = a.Concurrency
	}

	extra := map[string]any{}
	for _, kv := range a.GameKwargs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("game argument %q is not key=value", kv)
		}
		extra[k] = v
	}
	cfg.Game.Args.Extra = extra

	if a.Pool {
		if a.MaxMatches > 0 {
			cfg.Manager.MaxMatches = a.MaxMatches
		}
		cfg.Manager.MaxRoundsPerMatch = a.MaxRounds
		cfg.Manager.WarmupMatches = a.WarmupMatches
		taken := map[string]bool{}
		for _, model := range a.Models {
			name := uniqueName(ShortName(model), taken)
			cfg.LLMs = append(cfg.LLMs, ModelConfig{Name: name, Model: model})
		}
	} else {
		cfg.Game.Args.Players = map[string]PlayerSpec{}
		for _, pair := range a.Players {
			role, model, ok := strings.Cut(pair, "=")
			if !ok || role == "" || model == "" {
				return nil, fmt.Errorf("player %q is not role=model", pair)
			}
			var spec PlayerSpec
			spec.Args.ID = role + "_" + ShortName(model)
			spec.Args.LM.Model = model
			cfg.Game.Args.Players[role] = spec
		}
	}

	if err := ParseEnv(&cfg.Manager); err != nil {
		return nil, err
	}
	return cfg, nil
}

// uniqueName returns base, or base_2, base_3 and so on when base is taken.
func uniqueName(base string, taken map[string]bool) string {
	name := base
	for n := 2; taken[name]; n++ {
		name = fmt.Sprintf("%s_%d", base, n)
	}
	taken[name] = true
	return name
}

// ShortName is the last path segment of a model reference,
// e.g. "openrouter/meta-llama/llama-3.3-70b" -> "llama-3.3-70b".
func ShortName(model string) string {
	if i := strings.LastIndex(model, "/"); i >= 0 {
		return model[i+1:]
	}
	return model
}
