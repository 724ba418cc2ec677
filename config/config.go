package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"leapfrog/game"
)

const (
	NetworkAlphaZero = "alphazero"
	NetworkMuZero    = "muzero"
)

// Config holds every tunable of the engine. Field tags are the keys accepted
// in the YAML file and by get_conf_str.
type Config struct {
	EnvBoardSize int `yaml:"env_board_size"`

	NNFileName        string `yaml:"nn_file_name"`
	NNTypeName        string `yaml:"nn_type_name"`
	NNOnnxLibraryPath string `yaml:"nn_onnx_library_path"`

	ActorNumSimulation             int     `yaml:"actor_num_simulation"`
	ActorMCTSThinkBatchSize        int     `yaml:"actor_mcts_think_batch_size"`
	ActorMCTSPuct                  float64 `yaml:"actor_mcts_puct"`
	ActorResignThreshold           float64 `yaml:"actor_resign_threshold"`
	ActorUseRandomRotationFeatures bool    `yaml:"actor_use_random_rotation_features"`
	ActorSelectActionByCount       bool    `yaml:"actor_select_action_by_count"`
	ActorSeed                      uint64  `yaml:"actor_seed"`
}

func Default() *Config {
	return &Config{
		EnvBoardSize:             game.DefaultBoardSize,
		NNTypeName:               NetworkAlphaZero,
		ActorNumSimulation:       50,
		ActorMCTSThinkBatchSize:  8,
		ActorMCTSPuct:            1.5,
		ActorResignThreshold:     -0.9,
		ActorSelectActionByCount: true,
		ActorSeed:                0,
	}
}

// Load reads a YAML file on top of the defaults. Keys missing from the file
// keep their default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if !game.ValidBoardSize(c.EnvBoardSize) {
		errs = append(errs, fmt.Errorf("env_board_size must be in [%d, %d], got %d", game.MinBoardSize, game.MaxBoardSize, c.EnvBoardSize))
	}
	if c.NNTypeName != NetworkAlphaZero && c.NNTypeName != NetworkMuZero {
		errs = append(errs, fmt.Errorf("unsupported nn_type_name %q", c.NNTypeName))
	}
	if c.ActorNumSimulation <= 0 {
		errs = append(errs, fmt.Errorf("actor_num_simulation must be positive, got %d", c.ActorNumSimulation))
	}
	if c.ActorMCTSThinkBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("actor_mcts_think_batch_size must be positive, got %d", c.ActorMCTSThinkBatchSize))
	}
	if c.ActorMCTSPuct <= 0 {
		errs = append(errs, fmt.Errorf("actor_mcts_puct must be positive, got %g", c.ActorMCTSPuct))
	}
	return errors.Join(errs...)
}

func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Get returns the YAML rendering of a single key.
func (c *Config) Get(key string) (string, bool) {
	values, err := c.values()
	if err != nil {
		return "", false
	}
	v, ok := values[key]
	if !ok {
		return "", false
	}
	return fmt.Sprint(v), true
}

// Keys lists every configuration key in sorted order.
func (c *Config) Keys() []string {
	values, err := c.values()
	if err != nil {
		return nil
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the configuration as "key=value" lines in key order.
func (c *Config) String() string {
	var sb strings.Builder
	for _, key := range c.Keys() {
		v, _ := c.Get(key)
		sb.WriteString(key + "=" + v + "\n")
	}
	return sb.String()
}

func (c *Config) values() (map[string]any, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return values, nil
}
