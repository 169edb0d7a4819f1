package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/travigo/transitlog/pkg/util"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Resolver     ResolverConfig     `yaml:"resolver"`
	Segmentation SegmentationConfig `yaml:"segmentation"`
	Stationary   StationaryConfig   `yaml:"stationary"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Delay        DelayConfig        `yaml:"delay"`
}

// ProfileConfig is a nearest event tolerance / early exit pair
type ProfileConfig struct {
	Tolerance Duration `yaml:"tolerance" validate:"gte=0"`
	EarlyExit Duration `yaml:"earlyExit" validate:"gte=0"`
}

type ResolverConfig struct {
	// Strict is used where marker placement matters
	Strict ProfileConfig `yaml:"strict"`
	// Loose is used for coarse event selection
	Loose ProfileConfig `yaml:"loose"`
}

type SegmentationConfig struct {
	GapThreshold Duration `yaml:"gapThreshold" validate:"gte=0"`
}

type StationaryConfig struct {
	RadiusMeters float64  `yaml:"radiusMeters" validate:"gte=0"`
	MinDuration  Duration `yaml:"minDuration" validate:"gte=0"`
}

type SchedulerConfig struct {
	TickInterval  Duration `yaml:"tickInterval" validate:"gt=0"`
	TimeIncrement Duration `yaml:"timeIncrement" validate:"gte=0"`
	LiveTimeout   Duration `yaml:"liveTimeout" validate:"gte=0"`
}

type DelayConfig struct {
	// EarlyThreshold and LateThreshold are used when no Rules are configured
	EarlyThreshold Duration `yaml:"earlyThreshold" validate:"gte=0"`
	LateThreshold  Duration `yaml:"lateThreshold" validate:"gte=0"`

	// Rules are evaluated in order against the negated delay, the first matching label wins
	Rules    []DelayRule `yaml:"rules" validate:"dive"`
	Fallback string      `yaml:"fallback"`
}

type DelayRule struct {
	Label string `yaml:"label" validate:"required"`
	When  string `yaml:"when" validate:"required"`
}

func Default() *Config {
	return &Config{
		Resolver: ResolverConfig{
			Strict: ProfileConfig{Tolerance: Duration(30 * time.Second), EarlyExit: Duration(5 * time.Second)},
			Loose:  ProfileConfig{Tolerance: Duration(60 * time.Second), EarlyExit: Duration(5 * time.Second)},
		},
		Segmentation: SegmentationConfig{
			GapThreshold: Duration(60 * time.Second),
		},
		Stationary: StationaryConfig{
			RadiusMeters: 10,
			MinDuration:  Duration(300 * time.Second),
		},
		Scheduler: SchedulerConfig{
			TickInterval:  Duration(1 * time.Second),
			TimeIncrement: Duration(5 * time.Second),
			LiveTimeout:   Duration(300 * time.Second),
		},
		Delay: DelayConfig{
			EarlyThreshold: Duration(60 * time.Second),
			LateThreshold:  Duration(180 * time.Second),
			Fallback:       "on-time",
		},
	}
}

// Load builds the configuration from the defaults, an optional YAML file and the environment
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		configYaml, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := Decode(configYaml, config); err != nil {
			return nil, err
		}

		log.Info().Str("path", path).Msg("Loaded config file")
	}

	config.applyEnvironment(util.GetEnvironmentVariables())

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Decode overlays YAML onto an existing config so unset keys keep their defaults
func Decode(configYaml []byte, config *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(configYaml))
	decoder.KnownFields(true)

	if err := decoder.Decode(config); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}

	return nil
}

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

func (c *Config) applyEnvironment(env map[string]string) {
	if val, ok := util.EnvironmentDuration(env, "TRANSITLOG_TICK_INTERVAL"); ok {
		c.Scheduler.TickInterval = Duration(val)
	}

	if val, ok := util.EnvironmentDuration(env, "TRANSITLOG_TIME_INCREMENT"); ok {
		c.Scheduler.TimeIncrement = Duration(val)
	}

	if val, ok := util.EnvironmentDuration(env, "TRANSITLOG_LIVE_TIMEOUT"); ok {
		c.Scheduler.LiveTimeout = Duration(val)
	}

	if val, ok := util.EnvironmentDuration(env, "TRANSITLOG_GAP_THRESHOLD"); ok {
		c.Segmentation.GapThreshold = Duration(val)
	}

	if val, ok := util.EnvironmentFloat(env, "TRANSITLOG_STATIONARY_RADIUS_METERS"); ok {
		c.Stationary.RadiusMeters = val
	}

	if val, ok := util.EnvironmentDuration(env, "TRANSITLOG_STATIONARY_MIN_DURATION"); ok {
		c.Stationary.MinDuration = Duration(val)
	}
}
