package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"hushbot/internal/utils"
)

type Config struct {
	DiscordToken    string         `yaml:"discord_token" env:"DISCORD_TOKEN"`
	DatabasePath    string         `yaml:"database_path" env:"DATABASE_PATH"`
	LogLevel        string         `yaml:"log_level" env:"LOG_LEVEL"`
	LogFile         string         `yaml:"log_file" env:"LOG_FILE"`
	RetentionDays   int            `yaml:"retention_days" env:"RETENTION_DAYS"`
	CooldownSeconds int            `yaml:"cooldown_seconds" env:"COOLDOWN_SECONDS"`
	Health          HealthConfig   `yaml:"health" envPrefix:"HEALTH_"`
	Sleep           SleepConfig    `yaml:"sleep" envPrefix:"SLEEP_"`
	Mute            MuteConfig     `yaml:"mute" envPrefix:"MUTE_"`
	Roulette        RouletteConfig `yaml:"roulette" envPrefix:"ROULETTE_"`
	Repeat          RepeatConfig   `yaml:"repeat" envPrefix:"REPEAT_"`
	Ambient         AmbientConfig  `yaml:"ambient" envPrefix:"AMBIENT_"`
	Templates       TemplateConfig `yaml:"templates"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Addr    string `yaml:"addr" env:"ADDR"`
}

type SleepConfig struct {
	Window        string `yaml:"window" env:"WINDOW"`
	Type          string `yaml:"type" env:"TYPE"` // static or until
	DurationHours int    `yaml:"duration_hours" env:"DURATION_HOURS"`
	UntilHour     int    `yaml:"until_hour" env:"UNTIL_HOUR"`
}

type MuteConfig struct {
	MinMinutes         int         `yaml:"min_minutes" env:"MIN_MINUTES"`
	MaxMinutes         int         `yaml:"max_minutes" env:"MAX_MINUTES"`
	MaxDurationSeconds int         `yaml:"max_duration_seconds" env:"MAX_DURATION_SECONDS"`
	BackfireRate       float64     `yaml:"backfire_rate" env:"BACKFIRE_RATE"`
	CriticalRate       float64     `yaml:"critical_rate" env:"CRITICAL_RATE"`
	ImmunityRate       float64     `yaml:"immunity_rate" env:"IMMUNITY_RATE"`
	ImmunityMinutes    int         `yaml:"immunity_minutes" env:"IMMUNITY_MINUTES"`
	SeasonalEnabled    bool        `yaml:"seasonal_enabled" env:"SEASONAL_ENABLED"`
	Chain              ChainConfig `yaml:"chain" envPrefix:"CHAIN_"`
}

type ChainConfig struct {
	Enabled         bool    `yaml:"enabled" env:"ENABLED"`
	ExpiryHours     int     `yaml:"expiry_hours" env:"EXPIRY_HOURS"`
	Multiplier      float64 `yaml:"multiplier" env:"MULTIPLIER"`
	Recursive       bool    `yaml:"recursive" env:"RECURSIVE"`
	GrantOnBackfire bool    `yaml:"grant_on_backfire" env:"GRANT_ON_BACKFIRE"`
}

type RouletteConfig struct {
	MaxParticipants    int    `yaml:"max_participants" env:"MAX_PARTICIPANTS"`
	Bullets            int    `yaml:"bullets" env:"BULLETS"`
	JoinTimeoutSeconds int    `yaml:"join_timeout_seconds" env:"JOIN_TIMEOUT_SECONDS"`
	JoinKeyword        string `yaml:"join_keyword" env:"JOIN_KEYWORD"`
}

type RepeatConfig struct {
	Enabled   bool    `yaml:"enabled" env:"ENABLED"`
	Window    string  `yaml:"window" env:"WINDOW"`
	Threshold float64 `yaml:"threshold" env:"THRESHOLD"`
	Spread    float64 `yaml:"spread" env:"SPREAD"`
	Targets   int     `yaml:"targets" env:"TARGETS"`
	Pick      string  `yaml:"pick" env:"PICK"` // last or random
}

type AmbientConfig struct {
	Enabled    bool    `yaml:"enabled" env:"ENABLED"`
	Window     string  `yaml:"window" env:"WINDOW"`
	BaseRate   float64 `yaml:"base_rate" env:"BASE_RATE"`
	RampFactor float64 `yaml:"ramp_factor" env:"RAMP_FACTOR"`
	MinProb    float64 `yaml:"min_prob" env:"MIN_PROB"`
	MaxProb    float64 `yaml:"max_prob" env:"MAX_PROB"`
}

type TemplateConfig struct {
	Self                  []string `yaml:"self"`
	Targeted              []string `yaml:"targeted"`
	Backfire              []string `yaml:"backfire"`
	Random                []string `yaml:"random"`
	Critical              []string `yaml:"critical"`
	Immune                []string `yaml:"immune"`
	AnnounceDeleteSeconds int      `yaml:"announce_delete_seconds" env:"ANNOUNCE_DELETE_SECONDS"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath:    "/data/hushbot.db",
		LogLevel:        "info",
		RetentionDays:   30,
		CooldownSeconds: 10,
		Health:          HealthConfig{Enabled: false, Addr: ":8080"},
		Sleep: SleepConfig{
			Window:        "0-8",
			Type:          "static",
			DurationHours: 8,
			UntilHour:     8,
		},
		Mute: MuteConfig{
			MinMinutes:         1,
			MaxMinutes:         30,
			MaxDurationSeconds: 86400,
			BackfireRate:       0.3,
			CriticalRate:       0.1,
			ImmunityRate:       0.05,
			ImmunityMinutes:    60,
			SeasonalEnabled:    true,
			Chain: ChainConfig{
				Enabled:         true,
				ExpiryHours:     24,
				Multiplier:      1.5,
				Recursive:       false,
				GrantOnBackfire: true,
			},
		},
		Roulette: RouletteConfig{
			MaxParticipants:    6,
			Bullets:            1,
			JoinTimeoutSeconds: 60,
			JoinKeyword:        "join",
		},
		Repeat: RepeatConfig{
			Enabled:   true,
			Window:    "9-23",
			Threshold: 7.5,
			Spread:    1.0,
			Targets:   2,
			Pick:      "last",
		},
		Ambient: AmbientConfig{
			Enabled:    false,
			Window:     "9-23",
			BaseRate:   0.05,
			RampFactor: 1.3,
			MinProb:    0.01,
			MaxProb:    0.15,
		},
		Templates: TemplateConfig{
			Self:                  []string{"{username} takes a vow of silence for {duration}."},
			Targeted:              []string{"{target} has been silenced for {duration}."},
			Backfire:              []string{"The spell rebounds. {username} is silenced for {duration}."},
			Random:                []string{"Fate picks {target}. Silence for {duration}."},
			Critical:              []string{"Critical hit! {target} is silenced for {duration}."},
			Immune:                []string{"{target} shrugs it off. Immunity holds."},
			AnnounceDeleteSeconds: 0,
		},
	}
}

// Load layers the YAML file over the defaults, then the environment over the
// YAML. The file is optional; a missing file is not an error.
func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := utils.ParseWindow(c.Sleep.Window); err != nil {
		return fmt.Errorf("sleep window: %w", err)
	}
	if _, err := utils.ParseWindow(c.Repeat.Window); err != nil {
		return fmt.Errorf("repeat window: %w", err)
	}
	if _, err := utils.ParseWindow(c.Ambient.Window); err != nil {
		return fmt.Errorf("ambient window: %w", err)
	}
	switch strings.ToLower(c.Sleep.Type) {
	case "static", "until":
		c.Sleep.Type = strings.ToLower(c.Sleep.Type)
	default:
		return fmt.Errorf("sleep type %q: must be static or until", c.Sleep.Type)
	}
	switch strings.ToLower(c.Repeat.Pick) {
	case "last", "random":
		c.Repeat.Pick = strings.ToLower(c.Repeat.Pick)
	default:
		return fmt.Errorf("repeat pick %q: must be last or random", c.Repeat.Pick)
	}

	for name, rate := range map[string]float64{
		"mute backfire_rate": c.Mute.BackfireRate,
		"mute critical_rate": c.Mute.CriticalRate,
		"mute immunity_rate": c.Mute.ImmunityRate,
		"ambient base_rate":  c.Ambient.BaseRate,
		"ambient min_prob":   c.Ambient.MinProb,
		"ambient max_prob":   c.Ambient.MaxProb,
	} {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("%s %v: must be within [0,1]", name, rate)
		}
	}
	if c.Ambient.MinProb > c.Ambient.MaxProb {
		return errors.New("ambient min_prob must not exceed max_prob")
	}
	// The ambient probability divides by base_rate, so zero is only
	// tolerable while the feature is off.
	if c.Ambient.Enabled && c.Ambient.BaseRate <= 0 {
		return errors.New("ambient base_rate must be positive when ambient is enabled")
	}

	if c.Mute.MinMinutes < 1 || c.Mute.MaxMinutes < c.Mute.MinMinutes {
		return errors.New("mute minutes range is invalid")
	}
	if c.Mute.MaxDurationSeconds < 60 {
		return errors.New("mute max_duration_seconds must be at least 60")
	}

	if c.Roulette.MaxParticipants < 2 || c.Roulette.MaxParticipants > 10 {
		return errors.New("roulette max_participants must be within [2,10]")
	}
	if c.Roulette.Bullets < 1 || c.Roulette.Bullets > c.Roulette.MaxParticipants-1 {
		return errors.New("roulette bullets must be within [1,max_participants-1]")
	}
	if c.Roulette.JoinTimeoutSeconds < 10 || c.Roulette.JoinTimeoutSeconds > 300 {
		return errors.New("roulette join_timeout_seconds must be within [10,300]")
	}

	if c.Sleep.DurationHours < 1 || c.Sleep.DurationHours > 24 {
		return errors.New("sleep duration_hours must be within [1,24]")
	}
	if c.Sleep.UntilHour < 0 || c.Sleep.UntilHour > 23 {
		return errors.New("sleep until_hour must be within [0,23]")
	}
	return nil
}

// BuildLogger mirrors the production JSON setup; when a log file is set the
// output is rotated with lumberjack and teed to stderr.
func BuildLogger(level, file string) (*zap.Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.MessageKey = "message"
	encoderCfg.LevelKey = "level"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	atomic := zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))

	if file == "" {
		cfg := zap.NewProductionConfig()
		cfg.Encoding = "json"
		cfg.EncoderConfig = encoderCfg
		cfg.Level = atomic
		return cfg.Build()
	}

	rotated := zapcore.AddSync(&lumberjack.Logger{
		Filename:   file,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
	})
	sink := zapcore.NewMultiWriteSyncer(rotated, zapcore.AddSync(os.Stderr))
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), sink, atomic)
	return zap.New(core), nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
