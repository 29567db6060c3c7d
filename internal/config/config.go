package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config is the resolved service configuration.
type Config struct {
	Port        string
	LogLevel    string
	DBPath      string
	SnapshotDir string
	Backend     BackendConfig
	Motion      MotionConfig
	Status      StatusConfig
	Poll        PollConfig
	Influx      InfluxConfig
}

// BackendConfig locates the actuator backend.
type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

// MotionConfig tunes the command path.
type MotionConfig struct {
	Debounce    time.Duration
	SweepSettle time.Duration
	SweepStep   int
	SweepDelay  float64
	NudgeStep   int
}

// StatusConfig tunes the status presenter.
type StatusConfig struct {
	TTL time.Duration
}

// PollConfig holds the reconciliation intervals.
type PollConfig struct {
	Positions time.Duration
	Health    time.Duration
}

// InfluxConfig enables telemetry when URL is non-empty.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

const envPrefix = "SERVOPANEL"

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("db.path", "servopanel.db")
	v.SetDefault("snapshot.dir", "~/.servopanel")
	v.SetDefault("backend.url", "http://localhost:5000")
	v.SetDefault("backend.timeout", 5*time.Second)
	v.SetDefault("motion.debounce", 150*time.Millisecond)
	v.SetDefault("motion.sweep_settle", 500*time.Millisecond)
	v.SetDefault("motion.sweep_step", 15)
	v.SetDefault("motion.sweep_delay", 0.05)
	v.SetDefault("motion.nudge_step", 5)
	v.SetDefault("status.ttl", 3*time.Second)
	v.SetDefault("poll.positions", 5*time.Second)
	v.SetDefault("poll.health", 10*time.Second)
	v.SetDefault("influx.org", "servopanel")
	v.SetDefault("influx.bucket", "servos")
}

// New returns a viper instance with defaults, env binding and the config
// search path applied. dir overrides the default "configs" directory.
func New(dir string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("configs")
	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads .env (if present), then configs/config.yml (if present), and
// resolves the final Config.
func Load(v *viper.Viper) (*Config, error) {
	_ = godotenv.Load()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	dbPath, err := homedir.Expand(v.GetString("db.path"))
	if err != nil {
		return nil, fmt.Errorf("db.path: %w", err)
	}
	snapshotDir, err := homedir.Expand(v.GetString("snapshot.dir"))
	if err != nil {
		return nil, fmt.Errorf("snapshot.dir: %w", err)
	}

	cfg := &Config{
		Port:        v.GetString("port"),
		LogLevel:    v.GetString("log.level"),
		DBPath:      dbPath,
		SnapshotDir: snapshotDir,
		Backend: BackendConfig{
			URL:     strings.TrimRight(v.GetString("backend.url"), "/"),
			Timeout: v.GetDuration("backend.timeout"),
		},
		Motion: MotionConfig{
			Debounce:    v.GetDuration("motion.debounce"),
			SweepSettle: v.GetDuration("motion.sweep_settle"),
			SweepStep:   v.GetInt("motion.sweep_step"),
			SweepDelay:  v.GetFloat64("motion.sweep_delay"),
			NudgeStep:   v.GetInt("motion.nudge_step"),
		},
		Status: StatusConfig{
			TTL: v.GetDuration("status.ttl"),
		},
		Poll: PollConfig{
			Positions: v.GetDuration("poll.positions"),
			Health:    v.GetDuration("poll.health"),
		},
		Influx: InfluxConfig{
			URL:    v.GetString("influx.url"),
			Token:  v.GetString("influx.token"),
			Org:    v.GetString("influx.org"),
			Bucket: v.GetString("influx.bucket"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Backend.URL == "" {
		return errors.New("backend.url must be set")
	}
	for name, d := range map[string]time.Duration{
		"backend.timeout": c.Backend.Timeout,
		"motion.debounce": c.Motion.Debounce,
		"status.ttl":      c.Status.TTL,
		"poll.positions":  c.Poll.Positions,
		"poll.health":     c.Poll.Health,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.Motion.SweepStep <= 0 {
		return fmt.Errorf("motion.sweep_step must be positive, got %v", c.Motion.SweepStep)
	}
	return nil
}
