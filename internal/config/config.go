package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"example.com/stuckem/internal/game"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "STUCKEM"

// Config describes all runtime settings. Every key can be set by flag or by
// environment variable (STUCKEM_ prefix, dashes become underscores).
type Config struct {
	Env string // dev|prod

	Log struct {
		Format  string // text|json
		Verbose bool
	}

	HTTP struct {
		Bind              string
		Port              int
		ReadHeaderTimeout time.Duration
		IdleTimeout       time.Duration
		ShutdownTimeout   time.Duration
		PublicURL         string
	}

	Game struct {
		SecretWinner     string
		MaxNumber        int
		MinMaxNumber     int
		Hints            bool
		FeedbackTTL      time.Duration
		RestartTTL       time.Duration
		ConfirmTimeout   time.Duration
		TableIdleTimeout time.Duration
	}
}

// RegisterFlags adds every config key to fs with its default.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.String("env", "dev", "environment label: dev|prod (env: STUCKEM_ENV)")
	fs.String("log-format", "text", "log output format: text|json (env: STUCKEM_LOG_FORMAT)")
	fs.BoolP("verbose", "v", false, "enable debug logging (env: STUCKEM_VERBOSE)")

	fs.StringP("bind", "b", "127.0.0.1", "address to bind to (env: STUCKEM_BIND)")
	fs.IntP("port", "p", 8080, "port to listen on (env: STUCKEM_PORT)")
	fs.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout (env: STUCKEM_SHUTDOWN_TIMEOUT)")
	fs.String("public-url", "", "base URL encoded into share codes (env: STUCKEM_PUBLIC_URL)")

	fs.String("secret-winner", "", "player name to steer wins toward (env: STUCKEM_SECRET_WINNER or SECRET_WINNER)")
	fs.Int("max-number", 50, "default upper bound of the guessing range (env: STUCKEM_MAX_NUMBER)")
	fs.Int("min-max-number", 5, "smallest allowed upper bound (env: STUCKEM_MIN_MAX_NUMBER)")
	fs.Bool("hints", false, "higher/lower hints in exact mode (env: STUCKEM_HINTS)")
	fs.Duration("feedback-ttl", 1400*time.Millisecond, "how long a feedback cue stays visible (env: STUCKEM_FEEDBACK_TTL)")
	fs.Duration("restart-ttl", 1300*time.Millisecond, "how long the restart cue stays visible (env: STUCKEM_RESTART_TTL)")
	fs.Duration("confirm-timeout", 30*time.Second, "how long a confirmation prompt waits (env: STUCKEM_CONFIRM_TIMEOUT)")
	fs.Duration("table-idle-timeout", 60*time.Minute, "idle hosted tables are closed after this (env: STUCKEM_TABLE_IDLE_TIMEOUT)")
}

// Load resolves every key from fs, the environment and the defaults, in
// that order of precedence, and validates the result.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return Config{}, fmt.Errorf("bind flags: %w", err)
	}
	if err := v.BindEnv("secret-winner", EnvPrefix+"_SECRET_WINNER", "SECRET_WINNER"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	var c Config
	c.Env = v.GetString("env")
	c.Log.Format = v.GetString("log-format")
	c.Log.Verbose = v.GetBool("verbose")

	c.HTTP.Bind = v.GetString("bind")
	c.HTTP.Port = v.GetInt("port")
	c.HTTP.ReadHeaderTimeout = 5 * time.Second
	c.HTTP.IdleTimeout = 60 * time.Second
	c.HTTP.ShutdownTimeout = v.GetDuration("shutdown-timeout")
	c.HTTP.PublicURL = v.GetString("public-url")

	c.Game.SecretWinner = strings.TrimSpace(v.GetString("secret-winner"))
	c.Game.MaxNumber = v.GetInt("max-number")
	c.Game.MinMaxNumber = v.GetInt("min-max-number")
	c.Game.Hints = v.GetBool("hints")
	c.Game.FeedbackTTL = v.GetDuration("feedback-ttl")
	c.Game.RestartTTL = v.GetDuration("restart-ttl")
	c.Game.ConfirmTimeout = v.GetDuration("confirm-timeout")
	c.Game.TableIdleTimeout = v.GetDuration("table-idle-timeout")

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.HTTP.Port)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unsupported log format %q (want text|json)", c.Log.Format)
	}
	if c.Game.MinMaxNumber < 1 {
		return fmt.Errorf("min-max-number must be at least 1, got %d", c.Game.MinMaxNumber)
	}
	if c.Game.MinMaxNumber > game.MaxNumberCeiling || c.Game.MaxNumber > game.MaxNumberCeiling {
		return fmt.Errorf("max-number and min-max-number must not exceed %d", game.MaxNumberCeiling)
	}
	if c.Game.MaxNumber < c.Game.MinMaxNumber {
		return fmt.Errorf("max-number %d is below min-max-number %d", c.Game.MaxNumber, c.Game.MinMaxNumber)
	}
	if c.Game.FeedbackTTL <= 0 || c.Game.RestartTTL <= 0 {
		return errors.New("cue lifetimes must be positive")
	}
	if c.Game.ConfirmTimeout <= 0 {
		return errors.New("confirm-timeout must be positive")
	}
	if c.HTTP.PublicURL != "" {
		u, err := url.Parse(c.HTTP.PublicURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("public-url %q is not an absolute URL", c.HTTP.PublicURL)
		}
	}
	return nil
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.HTTP.Bind, strconv.Itoa(c.HTTP.Port))
}

// HTTPS reports whether the public URL is served over TLS.
func (c Config) HTTPS() bool {
	return strings.HasPrefix(c.HTTP.PublicURL, "https://")
}
