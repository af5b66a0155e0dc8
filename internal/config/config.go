package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	HTTP struct {
		Host string
		Port string
	}

	Engine Engine
}

// Engine holds the tuning knobs of the matching engine itself.
// Validated at startup; a misconfigured engine refuses to boot rather
// than silently distorting scores or limits.
type Engine struct {
	Weights Weights

	DailyLikes      int `validate:"min=1"`
	DailySuperLikes int `validate:"min=0"`
	DailyPasses     int `validate:"min=0"` // 0 = unlimited

	UndoWindow   time.Duration `validate:"min=1000000000"`
	LockStripes  int           `validate:"min=1"`
	StandoutSize int           `validate:"min=1"`
	PoolLimit    int           `validate:"min=1"`

	// Reswipe controls which previous swipes exclude a candidate:
	// "ever" excludes anyone the seeker ever decided on, "daily" only
	// swipes from the current day.
	Reswipe string `validate:"oneof=ever daily"`

	// Reply-rate thresholds used by the responsiveness sub-score.
	ResponsiveWeek  float64 `validate:"gte=0,lte=1"`
	ResponsiveMonth float64 `validate:"gte=0,lte=1"`

	// Fallback timezone for day keys when a profile has none.
	DayZone string `validate:"required"`
}

// Weights are the match-quality factor weights. They must sum to 1.0.
type Weights struct {
	Distance       float64 `validate:"gte=0,lte=1"`
	Age            float64 `validate:"gte=0,lte=1"`
	Interests      float64 `validate:"gte=0,lte=1"`
	Lifestyle      float64 `validate:"gte=0,lte=1"`
	Pace           float64 `validate:"gte=0,lte=1"`
	Responsiveness float64 `validate:"gte=0,lte=1"`
}

// Sum returns the total of all factor weights.
func (w Weights) Sum() float64 {
	return w.Distance + w.Age + w.Interests + w.Lifestyle + w.Pace + w.Responsiveness
}

func New() *Config {
	// Optional .env for local development; real env vars always win.
	_ = godotenv.Load()

	cfg := &Config{}

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "match_engine")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "sparkmatch")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	if dbStr := getEnvDefault("REDIS_DB", "0"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = dbInt
		}
	}

	// HTTP
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "127.0.0.1")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8080")

	cfg.Engine = DefaultEngine()
	cfg.Engine.DailyLikes = getEnvInt("ENGINE_DAILY_LIKES", cfg.Engine.DailyLikes)
	cfg.Engine.DailySuperLikes = getEnvInt("ENGINE_DAILY_SUPERLIKES", cfg.Engine.DailySuperLikes)
	cfg.Engine.DailyPasses = getEnvInt("ENGINE_DAILY_PASSES", cfg.Engine.DailyPasses)
	cfg.Engine.UndoWindow = getEnvDuration("ENGINE_UNDO_WINDOW", cfg.Engine.UndoWindow)
	cfg.Engine.LockStripes = getEnvInt("ENGINE_LOCK_STRIPES", cfg.Engine.LockStripes)
	cfg.Engine.StandoutSize = getEnvInt("ENGINE_STANDOUT_SIZE", cfg.Engine.StandoutSize)
	cfg.Engine.PoolLimit = getEnvInt("ENGINE_POOL_LIMIT", cfg.Engine.PoolLimit)
	cfg.Engine.Reswipe = getEnvDefault("ENGINE_RESWIPE", cfg.Engine.Reswipe)
	cfg.Engine.ResponsiveWeek = getEnvFloat("ENGINE_RESPONSIVE_WEEK", cfg.Engine.ResponsiveWeek)
	cfg.Engine.ResponsiveMonth = getEnvFloat("ENGINE_RESPONSIVE_MONTH", cfg.Engine.ResponsiveMonth)
	cfg.Engine.DayZone = getEnvDefault("ENGINE_DAY_ZONE", cfg.Engine.DayZone)
	cfg.Engine.Weights.Distance = getEnvFloat("ENGINE_WEIGHT_DISTANCE", cfg.Engine.Weights.Distance)
	cfg.Engine.Weights.Age = getEnvFloat("ENGINE_WEIGHT_AGE", cfg.Engine.Weights.Age)
	cfg.Engine.Weights.Interests = getEnvFloat("ENGINE_WEIGHT_INTERESTS", cfg.Engine.Weights.Interests)
	cfg.Engine.Weights.Lifestyle = getEnvFloat("ENGINE_WEIGHT_LIFESTYLE", cfg.Engine.Weights.Lifestyle)
	cfg.Engine.Weights.Pace = getEnvFloat("ENGINE_WEIGHT_PACE", cfg.Engine.Weights.Pace)
	cfg.Engine.Weights.Responsiveness = getEnvFloat("ENGINE_WEIGHT_RESPONSIVENESS", cfg.Engine.Weights.Responsiveness)

	return cfg
}

// DefaultEngine returns the stock engine tuning.
func DefaultEngine() Engine {
	return Engine{
		Weights: Weights{
			Distance:       0.30,
			Age:            0.20,
			Interests:      0.20,
			Lifestyle:      0.15,
			Pace:           0.10,
			Responsiveness: 0.05,
		},
		DailyLikes:      100,
		DailySuperLikes: 5,
		DailyPasses:     0,
		UndoWindow:      2 * time.Minute,
		LockStripes:     1024,
		StandoutSize:    10,
		PoolLimit:       500,
		Reswipe:         "ever",
		ResponsiveWeek:  0.7,
		ResponsiveMonth: 0.4,
		DayZone:         "UTC",
	}
}

// Validate checks the engine tuning. Called once at startup and by
// anything constructing an engine by hand (tests, seed tooling).
func (e Engine) Validate() error {
	if err := validator.New().Struct(e); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	if math.Abs(e.Weights.Sum()-1.0) > 1e-9 {
		return fmt.Errorf("engine config: weights must sum to 1.0, got %v", e.Weights.Sum())
	}
	if _, err := time.LoadLocation(e.DayZone); err != nil {
		return fmt.Errorf("engine config: invalid day zone %q: %w", e.DayZone, err)
	}
	return nil
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(k string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
