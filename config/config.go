package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Catalogue CatalogueConfig
	Planner   PlannerConfig
	Prices    PricesConfig
	RateLimit RateLimitConfig
	Store     StoreConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CatalogueConfig holds food catalogue configuration
type CatalogueConfig struct {
	Path string `mapstructure:"path"`
}

// PlannerConfig holds the meal planning engine configuration surface
type PlannerConfig struct {
	HorizonDays      int      `mapstructure:"horizon_days"`
	MealSchedule     []string `mapstructure:"meal_schedule"`
	RepetitionWindow int      `mapstructure:"repetition_window"`
	ShortlistSize    int      `mapstructure:"shortlist_size"`
	CostWeight       float64  `mapstructure:"cost_weight"`
	NutritionWeight  float64  `mapstructure:"nutrition_weight"`
	DiversityWeight  float64  `mapstructure:"diversity_weight"`
	BudgetTolerance  float64  `mapstructure:"budget_tolerance"`
	MaxSubstitutions int      `mapstructure:"max_substitutions"`
	Borrowing        string   `mapstructure:"borrowing"` // "bidirectional" or "forward"
	Debug            bool     `mapstructure:"debug"`
}

// PricesConfig holds the market price feed configuration. An empty URL
// disables the feed and catalogue costs are used as-is.
type PricesConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // plan requests per minute per client IP
}

// StoreConfig holds generated-plan store configuration
type StoreConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/nutriplan/")

	v.SetEnvPrefix("NUTRIPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; env vars and defaults cover everything
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Catalogue defaults
	v.SetDefault("catalogue.path", "data/foods.yaml")

	// Planner defaults
	v.SetDefault("planner.horizon_days", 7)
	v.SetDefault("planner.meal_schedule", []string{"breakfast", "lunch", "dinner"})
	v.SetDefault("planner.repetition_window", 3)
	v.SetDefault("planner.shortlist_size", 10)
	v.SetDefault("planner.cost_weight", 0.4)
	v.SetDefault("planner.nutrition_weight", 0.4)
	v.SetDefault("planner.diversity_weight", 0.2)
	v.SetDefault("planner.budget_tolerance", 0.10)
	v.SetDefault("planner.max_substitutions", 3)
	v.SetDefault("planner.borrowing", "bidirectional")
	v.SetDefault("planner.debug", false)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)

	// Plan store defaults
	v.SetDefault("store.ttl", "24h")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Catalogue.Path == "" {
		return fmt.Errorf("catalogue path is required (set NUTRIPLAN_CATALOGUE_PATH)")
	}

	if config.Planner.HorizonDays <= 0 {
		return fmt.Errorf("planner horizon_days must be positive, got: %d", config.Planner.HorizonDays)
	}

	if len(config.Planner.MealSchedule) == 0 {
		return fmt.Errorf("planner meal_schedule must name at least one meal")
	}
	for _, meal := range config.Planner.MealSchedule {
		switch meal {
		case "breakfast", "lunch", "dinner", "snack":
		default:
			return fmt.Errorf("unknown meal type in meal_schedule: %s", meal)
		}
	}

	sum := config.Planner.CostWeight + config.Planner.NutritionWeight + config.Planner.DiversityWeight
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("planner objective weights must sum to 1.0, got: %v", sum)
	}

	if config.Planner.Borrowing != "bidirectional" && config.Planner.Borrowing != "forward" {
		return fmt.Errorf("planner borrowing must be 'bidirectional' or 'forward', got: %s", config.Planner.Borrowing)
	}

	if config.Planner.BudgetTolerance < 0 {
		return fmt.Errorf("planner budget_tolerance must be non-negative, got: %v", config.Planner.BudgetTolerance)
	}

	return nil
}
