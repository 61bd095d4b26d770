// Package config supplies the static configuration for WellnessPipe.
//
// It loads the keyword-to-category tables, deny-lists, and numeric limits
// once at process start. The rest of the system treats the result as
// read-only input.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/BTreeMap/WellnessPipe/internal/models"
	"github.com/joho/godotenv"
)

// Default numeric limits.
const (
	// DefaultUpstreamTimeout bounds one call to the generation engine.
	DefaultUpstreamTimeout = 30 * time.Second
	// DefaultAPIAddr is the default HTTP listen address.
	DefaultAPIAddr = ":8080"
)

// CategoryRule binds one category to its keyword set. Keywords containing a
// space or hyphen are matched as phrases against the normalized utterance;
// single words are matched against the token set.
type CategoryRule struct {
	Category models.Category `json:"category"`
	Keywords []string        `json:"keywords"`
}

// Config holds all static configuration. Loaded once; read-only afterwards.
type Config struct {
	Routing            []CategoryRule `json:"routing"`
	DenyList           []string       `json:"deny_list"`
	MaxUtteranceLength int            `json:"max_utterance_length"`
	ChatHistoryCap     int            `json:"chat_history_cap"`
	UpstreamTimeout    time.Duration  `json:"-"`
	MaxUpstreamRetries int            `json:"max_upstream_retries"`

	// Collaborator settings from the environment.
	OpenAIKey        string `json:"-"`
	APIAddr          string `json:"-"`
	DatabaseURL      string `json:"-"`
	TwilioAccountSID string `json:"-"`
	TwilioAuthToken  string `json:"-"`
	TwilioFromNumber string `json:"-"`
}

// DefaultRouting returns the built-in keyword tables in the fixed priority
// order. The order is the tie-break policy: the first category whose keyword
// set intersects the utterance wins.
func DefaultRouting() []CategoryRule {
	return []CategoryRule{
		{Category: models.CategoryEscalation, Keywords: []string{
			"human", "human coach", "real trainer", "speak to someone",
			"talk to someone", "human help", "real person", "escalate",
		}},
		{Category: models.CategoryNutritionRisk, Keywords: []string{
			"diabetes", "diabetic", "allergy", "allergic", "medical condition",
			"blood pressure", "hypertension",
		}},
		{Category: models.CategoryInjury, Keywords: []string{
			"injury", "injured", "pain", "hurt", "physical limitation",
			"disability", "sprain", "recovering from",
		}},
		{Category: models.CategoryProgress, Keywords: []string{
			"progress", "completed", "finished", "accomplished", "achieved",
			"milestone", "how am i doing", "track",
		}},
		{Category: models.CategorySchedule, Keywords: []string{
			"schedule", "remind", "reminder", "check-in", "check in",
			"appointment", "calendar",
		}},
		{Category: models.CategoryMeal, Keywords: []string{
			"meal", "food", "diet", "eat", "nutrition", "recipe", "menu",
			"breakfast", "lunch", "dinner", "snack", "vegetarian", "vegan",
			"keto", "gluten-free", "hungry", "calories", "protein",
		}},
		{Category: models.CategoryWorkout, Keywords: []string{
			"workout", "exercise", "exercises", "training", "train", "gym",
			"cardio", "strength", "yoga", "running", "lifting", "hiit",
		}},
		{Category: models.CategoryGoal, Keywords: []string{
			"gain", "lose", "build muscle", "fitness", "get fit", "goal",
			"target weight",
		}},
	}
}

// DefaultDenyList returns the built-in input deny-list. Entries are matched
// case-insensitively as substrings.
func DefaultDenyList() []string {
	return []string{"steroids", "crash diet", "purge", "starve"}
}

// Default returns a Config with built-in tables and limits and no
// collaborator settings.
func Default() *Config {
	return &Config{
		Routing:            DefaultRouting(),
		DenyList:           DefaultDenyList(),
		MaxUtteranceLength: models.MaxUtteranceLength,
		ChatHistoryCap:     models.DefaultChatHistoryCap,
		UpstreamTimeout:    DefaultUpstreamTimeout,
		MaxUpstreamRetries: models.MaxUpstreamRetries,
		APIAddr:            DefaultAPIAddr,
	}
}

// Load builds the configuration from defaults, the environment (including a
// .env file when present), and an optional routing override file named by
// WELLNESSPIPE_ROUTING_FILE.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	cfg := Default()
	cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.TwilioAccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	cfg.TwilioAuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	cfg.TwilioFromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	if addr := os.Getenv("API_ADDR"); addr != "" {
		cfg.APIAddr = addr
	}

	if v := os.Getenv("WELLNESSPIPE_HISTORY_CAP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			slog.Warn("invalid WELLNESSPIPE_HISTORY_CAP, keeping default", "value", v)
		} else {
			cfg.ChatHistoryCap = n
		}
	}
	if v := os.Getenv("WELLNESSPIPE_UPSTREAM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			slog.Warn("invalid WELLNESSPIPE_UPSTREAM_TIMEOUT, keeping default", "value", v)
		} else {
			cfg.UpstreamTimeout = d
		}
	}

	if path := os.Getenv("WELLNESSPIPE_ROUTING_FILE"); path != "" {
		if err := cfg.loadRoutingFile(path); err != nil {
			return nil, fmt.Errorf("failed to load routing file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.Debug("configuration loaded",
		"categories", len(cfg.Routing),
		"deny_list", len(cfg.DenyList),
		"history_cap", cfg.ChatHistoryCap,
		"upstream_timeout", cfg.UpstreamTimeout)
	return cfg, nil
}

// loadRoutingFile replaces the routing tables and deny-list from a JSON file.
func (c *Config) loadRoutingFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var override struct {
		Routing  []CategoryRule `json:"routing"`
		DenyList []string       `json:"deny_list"`
	}
	if err := json.Unmarshal(data, &override); err != nil {
		return fmt.Errorf("invalid routing file %s: %w", path, err)
	}
	if len(override.Routing) > 0 {
		c.Routing = override.Routing
	}
	if len(override.DenyList) > 0 {
		c.DenyList = override.DenyList
	}
	slog.Info("routing tables loaded from file", "file", path, "categories", len(c.Routing))
	return nil
}

// Validate checks that the routing tables respect the fixed category order
// and that limits are sane.
func (c *Config) Validate() error {
	if c.MaxUtteranceLength <= 0 {
		return fmt.Errorf("max utterance length must be positive")
	}
	if c.ChatHistoryCap <= 0 {
		return fmt.Errorf("chat history cap must be positive")
	}
	rank := make(map[models.Category]int, len(models.CategoryPriority))
	for i, cat := range models.CategoryPriority {
		rank[cat] = i
	}
	prev := -1
	for _, rule := range c.Routing {
		r, ok := rank[rule.Category]
		if !ok {
			return fmt.Errorf("unknown routing category: %s", rule.Category)
		}
		if r <= prev {
			return fmt.Errorf("routing rules out of priority order at category %s", rule.Category)
		}
		prev = r
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("category %s has no keywords", rule.Category)
		}
	}
	return nil
}
