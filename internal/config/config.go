// Package config loads photorelay settings from .env, an optional YAML file,
// and the environment.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/takeshy/photorelay/internal/relay"
	"gopkg.in/yaml.v3"
)

const envPrefix = "PHOTORELAY_"

// DefaultExclusions are directory names never scanned on a phone or desktop
var DefaultExclusions = []string{
	"Android",
	".thumbnails",
	"WhatsApp Stickers",
	"cache",
	"Telegram",
}

// Config is built once at startup and not modified afterwards
type Config struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`

	DBPath          string `yaml:"db_path"`
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`

	RootDir    string   `yaml:"root_dir"`
	Exclusions []string `yaml:"exclusions"`

	MaxFileSizeMB        float64 `yaml:"max_file_size_mb"`
	PhotoCeilingMB       float64 `yaml:"photo_ceiling_mb"`
	PhotoCompressAboveMB float64 `yaml:"photo_compress_above_mb"`
	JPEGQuality          int     `yaml:"jpeg_quality"`

	PollInterval      time.Duration `yaml:"poll_interval"`
	CloudPollInterval time.Duration `yaml:"cloud_poll_interval"`
	ItemPause         time.Duration `yaml:"item_pause"`
	LocalItemPause    time.Duration `yaml:"local_item_pause"`
	ItemTimeout       time.Duration `yaml:"item_timeout"`
	OversizePolicy    string        `yaml:"oversize_policy"`
	TempDir           string        `yaml:"temp_dir"`
	NotifySummary     bool          `yaml:"notify_summary"`
	Verbose           bool          `yaml:"verbose"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		DBPath:               "history.db",
		CredentialsFile:      "credentials.json",
		TokenFile:            "token.json",
		RootDir:              ".",
		Exclusions:           append([]string(nil), DefaultExclusions...),
		MaxFileSizeMB:        50,
		PhotoCeilingMB:       10,
		PhotoCompressAboveMB: 9.5,
		JPEGQuality:          85,
		PollInterval:         5 * time.Second,
		CloudPollInterval:    time.Hour,
		ItemPause:            time.Second,
		LocalItemPause:       100 * time.Millisecond,
		ItemTimeout:          10 * time.Minute,
		OversizePolicy:       string(relay.OversizeRecord),
	}
}

// Load layers .env, the YAML file at path (optional), and environment
// variables over the defaults
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("WARN: failed to load .env: %v", err)
	}

	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.BotToken = getEnv("TELEGRAM_BOT_TOKEN", c.BotToken)
	c.ChatID = getEnv("TELEGRAM_CHAT_ID", c.ChatID)

	c.DBPath = getEnv(envPrefix+"DB", c.DBPath)
	c.CredentialsFile = getEnv(envPrefix+"CREDENTIALS", c.CredentialsFile)
	c.TokenFile = getEnv(envPrefix+"TOKEN_FILE", c.TokenFile)
	c.RootDir = getEnv(envPrefix+"ROOT", c.RootDir)
	c.OversizePolicy = getEnv(envPrefix+"OVERSIZE_POLICY", c.OversizePolicy)
	c.TempDir = getEnv(envPrefix+"TEMP_DIR", c.TempDir)

	if v := os.Getenv(envPrefix + "EXCLUDE"); v != "" {
		c.Exclusions = splitList(v)
	}

	var err error
	if c.MaxFileSizeMB, err = parseFloatEnv(envPrefix+"MAX_FILE_SIZE_MB", c.MaxFileSizeMB); err != nil {
		return err
	}
	if c.JPEGQuality, err = parseIntEnv(envPrefix+"JPEG_QUALITY", c.JPEGQuality); err != nil {
		return err
	}
	if c.PollInterval, err = parseDurationEnv(envPrefix+"POLL_INTERVAL", c.PollInterval); err != nil {
		return err
	}
	if c.CloudPollInterval, err = parseDurationEnv(envPrefix+"CLOUD_POLL_INTERVAL", c.CloudPollInterval); err != nil {
		return err
	}
	if c.ItemPause, err = parseDurationEnv(envPrefix+"ITEM_PAUSE", c.ItemPause); err != nil {
		return err
	}
	if c.LocalItemPause, err = parseDurationEnv(envPrefix+"LOCAL_ITEM_PAUSE", c.LocalItemPause); err != nil {
		return err
	}
	if c.ItemTimeout, err = parseDurationEnv(envPrefix+"ITEM_TIMEOUT", c.ItemTimeout); err != nil {
		return err
	}
	c.NotifySummary = parseBoolEnv(envPrefix+"NOTIFY_SUMMARY", c.NotifySummary)
	c.Verbose = parseBoolEnv(envPrefix+"VERBOSE", c.Verbose)

	return nil
}

// ValidateTelegram checks the settings every upload command needs
func (c *Config) ValidateTelegram() error {
	if c.BotToken == "" {
		return fmt.Errorf("bot token not provided. Use --bot-token flag or set TELEGRAM_BOT_TOKEN environment variable")
	}
	if c.ChatID == "" {
		return fmt.Errorf("chat ID not provided. Use --chat-id flag or set TELEGRAM_CHAT_ID environment variable")
	}
	return c.Validate()
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("ledger path must not be empty")
	}
	if c.MaxFileSizeMB <= 0 {
		return fmt.Errorf("max file size must be > 0")
	}
	if c.PhotoCeilingMB <= 0 || c.PhotoCompressAboveMB <= 0 {
		return fmt.Errorf("photo size limits must be > 0")
	}
	if c.PhotoCompressAboveMB > c.PhotoCeilingMB {
		return fmt.Errorf("photo compression threshold (%.2fMB) must not exceed the photo ceiling (%.2fMB)", c.PhotoCompressAboveMB, c.PhotoCeilingMB)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be between 1 and 100")
	}
	if c.PollInterval <= 0 || c.CloudPollInterval <= 0 {
		return fmt.Errorf("poll interval must be > 0")
	}
	if c.ItemPause < 0 || c.LocalItemPause < 0 {
		return fmt.Errorf("item pause must not be negative")
	}
	if c.ItemTimeout <= 0 {
		return fmt.Errorf("item timeout must be > 0")
	}
	if _, err := relay.ParseOversizePolicy(c.OversizePolicy); err != nil {
		return err
	}
	return nil
}

// RouterConfig converts the size settings to bytes
func (c *Config) RouterConfig() relay.RouterConfig {
	return relay.RouterConfig{
		MaxFileSize:        mbToBytes(c.MaxFileSizeMB),
		PhotoCeiling:       mbToBytes(c.PhotoCeilingMB),
		PhotoCompressAbove: mbToBytes(c.PhotoCompressAboveMB),
	}
}

// LocalPipelineConfig returns the loop settings for the filesystem relay
func (c *Config) LocalPipelineConfig() relay.PipelineConfig {
	return c.pipelineConfig(c.PollInterval, c.LocalItemPause)
}

// CloudPipelineConfig returns the loop settings for the photo-library relay
func (c *Config) CloudPipelineConfig() relay.PipelineConfig {
	return c.pipelineConfig(c.CloudPollInterval, c.ItemPause)
}

func (c *Config) pipelineConfig(poll, pause time.Duration) relay.PipelineConfig {
	policy, err := relay.ParseOversizePolicy(c.OversizePolicy)
	if err != nil {
		policy = relay.OversizeRecord
	}
	return relay.PipelineConfig{
		PollInterval:   poll,
		ItemPause:      pause,
		ItemTimeout:    c.ItemTimeout,
		OversizePolicy: policy,
		NotifySummary:  c.NotifySummary,
	}
}

func mbToBytes(mb float64) int64 {
	return int64(mb * 1024 * 1024)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key string, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		// bare numbers are seconds
		if n, nerr := strconv.Atoi(strings.TrimSpace(raw)); nerr == nil {
			return time.Duration(n) * time.Second, nil
		}
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func parseBoolEnv(key string, defaultValue bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("WARN: ignoring invalid %s=%q", key, raw)
		return defaultValue
	}
	return v
}
