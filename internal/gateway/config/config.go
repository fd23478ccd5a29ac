package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port           string        `yaml:"port"`
	Env            string        `yaml:"env"`
	LogLevel       string        `yaml:"logLevel"`
	MaxUploadBytes int64         `yaml:"maxUploadBytes"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
	Gemini         GeminiConfig  `yaml:"gemini"`
	Lead           LeadConfig    `yaml:"lead"`
	Session        SessionConfig `yaml:"session"`
	Render         RenderConfig  `yaml:"render"`
}

// GeminiConfig never holds the API key; see APIKey.
type GeminiConfig struct {
	AnalysisModel   string        `yaml:"analysisModel"`
	ImageModel      string        `yaml:"imageModel"`
	AnalysisTimeout time.Duration `yaml:"analysisTimeout"`
	RenderTimeout   time.Duration `yaml:"renderTimeout"`
	// Fake swaps the model for canned responses. Local development only.
	Fake bool `yaml:"fake"`
}

type LeadConfig struct {
	WebhookURL string        `yaml:"webhookUrl"`
	Timeout    time.Duration `yaml:"timeout"`
	Timezone   string        `yaml:"timezone"`
}

type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"`
	Max int           `yaml:"max"`
}

type RenderConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Endpoint  string        `yaml:"endpoint"`
	Region    string        `yaml:"region"`
	AccessKey string        `yaml:"accessKey"`
	SecretKey string        `yaml:"secretKey"`
	Bucket    string        `yaml:"bucket"`
	UseSSL    bool          `yaml:"useSSL"`
	URLExpiry time.Duration `yaml:"urlExpiry"`
}

// Load builds the config from defaults, an optional YAML file and the
// environment, in increasing priority. A .env file is honoured when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	env := firstNonEmpty(strings.TrimSpace(os.Getenv("APP_ENV")), "local")
	cfg := defaults()
	if strings.EqualFold(env, "local") {
		cfg = localConfig()
	}
	cfg.Env = env

	path = firstNonEmpty(strings.TrimSpace(path), strings.TrimSpace(os.Getenv("LUXESPACE_CONFIG")))
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.Port = normalizePort(cfg.Port)
	cfg.Render.Enabled = cfg.Render.Enabled || strings.TrimSpace(cfg.Render.Endpoint) != ""
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// APIKey reads the model credential at call time.
func APIKey() string {
	return strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
}

// Location is the operator's time zone used for lead timestamps.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(firstNonEmpty(strings.TrimSpace(c.Lead.Timezone), "Asia/Ho_Chi_Minh"))
	if err != nil {
		return nil, fmt.Errorf("lead timezone: %w", err)
	}
	return loc, nil
}

func defaults() Config {
	return Config{
		Port:           ":8081",
		LogLevel:       "info",
		MaxUploadBytes: 10 << 20,
		Gemini: GeminiConfig{
			AnalysisModel:   "gemini-2.5-flash",
			ImageModel:      "gemini-2.5-flash-image",
			AnalysisTimeout: 60 * time.Second,
			RenderTimeout:   90 * time.Second,
		},
		Lead: LeadConfig{
			Timeout:  15 * time.Second,
			Timezone: "Asia/Ho_Chi_Minh",
		},
		Session: SessionConfig{
			TTL: 2 * time.Hour,
			Max: 10000,
		},
		Render: RenderConfig{
			Region:    "us-east-1",
			Bucket:    "luxespace-renders",
			UseSSL:    true,
			URLExpiry: time.Hour,
		},
	}
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.Gemini.AnalysisModel, "GEMINI_ANALYSIS_MODEL")
	setString(&cfg.Gemini.ImageModel, "GEMINI_IMAGE_MODEL")
	setString(&cfg.Lead.WebhookURL, "LEAD_WEBHOOK_URL")
	setString(&cfg.Lead.Timezone, "LEAD_TIMEZONE")
	setString(&cfg.Render.Endpoint, "RENDER_S3_ENDPOINT")
	setString(&cfg.Render.Region, "RENDER_S3_REGION")
	setString(&cfg.Render.AccessKey, "RENDER_S3_ACCESS_KEY")
	setString(&cfg.Render.SecretKey, "RENDER_S3_SECRET_KEY")
	setString(&cfg.Render.Bucket, "RENDER_S3_BUCKET")

	for _, d := range []struct {
		dst *time.Duration
		key string
	}{
		{&cfg.Gemini.AnalysisTimeout, "ANALYSIS_TIMEOUT"},
		{&cfg.Gemini.RenderTimeout, "RENDER_TIMEOUT"},
		{&cfg.Lead.Timeout, "LEAD_TIMEOUT"},
		{&cfg.Session.TTL, "SESSION_TTL"},
		{&cfg.Render.URLExpiry, "RENDER_URL_EXPIRY"},
	} {
		if err := setDuration(d.dst, d.key); err != nil {
			return err
		}
	}
	if err := setBool(&cfg.Gemini.Fake, "GEMINI_FAKE"); err != nil {
		return err
	}
	if err := setBool(&cfg.Render.UseSSL, "RENDER_S3_USE_SSL"); err != nil {
		return err
	}
	if raw := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); raw != "" {
		cfg.AllowedOrigins = strings.Split(raw, ",")
	}
	if raw := strings.TrimSpace(os.Getenv("SESSION_MAX")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("SESSION_MAX: %w", err)
		}
		cfg.Session.Max = n
	}
	if raw := strings.TrimSpace(os.Getenv("MAX_UPLOAD_BYTES")); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
		cfg.MaxUploadBytes = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func setBool(dst *bool, key string) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = v
	return nil
}

func normalizePort(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		return ":8081"
	}
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
