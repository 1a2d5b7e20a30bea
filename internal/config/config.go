package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host        string   `yaml:"host"`
		Port        int      `yaml:"port"`
		Env         string   `yaml:"env"`
		StaticDir   string   `yaml:"static_dir"`   // собранный SPA
		FrontendURL string   `yaml:"frontend_url"` // для redirect после оплаты
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`

	Store struct {
		Driver        string `yaml:"driver"` // memory, postgres, redis
		DatabaseURL   string `yaml:"database_url"`
		RedisAddr     string `yaml:"redis_addr"`
		RedisPassword string `yaml:"redis_password"`
		RedisDB       int    `yaml:"redis_db"`
		KeyPrefix     string `yaml:"key_prefix"`
	} `yaml:"store"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // минуты
	} `yaml:"jwt"`

	Gemini struct {
		APIKey         string  `yaml:"api_key"`
		AnalysisModel  string  `yaml:"analysis_model"`
		ChatModel      string  `yaml:"chat_model"`
		ImageModel     string  `yaml:"image_model"`
		LiveModel      string  `yaml:"live_model"`
		ReportModel    string  `yaml:"report_model"`
		TrendsModel    string  `yaml:"trends_model"`
		CommunityModel string  `yaml:"community_model"`
		RatePerSecond  float64 `yaml:"rate_per_second"`
		Burst          int     `yaml:"burst"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
	} `yaml:"gemini"`

	Storage struct {
		Type       string `yaml:"type"`        // local, s3, cloudflare_r2
		BasePath   string `yaml:"base_path"`   // For local storage
		BaseURL    string `yaml:"base_url"`    // Public URL base
		Bucket     string `yaml:"bucket"`      // For S3/R2
		Region     string `yaml:"region"`      // For S3
		AccessKey  string `yaml:"access_key"`  // For S3/R2
		SecretKey  string `yaml:"secret_key"`  // For S3/R2
		Endpoint   string `yaml:"endpoint"`    // For R2 or custom S3
		PublicRead bool   `yaml:"public_read"` // Make files public
	} `yaml:"storage"`

	Stripe struct {
		SecretKey     string `yaml:"secret_key"`
		WebhookSecret string `yaml:"webhook_secret"`
		PriceID       string `yaml:"price_id"`
	} `yaml:"stripe"`

	Limits struct {
		AIRequestsPerMinute int `yaml:"ai_requests_per_minute"` // на пользователя
		AIBurst             int `yaml:"ai_burst"`
		ThumbnailWidth      int `yaml:"thumbnail_width"`
		ImageQuality        int `yaml:"image_quality"` // JPEG quality (1-100)
	} `yaml:"limits"`
}

var AppConfig *Config

// LoadConfig читает YAML (CONFIG_PATH или config/config.yaml) и переменные окружения.
// Если файла нет, конфигурация собирается только из окружения.
func LoadConfig() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config from %s: %v", configPath, err)
	}
	AppConfig = cfg
}

// Load собирает конфигурацию: файл (если есть) -> окружение -> значения по умолчанию
func Load(path string) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		log.Printf("Config file %s not found, using environment only", path)
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Store.DatabaseURL, "DATABASE_URL")
	setString(&cfg.Store.RedisAddr, "REDIS_ADDR")
	setString(&cfg.Store.Driver, "STORE_DRIVER")
	setString(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&cfg.JWT.Secret, "JWT_SECRET")
	setString(&cfg.Stripe.SecretKey, "STRIPE_SECRET_KEY")
	setString(&cfg.Stripe.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
	setString(&cfg.Stripe.PriceID, "STRIPE_PRICE_ID")
	setString(&cfg.Server.FrontendURL, "FRONTEND_URL")
	setString(&cfg.Server.Env, "SERVER_ENV")
	setString(&cfg.Server.StaticDir, "STATIC_DIR")

	if portStr := os.Getenv("SERVER_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Server.Port = port
		}
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = strings.Split(origins, ",")
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Env == "" {
		cfg.Server.Env = "development"
	}
	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = "./dist"
	}
	if cfg.Server.FrontendURL == "" {
		cfg.Server.FrontendURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{cfg.Server.FrontendURL}
	}

	if cfg.Store.Driver == "" {
		switch {
		case cfg.Store.DatabaseURL != "":
			cfg.Store.Driver = "postgres"
		case cfg.Store.RedisAddr != "":
			cfg.Store.Driver = "redis"
		default:
			cfg.Store.Driver = "memory"
		}
	}
	if cfg.Store.KeyPrefix == "" {
		cfg.Store.KeyPrefix = "dreamweaver"
	}

	if cfg.JWT.TTL == 0 {
		cfg.JWT.TTL = 60 * 24 * 7
	}

	if cfg.Gemini.AnalysisModel == "" {
		cfg.Gemini.AnalysisModel = "gemini-2.5-pro"
	}
	if cfg.Gemini.ChatModel == "" {
		cfg.Gemini.ChatModel = "gemini-2.5-flash"
	}
	if cfg.Gemini.ImageModel == "" {
		cfg.Gemini.ImageModel = "imagen-4.0-generate-001"
	}
	if cfg.Gemini.LiveModel == "" {
		cfg.Gemini.LiveModel = "gemini-2.5-flash-native-audio-preview-09-2025"
	}
	if cfg.Gemini.ReportModel == "" {
		cfg.Gemini.ReportModel = "gemini-2.5-pro"
	}
	if cfg.Gemini.TrendsModel == "" {
		cfg.Gemini.TrendsModel = "gemini-2.5-flash"
	}
	if cfg.Gemini.CommunityModel == "" {
		cfg.Gemini.CommunityModel = "gemini-2.5-flash"
	}
	if cfg.Gemini.RatePerSecond == 0 {
		cfg.Gemini.RatePerSecond = 5
	}
	if cfg.Gemini.Burst == 0 {
		cfg.Gemini.Burst = 10
	}
	if cfg.Gemini.TimeoutSeconds == 0 {
		cfg.Gemini.TimeoutSeconds = 120
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.BasePath == "" {
		cfg.Storage.BasePath = "./uploads"
	}
	if cfg.Storage.BaseURL == "" {
		cfg.Storage.BaseURL = "/files"
	}

	if cfg.Limits.AIRequestsPerMinute == 0 {
		cfg.Limits.AIRequestsPerMinute = 20
	}
	if cfg.Limits.AIBurst == 0 {
		cfg.Limits.AIBurst = 5
	}
	if cfg.Limits.ThumbnailWidth == 0 {
		cfg.Limits.ThumbnailWidth = 400
	}
	if cfg.Limits.ImageQuality == 0 {
		cfg.Limits.ImageQuality = 85
	}
}

// IsProduction - скрывать ли детали внутренних ошибок
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
