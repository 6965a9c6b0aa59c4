package config

import (
	"log"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Data      DataConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Logger    LoggerConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig selects the storage backend. Driver is one of
// "sqlite", "postgres" or "json".
type DatabaseConfig struct {
	Driver   string
	Path     string
	JSONDir  string
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
	SSLMode  string
}

// DataConfig locates the JSON seed files and the export mirror.
type DataConfig struct {
	Dir           string
	ProductsFile  string
	ArticlesFile  string
	MirrorEnabled bool
	MirrorDir     string
	MirrorFlat    bool
	SeedOnStart   bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	AdminPassword     string
	AdminPasswordHash string
	JWTSecret         string
	SessionTTL        int // in hours
}

type RateLimitConfig struct {
	LoginAttempts int
	WindowSeconds int
}

type LoggerConfig struct {
	File string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env != "production"
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "3000")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("DB_DRIVER", "sqlite")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DATA_DIR", "data")
	viper.SetDefault("MIRROR_ENABLED", true)
	viper.SetDefault("SEED_ON_START", true)
	viper.SetDefault("REDIS_ENABLED", false)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SESSION_TTL_HOURS", 24)
	viper.SetDefault("RATE_LIMIT_LOGIN_ATTEMPTS", 10)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	dataDir := viper.GetString("DATA_DIR")

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(viper.GetString("DB_DRIVER")),
			Path:     withDefault(viper.GetString("DB_PATH"), filepath.Join(dataDir, "app.db")),
			JSONDir:  withDefault(viper.GetString("DB_JSON_DIR"), filepath.Join(dataDir, "store")),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Data: DataConfig{
			Dir:           dataDir,
			ProductsFile:  withDefault(viper.GetString("PRODUCTS_FILE"), filepath.Join(dataDir, "products.json")),
			ArticlesFile:  withDefault(viper.GetString("ARTICLES_FILE"), filepath.Join(dataDir, "articles.json")),
			MirrorEnabled: viper.GetBool("MIRROR_ENABLED"),
			MirrorDir:     withDefault(viper.GetString("MIRROR_DIR"), filepath.Join(dataDir, "export")),
			MirrorFlat:    viper.GetBool("MIRROR_FLAT"),
			SeedOnStart:   viper.GetBool("SEED_ON_START"),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("REDIS_ENABLED"),
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Auth: AuthConfig{
			AdminPassword:     viper.GetString("ADMIN_PASSWORD"),
			AdminPasswordHash: viper.GetString("ADMIN_PASSWORD_HASH"),
			JWTSecret:         viper.GetString("JWT_SECRET"),
			SessionTTL:        viper.GetInt("SESSION_TTL_HOURS"),
		},
		RateLimit: RateLimitConfig{
			LoginAttempts: viper.GetInt("RATE_LIMIT_LOGIN_ATTEMPTS"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Logger: LoggerConfig{
			File: viper.GetString("LOG_FILE"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}
}

func withDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
