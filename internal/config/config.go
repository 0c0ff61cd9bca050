// internal/config/config.go
package config

import (
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Engine   EngineConfig
	Storage  StorageConfig
	Drive    DriveConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	// Backend selects the persistence gateway: "postgres" or "memory".
	Backend  string
	Driver   string
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxTx    int64
}

type AppConfig struct {
	DataDir   string
	LogLevel  string
	LogFormat string
}

type CacheConfig struct {
	Enabled             bool
	RedisURL            string
	RedisHost           string
	RedisPort           string
	RedisPassword       string
	RedisDB             int
	DashboardTTLSeconds int
}

// EngineConfig holds the withdrawal and lifecycle constants. They are read once
// and handed to the engine as an immutable value.
type EngineConfig struct {
	SafetyFactor     float64
	ShrinkFactor     float64
	ThawDays         int
	ShelfDays        int
	ErrorWindow      int
	ForecastLeadDays int
	DailyRoutineName string
	Workers          int
	TimeZone         string
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

type DriveConfig struct {
	CredentialsJSON string
	SalesFolderID   string
	ForecastFolder  string
	DownloadDir     string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		ensureDir(viper.GetString("APP_DATA_DIR"))

		instance = fromViper()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 15)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	viper.SetDefault("STORE_BACKEND", "postgres")
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "thawflow")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_CONCURRENT_TX", 10)

	viper.SetDefault("APP_DATA_DIR", "./data/output")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "console")

	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_DASHBOARD_TTL_SECONDS", 60)

	viper.SetDefault("ENGINE_SAFETY_FACTOR", 1.65)
	viper.SetDefault("ENGINE_SHRINK_FACTOR", 0.85)
	viper.SetDefault("ENGINE_THAW_DAYS", 2)
	viper.SetDefault("ENGINE_SHELF_DAYS", 2)
	viper.SetDefault("ENGINE_ERROR_WINDOW", 30)
	viper.SetDefault("ENGINE_FORECAST_LEAD_DAYS", 2)
	viper.SetDefault("ENGINE_DAILY_ROUTINE", "daily_flow")
	viper.SetDefault("ENGINE_WORKERS", 4)
	viper.SetDefault("ENGINE_TIMEZONE", "Local")

	viper.SetDefault("STORAGE_ENABLED", false)
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_USE_SSL", true)
	viper.SetDefault("STORAGE_PREFIX", "reports/")

	viper.SetDefault("DRIVE_DOWNLOAD_DIR", "./data/uploads/drive")
}

func fromViper() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Backend:  viper.GetString("STORE_BACKEND"),
			Driver:   viper.GetString("DB_DRIVER"),
			URL:      viper.GetString("DATABASE_URL"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
			MaxTx:    viper.GetInt64("DB_MAX_CONCURRENT_TX"),
		},
		App: AppConfig{
			DataDir:   viper.GetString("APP_DATA_DIR"),
			LogLevel:  viper.GetString("LOG_LEVEL"),
			LogFormat: viper.GetString("LOG_FORMAT"),
		},
		Cache: CacheConfig{
			Enabled:             viper.GetBool("CACHE_ENABLED"),
			RedisURL:            viper.GetString("REDIS_URL"),
			RedisHost:           viper.GetString("REDIS_HOST"),
			RedisPort:           viper.GetString("REDIS_PORT"),
			RedisPassword:       viper.GetString("REDIS_PASSWORD"),
			RedisDB:             viper.GetInt("REDIS_DB"),
			DashboardTTLSeconds: viper.GetInt("CACHE_DASHBOARD_TTL_SECONDS"),
		},
		Engine: EngineConfig{
			SafetyFactor:     viper.GetFloat64("ENGINE_SAFETY_FACTOR"),
			ShrinkFactor:     viper.GetFloat64("ENGINE_SHRINK_FACTOR"),
			ThawDays:         viper.GetInt("ENGINE_THAW_DAYS"),
			ShelfDays:        viper.GetInt("ENGINE_SHELF_DAYS"),
			ErrorWindow:      viper.GetInt("ENGINE_ERROR_WINDOW"),
			ForecastLeadDays: viper.GetInt("ENGINE_FORECAST_LEAD_DAYS"),
			DailyRoutineName: viper.GetString("ENGINE_DAILY_ROUTINE"),
			Workers:          viper.GetInt("ENGINE_WORKERS"),
			TimeZone:         viper.GetString("ENGINE_TIMEZONE"),
		},
		Storage: StorageConfig{
			Enabled:   viper.GetBool("STORAGE_ENABLED"),
			Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
			Bucket:    viper.GetString("STORAGE_BUCKET"),
			Region:    viper.GetString("STORAGE_REGION"),
			UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			Prefix:    viper.GetString("STORAGE_PREFIX"),
		},
		Drive: DriveConfig{
			CredentialsJSON: viper.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			SalesFolderID:   viper.GetString("DRIVE_SALES_FOLDER_ID"),
			ForecastFolder:  viper.GetString("DRIVE_FORECAST_FOLDER_ID"),
			DownloadDir:     viper.GetString("DRIVE_DOWNLOAD_DIR"),
		},
	}
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
