package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Tiles     TilesConfig
	Storage   StorageConfig
	GDAL      GDALConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins string // comma-separated
	ScratchDir     string
}

type TilesConfig struct {
	BaseURL     string
	Limit       int // max tiles per job
	Concurrency int // parallel tile downloads per job
	Timeout     int // seconds, per tile
}

type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, for R2/minio-compatible stores
	AccessKeyID     string
	SecretAccessKey string
}

type GDALConfig struct {
	BinDir  string // optional, directory containing the gdal binaries
	Timeout int    // seconds, per gdal invocation
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	TerrainPerHour int
}

// AllowedOriginList splits the configured comma-separated origin allow-list,
// trimming whitespace around each entry.
func (c *ServerConfig) AllowedOriginList() []string {
	if c.AllowedOrigins == "" {
		return nil
	}
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		origins = append(origins, strings.TrimSpace(p))
	}
	return origins
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("STORAGE_ACCESS_KEY_ID")
	readSecret("STORAGE_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.allowed_origins", "ALLOWED_ORIGINS")
	_ = viper.BindEnv("server.scratch_dir", "SCRATCH_DIR")
	_ = viper.BindEnv("tiles.base_url", "TILES_BASE_URL")
	_ = viper.BindEnv("tiles.limit", "TILES_LIMIT")
	_ = viper.BindEnv("tiles.concurrency", "TILES_CONCURRENCY")
	_ = viper.BindEnv("tiles.timeout", "TILES_TIMEOUT")
	_ = viper.BindEnv("storage.bucket", "STORAGE_BUCKET")
	_ = viper.BindEnv("storage.region", "STORAGE_REGION")
	_ = viper.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	_ = viper.BindEnv("storage.access_key_id", "STORAGE_ACCESS_KEY_ID")
	_ = viper.BindEnv("storage.secret_access_key", "STORAGE_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("gdal.bin_dir", "GDAL_BIN_DIR")
	_ = viper.BindEnv("gdal.timeout", "GDAL_TIMEOUT")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("ratelimit.terrain_per_hour", "RATELIMIT_TERRAIN_PER_HOUR")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("server.scratch_dir", os.TempDir())
	viper.SetDefault("tiles.base_url", "https://s3.amazonaws.com/elevation-tiles-prod/v2/geotiff")
	viper.SetDefault("tiles.limit", 50)
	viper.SetDefault("tiles.concurrency", 8)
	viper.SetDefault("tiles.timeout", 30)
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("gdal.timeout", 120)
	viper.SetDefault("ratelimit.terrain_per_hour", 20)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:           viper.GetString("server.port"),
			Env:            viper.GetString("server.env"),
			LogLevel:       viper.GetString("server.log_level"),
			AllowedOrigins: viper.GetString("server.allowed_origins"),
			ScratchDir:     viper.GetString("server.scratch_dir"),
		},
		Tiles: TilesConfig{
			BaseURL:     viper.GetString("tiles.base_url"),
			Limit:       viper.GetInt("tiles.limit"),
			Concurrency: viper.GetInt("tiles.concurrency"),
			Timeout:     viper.GetInt("tiles.timeout"),
		},
		Storage: StorageConfig{
			Bucket:          viper.GetString("storage.bucket"),
			Region:          viper.GetString("storage.region"),
			Endpoint:        viper.GetString("storage.endpoint"),
			AccessKeyID:     viper.GetString("storage.access_key_id"),
			SecretAccessKey: viper.GetString("storage.secret_access_key"),
		},
		GDAL: GDALConfig{
			BinDir:  viper.GetString("gdal.bin_dir"),
			Timeout: viper.GetInt("gdal.timeout"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			TerrainPerHour: viper.GetInt("ratelimit.terrain_per_hour"),
		},
	}

	return cfg, nil
}
