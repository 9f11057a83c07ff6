package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	DataDir       string
	RecordingsDir string // permanent audio files: <RecordingsDir>/<id>.aac
	TempDir       string // capture scratch space

	// Recording-list store
	StoreDriver string // sqlite, mysql or redis
	SQLitePath  string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisKey      string

	// Audio file store
	AudioStore     string // local or minio
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// Transcription
	TranscribeProvider string // deepgram or voxtral
	DeepgramAPIKey     string
	DeepgramModel      string
	MistralAPIKey      string
	MistralModel       string
	TranscribeTimeout  time.Duration

	// Capture and playback
	FFmpegPath         string
	FFplayPath         string
	CaptureInputFormat string
	CaptureInputDevice string
	ProgressInterval   time.Duration

	// HTTP API
	ServerAddr      string
	JWTSecret       string
	APIPasswordHash string
	TokenTTL        time.Duration

	// Logging
	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool

	ResumePending bool
}

// fileConfig mirrors the optional TOML file. Zero values leave defaults alone.
type fileConfig struct {
	DataDir            string `toml:"data_dir"`
	StoreDriver        string `toml:"store_driver"`
	SQLitePath         string `toml:"sqlite_path"`
	AudioStore         string `toml:"audio_store"`
	TranscribeProvider string `toml:"transcribe_provider"`
	DeepgramAPIKey     string `toml:"deepgram_api_key"`
	DeepgramModel      string `toml:"deepgram_model"`
	MistralAPIKey      string `toml:"mistral_api_key"`
	MistralModel       string `toml:"mistral_model"`
	FFmpegPath         string `toml:"ffmpeg_path"`
	CaptureInputFormat string `toml:"capture_input_format"`
	CaptureInputDevice string `toml:"capture_input_device"`
	ServerAddr         string `toml:"server_addr"`
	LogLevel           string `toml:"log_level"`
	LogFile            string `toml:"log_file"`

	Database struct {
		Host     string `toml:"host"`
		Port     string `toml:"port"`
		User     string `toml:"user"`
		Password string `toml:"password"`
		Name     string `toml:"name"`
	} `toml:"database"`

	Redis struct {
		Host     string `toml:"host"`
		Port     string `toml:"port"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
		Key      string `toml:"key"`
	} `toml:"redis"`

	Minio struct {
		Endpoint  string `toml:"endpoint"`
		AccessKey string `toml:"access_key"`
		SecretKey string `toml:"secret_key"`
		Bucket    string `toml:"bucket"`
		Region    string `toml:"region"`
		UseSSL    bool   `toml:"use_ssl"`
	} `toml:"minio"`
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	dataDir := defaultDataDir()
	format, device := defaultCaptureInput()
	return &Config{
		DataDir:            dataDir,
		StoreDriver:        "sqlite",
		DBHost:             "127.0.0.1",
		DBPort:             "3306",
		DBUser:             "root",
		DBName:             "transcribeai",
		RedisHost:          "127.0.0.1",
		RedisPort:          "6379",
		RedisKey:           "transcribeai:recordings",
		AudioStore:         "local",
		MinioBucket:        "transcribeai",
		MinioRegion:        "us-east-1",
		TranscribeProvider: "deepgram",
		DeepgramModel:      "nova-2",
		MistralModel:       "voxtral-mini-latest",
		TranscribeTimeout:  10 * time.Minute,
		FFmpegPath:         "ffmpeg",
		FFplayPath:         "ffplay",
		CaptureInputFormat: format,
		CaptureInputDevice: device,
		ProgressInterval:   time.Second,
		ServerAddr:         ":8080",
		TokenTTL:           24 * time.Hour,
		LogLevel:           "info",
		LogMaxSizeMB:       50,
		LogMaxBackups:      5,
		LogMaxAgeDays:      30,
		ResumePending:      true,
	}
}

// Load builds the configuration from defaults, the optional TOML file, a .env
// file and the process environment, in increasing order of precedence.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := configFilePath(); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	// godotenv.Load never overrides variables that are already set.
	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.derivePaths()

	for _, dir := range []string{cfg.DataDir, cfg.RecordingsDir, cfg.TempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return err
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.DataDir, expandTilde(fc.DataDir))
	set(&c.StoreDriver, fc.StoreDriver)
	set(&c.SQLitePath, expandTilde(fc.SQLitePath))
	set(&c.AudioStore, fc.AudioStore)
	set(&c.TranscribeProvider, fc.TranscribeProvider)
	set(&c.DeepgramAPIKey, fc.DeepgramAPIKey)
	set(&c.DeepgramModel, fc.DeepgramModel)
	set(&c.MistralAPIKey, fc.MistralAPIKey)
	set(&c.MistralModel, fc.MistralModel)
	set(&c.FFmpegPath, fc.FFmpegPath)
	set(&c.CaptureInputFormat, fc.CaptureInputFormat)
	set(&c.CaptureInputDevice, fc.CaptureInputDevice)
	set(&c.ServerAddr, fc.ServerAddr)
	set(&c.LogLevel, fc.LogLevel)
	set(&c.LogFile, expandTilde(fc.LogFile))
	set(&c.DBHost, fc.Database.Host)
	set(&c.DBPort, fc.Database.Port)
	set(&c.DBUser, fc.Database.User)
	set(&c.DBPassword, fc.Database.Password)
	set(&c.DBName, fc.Database.Name)
	set(&c.RedisHost, fc.Redis.Host)
	set(&c.RedisPort, fc.Redis.Port)
	set(&c.RedisPassword, fc.Redis.Password)
	set(&c.RedisKey, fc.Redis.Key)
	if fc.Redis.DB != 0 {
		c.RedisDB = fc.Redis.DB
	}
	set(&c.MinioEndpoint, fc.Minio.Endpoint)
	set(&c.MinioAccessKey, fc.Minio.AccessKey)
	set(&c.MinioSecretKey, fc.Minio.SecretKey)
	set(&c.MinioBucket, fc.Minio.Bucket)
	set(&c.MinioRegion, fc.Minio.Region)
	c.MinioUseSSL = c.MinioUseSSL || fc.Minio.UseSSL
	return nil
}

func (c *Config) applyEnv() {
	c.DataDir = expandTilde(getEnv("DATA_DIR", c.DataDir))
	c.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", c.StoreDriver))
	c.SQLitePath = expandTilde(getEnv("SQLITE_PATH", c.SQLitePath))
	c.DBHost = getEnv("DB_HOST", c.DBHost)
	c.DBPort = getEnv("DB_PORT", c.DBPort)
	c.DBUser = getEnv("DB_USER", c.DBUser)
	c.DBPassword = getEnv("DB_PASSWORD", c.DBPassword)
	c.DBName = getEnv("DB_NAME", c.DBName)
	c.RedisHost = getEnv("REDIS_HOST", c.RedisHost)
	c.RedisPort = getEnv("REDIS_PORT", c.RedisPort)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.RedisKey = getEnv("REDIS_KEY", c.RedisKey)
	c.AudioStore = strings.ToLower(getEnv("AUDIO_STORE", c.AudioStore))
	c.MinioEndpoint = getEnv("MINIO_ENDPOINT", c.MinioEndpoint)
	c.MinioAccessKey = getEnv("MINIO_ACCESS_KEY", c.MinioAccessKey)
	c.MinioSecretKey = getEnv("MINIO_SECRET_KEY", c.MinioSecretKey)
	c.MinioBucket = getEnv("MINIO_BUCKET", c.MinioBucket)
	c.MinioRegion = getEnv("MINIO_REGION", c.MinioRegion)
	c.MinioUseSSL = getEnvBool("MINIO_USE_SSL", c.MinioUseSSL)
	c.TranscribeProvider = strings.ToLower(getEnv("TRANSCRIBE_PROVIDER", c.TranscribeProvider))
	c.DeepgramAPIKey = getEnv("DEEPGRAM_API_KEY", c.DeepgramAPIKey)
	c.DeepgramModel = getEnv("DEEPGRAM_MODEL", c.DeepgramModel)
	c.MistralAPIKey = getEnv("MISTRAL_API_KEY", c.MistralAPIKey)
	c.MistralModel = getEnv("MISTRAL_MODEL", c.MistralModel)
	c.TranscribeTimeout = getEnvDuration("TRANSCRIBE_TIMEOUT", c.TranscribeTimeout)
	c.FFmpegPath = getEnv("FFMPEG_PATH", c.FFmpegPath)
	c.FFplayPath = getEnv("FFPLAY_PATH", c.FFplayPath)
	c.CaptureInputFormat = getEnv("CAPTURE_INPUT_FORMAT", c.CaptureInputFormat)
	c.CaptureInputDevice = getEnv("CAPTURE_INPUT_DEVICE", c.CaptureInputDevice)
	if ms := getEnvInt("PROGRESS_INTERVAL_MS", 0); ms > 0 {
		c.ProgressInterval = time.Duration(ms) * time.Millisecond
	}
	c.ServerAddr = getEnv("SERVER_ADDR", c.ServerAddr)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.APIPasswordHash = getEnv("API_PASSWORD_HASH", c.APIPasswordHash)
	c.TokenTTL = getEnvDuration("TOKEN_TTL", c.TokenTTL)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = expandTilde(getEnv("LOG_FILE", c.LogFile))
	c.LogMaxSizeMB = getEnvInt("LOG_MAX_SIZE_MB", c.LogMaxSizeMB)
	c.LogMaxBackups = getEnvInt("LOG_MAX_BACKUPS", c.LogMaxBackups)
	c.LogMaxAgeDays = getEnvInt("LOG_MAX_AGE_DAYS", c.LogMaxAgeDays)
	c.LogCompress = getEnvBool("LOG_COMPRESS", c.LogCompress)
	c.ResumePending = getEnvBool("RESUME_PENDING", c.ResumePending)
}

func (c *Config) derivePaths() {
	c.RecordingsDir = filepath.Join(c.DataDir, "recordings")
	c.TempDir = filepath.Join(c.DataDir, "tmp")
	if c.SQLitePath == "" {
		c.SQLitePath = filepath.Join(c.DataDir, "recordings.sqlite")
	}
}

// Validate lists configuration problems that degrade features without
// preventing startup.
func (c *Config) Validate() []string {
	var problems []string
	switch c.TranscribeProvider {
	case "deepgram":
		if c.DeepgramAPIKey == "" {
			problems = append(problems, "DEEPGRAM_API_KEY is not set; transcriptions will fail")
		}
	case "voxtral", "mistral":
		if c.MistralAPIKey == "" {
			problems = append(problems, "MISTRAL_API_KEY is not set; transcriptions will fail")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown TRANSCRIBE_PROVIDER %q", c.TranscribeProvider))
	}
	switch c.StoreDriver {
	case "sqlite", "mysql", "redis":
	default:
		problems = append(problems, fmt.Sprintf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	switch c.AudioStore {
	case "local":
	case "minio":
		if c.MinioEndpoint == "" {
			problems = append(problems, "AUDIO_STORE=minio but MINIO_ENDPOINT is not set")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown AUDIO_STORE %q", c.AudioStore))
	}
	if c.APIPasswordHash != "" && c.JWTSecret == "" {
		problems = append(problems, "API_PASSWORD_HASH is set but JWT_SECRET is empty; API auth is disabled")
	}
	return problems
}

// AuthEnabled reports whether the HTTP API requires a bearer token.
func (c *Config) AuthEnabled() bool {
	return c.APIPasswordHash != "" && c.JWTSecret != ""
}

func configFilePath() string {
	if p := os.Getenv("TRANSCRIBE_CONFIG"); p != "" {
		return expandTilde(p)
	}
	var configDir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDir = filepath.Join(xdg, "transcribe-ai")
	} else if home, err := os.UserHomeDir(); err == nil {
		configDir = filepath.Join(home, ".config", "transcribe-ai")
	} else {
		return ""
	}
	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".transcribe-ai")
	}
	return filepath.Join(".", "data")
}

// defaultCaptureInput returns the ffmpeg input format and device for the
// platform's default microphone.
func defaultCaptureInput() (string, string) {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation", ":default"
	case "windows":
		return "dshow", "audio=default"
	default:
		return "pulse", "default"
	}
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// FilePath returns the config file Load reads, or "" when there is none.
func FilePath() string {
	return configFilePath()
}
