package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	OpenAI    OpenAIConfig
	Session   SessionConfig
	Resources ResourcesConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

type ServerConfig struct {
	Port           string
	RequestTimeout time.Duration
	AllowOrigins   []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	PoolSize      int
	DialTimeout   time.Duration
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type SessionConfig struct {
	CookieName string
	// AES key used to seal the session cookie; 16, 24 or 32 bytes.
	CookieKey string
	TTL       time.Duration
}

type ResourcesConfig struct {
	PolicyPath         string
	OntologyPath       string
	CatalogPath        string
	MatchPromptPath    string
	FollowupPromptPath string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, errors.New("invalid redis database")
	}

	redisPoolSize, err := strconv.Atoi(getEnv("REDIS_POOL_SIZE", "10"))
	if err != nil || redisPoolSize <= 0 {
		return nil, errors.New("invalid redis pool size")
	}

	redisDialTimeout, err := time.ParseDuration(getEnv("REDIS_DIAL_TIMEOUT", "5s"))
	if err != nil {
		return nil, errors.New("invalid redis dial timeout")
	}

	requestTimeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "30s"))
	if err != nil {
		return nil, errors.New("invalid request timeout")
	}

	openAITimeout, err := time.ParseDuration(getEnv("OPENAI_TIMEOUT", "25s"))
	if err != nil {
		return nil, errors.New("invalid openai timeout")
	}

	sessionTTL, err := time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	if err != nil {
		return nil, errors.New("invalid session ttl")
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Welfare Recommendation API"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			RequestTimeout: requestTimeout,
			AllowOrigins:   []string{getEnv("CORS_ORIGIN", "http://localhost:3000"), "http://localhost:8080"},
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "welfare_bot"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
			PoolSize:      redisPoolSize,
			DialTimeout:   redisDialTimeout,
		},
		OpenAI: OpenAIConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Timeout: openAITimeout,
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE_NAME", "WELFARE_SESSION"),
			CookieKey:  getEnv("SESSION_COOKIE_KEY", ""),
			TTL:        sessionTTL,
		},
		Resources: ResourcesConfig{
			PolicyPath:         getEnv("POLICY_PATH", "resources/recommendation-policy.yml"),
			OntologyPath:       getEnv("ONTOLOGY_PATH", "resources/signal-ontology.yml"),
			CatalogPath:        getEnv("CATALOG_PATH", "resources/benefits.json"),
			MatchPromptPath:    getEnv("MATCH_PROMPT_PATH", "resources/prompt_match_engine.txt"),
			FollowupPromptPath: getEnv("FOLLOWUP_PROMPT_PATH", "resources/prompt_deep_question_engine.txt"),
		},
	}

	if cfg.OpenAI.APIKey == "" {
		return nil, errors.New("missing openai api key")
	}

	if cfg.Database.Password == "" {
		return nil, errors.New("missing database password")
	}

	switch len(cfg.Session.CookieKey) {
	case 16, 24, 32:
	default:
		return nil, errors.New("session cookie key must be 16, 24 or 32 bytes")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}
