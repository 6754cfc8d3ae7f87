package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	AI       AIConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Email    EmailConfig
	Log      LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	database, err := loadDatabaseConfig()
	if err != nil {
		return nil, err
	}

	storage, err := loadStorageConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		AI:       ai,
		Database: database,
		Storage:  storage,
		Email:    loadEmailConfig(),
		Log:      logCfg,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr               string
	AllowedOrigins     []string
	CookieSecure       bool
	RateLimitPerMinute int
	RateLimitBurst     int
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	var addr string
	switch {
	case strings.Contains(port, ":"):
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		addr = port
	case strings.Contains(port, " "):
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	default:
		addr = ":" + port
	}

	secure, err := parseBoolEnv("COOKIE_SECURE", false)
	if err != nil {
		return ServerConfig{}, err
	}

	perMinute, err := parseIntEnv("RATE_LIMIT_PER_MINUTE", 20)
	if err != nil {
		return ServerConfig{}, err
	}
	burst, err := parseIntEnv("RATE_LIMIT_BURST", 5)
	if err != nil {
		return ServerConfig{}, err
	}
	if perMinute < 0 || burst < 0 {
		return ServerConfig{}, fmt.Errorf("rate limit values must not be negative")
	}

	return ServerConfig{
		Addr:               addr,
		AllowedOrigins:     splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		CookieSecure:       secure,
		RateLimitPerMinute: perMinute,
		RateLimitBurst:     burst,
	}, nil
}

// Provider 标识大模型供应商。
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderArk    Provider = "ark"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider              Provider
	AgentName             string
	APIKey                string
	AccessKey             string
	SecretKey             string
	Model                 string
	BaseURL               string
	Region                string
	Temperature           *float64
	TopP                  *float64
	MaxTokens             *int
	StreamResponse        bool
	ExtractionModel       string
	ExtractionTemperature float64
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	if c.Model == "" {
		return false
	}
	if c.Provider == ProviderArk {
		return c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != "")
	}
	return c.APIKey != ""
}

// ForExtraction 返回用于联系人提取的配置副本，温度更低，可单独指定模型。
func (c AIConfig) ForExtraction() AIConfig {
	out := c
	if c.ExtractionModel != "" {
		out.Model = c.ExtractionModel
	}
	temperature := c.ExtractionTemperature
	out.Temperature = &temperature
	out.TopP = nil
	return out
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ToolCallingChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%s credentials or model missing", c.Provider)
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	switch c.Provider {
	case ProviderArk:
		chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     c.BaseURL,
			Region:      c.Region,
			APIKey:      c.APIKey,
			AccessKey:   c.AccessKey,
			SecretKey:   c.SecretKey,
			Model:       c.Model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
			TopP:        topP,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Ark model: %w", err)
		}
		return chatModel, nil
	default:
		chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:     c.BaseURL,
			APIKey:      c.APIKey,
			Model:       c.Model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
			TopP:        topP,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI model: %w", err)
		}
		return chatModel, nil
	}
}

func loadAIConfig() (AIConfig, error) {
	provider := Provider(strings.ToLower(getEnvOrDefault("AI_PROVIDER", string(ProviderOpenAI))))
	if provider != ProviderOpenAI && provider != ProviderArk {
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q", provider)
	}

	temperature, err := parseOptionalFloatEnv("OPENAI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	if temperature == nil {
		val := 0.7
		temperature = &val
	}

	topP, err := parseOptionalFloatEnv("OPENAI_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("OPENAI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}
	if maxTokens == nil {
		val := 2000
		maxTokens = &val
	}

	stream, err := parseBoolEnv("AI_STREAM", true)
	if err != nil {
		return AIConfig{}, err
	}

	extractionTemp, err := parseOptionalFloatEnv("EXTRACTION_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	extraction := 0.1
	if extractionTemp != nil {
		extraction = *extractionTemp
	}

	cfg := AIConfig{
		Provider:              provider,
		AgentName:             getEnvOrDefault("AGENT_NAME", "the site owner"),
		Temperature:           temperature,
		TopP:                  topP,
		MaxTokens:             maxTokens,
		StreamResponse:        stream,
		ExtractionModel:       strings.TrimSpace(os.Getenv("EXTRACTION_MODEL")),
		ExtractionTemperature: extraction,
	}

	if provider == ProviderArk {
		cfg.APIKey = strings.TrimSpace(os.Getenv("ARK_API_KEY"))
		cfg.AccessKey = strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY"))
		cfg.SecretKey = strings.TrimSpace(os.Getenv("ARK_SECRET_KEY"))
		cfg.Model = strings.TrimSpace(os.Getenv("ARK_MODEL"))
		cfg.BaseURL = getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3")
		cfg.Region = getEnvOrDefault("ARK_REGION", "cn-beijing")
		return cfg, nil
	}

	cfg.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	cfg.Model = getEnvOrDefault("OPENAI_MODEL", "gpt-4o")
	cfg.BaseURL = strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	return cfg, nil
}

// DatabaseConfig 描述关系型存储配置。
type DatabaseConfig struct {
	Driver string
	URL    string
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", "sqlite"))
	switch driver {
	case "sqlite":
		return DatabaseConfig{Driver: driver, URL: getEnvOrDefault("DATABASE_URL", "cvdeck.db")}, nil
	case "postgres":
		url := strings.TrimSpace(os.Getenv("DATABASE_URL"))
		if url == "" {
			return DatabaseConfig{}, fmt.Errorf("DATABASE_URL is required for postgres")
		}
		return DatabaseConfig{Driver: driver, URL: url}, nil
	default:
		return DatabaseConfig{}, fmt.Errorf("invalid DATABASE_DRIVER value %q", driver)
	}
}

// StorageConfig 描述会话与联系人记录的键值存储。
type StorageConfig struct {
	Backend    string
	RedisURL   string
	SessionTTL time.Duration
	ContactTTL time.Duration
}

func loadStorageConfig() (StorageConfig, error) {
	backend := strings.ToLower(getEnvOrDefault("STORAGE_BACKEND", "memory"))
	if backend != "memory" && backend != "redis" {
		return StorageConfig{}, fmt.Errorf("invalid STORAGE_BACKEND value %q", backend)
	}

	redisURL := getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0")

	sessionTTL, err := parseDurationEnv("SESSION_TTL", 30*time.Minute)
	if err != nil {
		return StorageConfig{}, err
	}
	contactTTL, err := parseDurationEnv("CONTACT_TTL", 720*time.Hour)
	if err != nil {
		return StorageConfig{}, err
	}

	return StorageConfig{
		Backend:    backend,
		RedisURL:   redisURL,
		SessionTTL: sessionTTL,
		ContactTTL: contactTTL,
	}, nil
}

// EmailConfig 描述通知邮件配置。
type EmailConfig struct {
	APIKey string
	From   string
	To     string
}

// Enabled 表示通知邮件的配置是否齐全。
func (c EmailConfig) Enabled() bool {
	return c.APIKey != "" && c.From != "" && c.To != ""
}

func loadEmailConfig() EmailConfig {
	return EmailConfig{
		APIKey: strings.TrimSpace(os.Getenv("RESEND_API_KEY")),
		From:   strings.TrimSpace(os.Getenv("EMAIL_FROM")),
		To:     strings.TrimSpace(os.Getenv("EMAIL_TO")),
	}
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig() (LogConfig, error) {
	format := strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json"))
	if format != "json" && format != "console" {
		return LogConfig{}, fmt.Errorf("invalid LOG_FORMAT value %q", format)
	}
	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Format: format,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	val, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return defaultValue, nil
	}
	return *val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
