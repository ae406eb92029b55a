package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Backend names accepted by LLM_BACKEND.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
	BackendArk    = "ark"
	BackendMock   = "mock"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Sound   SoundConfig
	Log     LogConfig
	Catalog CatalogConfig
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

	sound, err := loadSoundConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		AI:      ai,
		Sound:   sound,
		Log:     logCfg,
		Catalog: CatalogConfig{File: strings.TrimSpace(os.Getenv("ORGAN_CATALOG_FILE"))},
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr               string
	FrontendOrigin     string
	RateLimitPerMinute int
	MaxBodyBytes       int64
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	addr, err := parseAddr(getEnvOrDefault("PORT", "3001"))
	if err != nil {
		return ServerConfig{}, err
	}

	rateLimit, err := parseIntEnv("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		return ServerConfig{}, err
	}
	if rateLimit < 0 {
		return ServerConfig{}, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE value %d: must not be negative", rateLimit)
	}

	maxBody, err := parseIntEnv("MAX_BODY_BYTES", 64<<10)
	if err != nil {
		return ServerConfig{}, err
	}
	if maxBody <= 0 {
		return ServerConfig{}, fmt.Errorf("invalid MAX_BODY_BYTES value %d: must be positive", maxBody)
	}

	return ServerConfig{
		Addr:               addr,
		FrontendOrigin:     strings.TrimSpace(os.Getenv("FRONTEND_ORIGIN")),
		RateLimitPerMinute: rateLimit,
		MaxBodyBytes:       int64(maxBody),
	}, nil
}

func parseAddr(port string) (string, error) {
	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}
	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}
	return ":" + port, nil
}

// AIConfig 描述大模型后端配置。
type AIConfig struct {
	Backend     string
	Temperature float64
	MaxTokens   *int

	OllamaHost  string
	OllamaModel string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	ArkAPIKey    string
	ArkAccessKey string
	ArkSecretKey string
	ArkModel     string
	ArkBaseURL   string
	ArkRegion    string
}

// ArkEnabled 表示是否提供了 Ark 所需的模型与凭证。
func (c AIConfig) ArkEnabled() bool {
	return c.ArkModel != "" && (c.ArkAPIKey != "" || (c.ArkAccessKey != "" && c.ArkSecretKey != ""))
}

// Validate 检查所选后端的必需项。
func (c AIConfig) Validate() error {
	switch c.Backend {
	case BackendOllama:
		if c.OllamaHost == "" || c.OllamaModel == "" {
			return fmt.Errorf("ollama backend requires OLLAMA_HOST and OLLAMA_MODEL")
		}
	case BackendOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("openai backend requires OPENAI_API_KEY")
		}
	case BackendArk:
		if !c.ArkEnabled() {
			return fmt.Errorf("ark backend requires ARK_MODEL and ARK_API_KEY or ARK_ACCESS_KEY + ARK_SECRET_KEY")
		}
	case BackendMock:
	default:
		return fmt.Errorf("unknown LLM_BACKEND %q (want ollama, openai, ark or mock)", c.Backend)
	}
	return nil
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("LLM_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	temp := 0.5
	if temperature != nil {
		temp = *temperature
	}

	maxTokens, err := parseOptionalIntEnv("LLM_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}
	if maxTokens != nil && *maxTokens <= 0 {
		return AIConfig{}, fmt.Errorf("invalid LLM_MAX_TOKENS value %d: must be positive", *maxTokens)
	}

	cfg := AIConfig{
		Backend:       strings.ToLower(getEnvOrDefault("LLM_BACKEND", BackendOllama)),
		Temperature:   temp,
		MaxTokens:     maxTokens,
		OllamaHost:    strings.TrimRight(getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"), "/"),
		OllamaModel:   getEnvOrDefault("OLLAMA_MODEL", "llama3"),
		OpenAIAPIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL: strings.TrimRight(getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"), "/"),
		OpenAIModel:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o"),
		ArkAPIKey:     strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		ArkAccessKey:  strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		ArkSecretKey:  strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		ArkModel:      strings.TrimSpace(os.Getenv("ARK_MODEL")),
		ArkBaseURL:    getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		ArkRegion:     getEnvOrDefault("ARK_REGION", "cn-beijing"),
	}
	if err := cfg.Validate(); err != nil {
		return AIConfig{}, err
	}
	return cfg, nil
}

// SoundConfig 描述程序化音效输出配置。
type SoundConfig struct {
	// Player is a command line that plays a WAV file given as its last
	// argument. Empty means no host audio.
	Player     string
	SampleRate int
}

func loadSoundConfig() (SoundConfig, error) {
	rate, err := parseIntEnv("SOUND_SAMPLE_RATE", 44100)
	if err != nil {
		return SoundConfig{}, err
	}
	if rate < 8000 || rate > 192000 {
		return SoundConfig{}, fmt.Errorf("invalid SOUND_SAMPLE_RATE value %d: want 8000..192000", rate)
	}
	return SoundConfig{
		Player:     strings.TrimSpace(os.Getenv("SOUND_PLAYER")),
		SampleRate: rate,
	}, nil
}

// LogConfig 描述日志输出配置。
type LogConfig struct {
	Level      string
	File       string
	Console    bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func loadLogConfig() (LogConfig, error) {
	console, err := parseBoolEnv("LOG_CONSOLE", true)
	if err != nil {
		return LogConfig{}, err
	}
	maxSize, err := parseIntEnv("LOG_MAX_SIZE_MB", 50)
	if err != nil {
		return LogConfig{}, err
	}
	maxBackups, err := parseIntEnv("LOG_MAX_BACKUPS", 3)
	if err != nil {
		return LogConfig{}, err
	}
	maxAge, err := parseIntEnv("LOG_MAX_AGE_DAYS", 7)
	if err != nil {
		return LogConfig{}, err
	}
	return LogConfig{
		Level:      getEnvOrDefault("LOG_LEVEL", "info"),
		File:       strings.TrimSpace(os.Getenv("LOG_FILE")),
		Console:    console,
		MaxSizeMB:  maxSize,
		MaxBackups: maxBackups,
		MaxAgeDays: maxAge,
	}, nil
}

// CatalogConfig 指向可选的器官目录覆盖文件。
type CatalogConfig struct {
	File string
}

// ClientConfig 终端客户端配置，只包含客户端需要的部分。
type ClientConfig struct {
	ServerURL string
	Sound     SoundConfig
	Catalog   CatalogConfig
	Log       LogConfig
}

// LoadClient 加载终端客户端配置。日志只写文件，避免打乱终端界面。
func LoadClient() (*ClientConfig, error) {
	sound, err := loadSoundConfig()
	if err != nil {
		return nil, err
	}
	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}
	logCfg.Console = false
	if logCfg.File == "" {
		logCfg.File = "organchat.log"
	}

	return &ClientConfig{
		ServerURL: strings.TrimRight(getEnvOrDefault("ORGANCHAT_SERVER", "http://localhost:3001"), "/"),
		Sound:     sound,
		Catalog:   CatalogConfig{File: strings.TrimSpace(os.Getenv("ORGAN_CATALOG_FILE"))},
		Log:       logCfg,
	}, nil
}

// ToolConfig 命令行工具配置: sound output and logging only.
type ToolConfig struct {
	Sound SoundConfig
	Log   LogConfig
}

// LoadTool 加载命令行工具配置。Logs go to the console unless LOG_CONSOLE says otherwise.
func LoadTool() (*ToolConfig, error) {
	sound, err := loadSoundConfig()
	if err != nil {
		return nil, err
	}
	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}
	return &ToolConfig{Sound: sound, Log: logCfg}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
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
