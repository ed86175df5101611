package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/betbot/futurebot/pkg/secretstore"
)

const (
	TestnetBaseURL = "https://testnet.binancefuture.com"
	LiveBaseURL    = "https://fapi.binance.com"

	// 交易所允许的最大 recvWindow（毫秒）
	maxRecvWindow = 60000
)

// ExchangeConfig 交易所连接配置
type ExchangeConfig struct {
	APIKey            string
	APISecret         string
	Testnet           bool
	BaseURL           string        // 为空时按 Testnet 选择默认地址
	RecvWindow        int           // 签名请求有效窗口（毫秒）
	Timeout           time.Duration // 单次 HTTP 请求超时
	RequestsPerSecond int           // 本地请求节流，0 表示不限制
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
	PerSession bool // 日志文件名带启动时间
}

// SecretStoreConfig 加密凭据库配置
type SecretStoreConfig struct {
	Path string
	Key  string // 32 字节 hex/base64
}

// Config 应用配置
type Config struct {
	Exchange    ExchangeConfig
	Log         LogConfig
	SecretStore SecretStoreConfig
	DryRun      bool // 只调用 /order/test，不真实下单
}

// ConfigFile 配置文件结构（用于 YAML/JSON 解析）
type ConfigFile struct {
	Exchange struct {
		APIKey            string `yaml:"api_key" json:"api_key"`
		APISecret         string `yaml:"api_secret" json:"api_secret"`
		Testnet           *bool  `yaml:"testnet" json:"testnet"`
		BaseURL           string `yaml:"base_url" json:"base_url"`
		RecvWindow        int    `yaml:"recv_window" json:"recv_window"`
		TimeoutSeconds    int    `yaml:"timeout_seconds" json:"timeout_seconds"`
		RequestsPerSecond int    `yaml:"requests_per_second" json:"requests_per_second"`
	} `yaml:"exchange" json:"exchange"`
	Log struct {
		Level      string `yaml:"level" json:"level"`
		File       string `yaml:"file" json:"file"`
		MaxSize    int    `yaml:"max_size" json:"max_size"`
		MaxBackups int    `yaml:"max_backups" json:"max_backups"`
		MaxAge     int    `yaml:"max_age" json:"max_age"`
		Compress   bool   `yaml:"compress" json:"compress"`
		PerSession *bool  `yaml:"per_session" json:"per_session"`
	} `yaml:"log" json:"log"`
	SecretStore struct {
		Path string `yaml:"path" json:"path"`
		Key  string `yaml:"key" json:"key"`
	} `yaml:"secret_store" json:"secret_store"`
	DryRun *bool `yaml:"dry_run" json:"dry_run"`
}

// LoadEnvFile loads a .env file into the process environment. Variables that
// are already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("加载 .env 失败 %s: %w", path, err)
	}
	return nil
}

// Load 从指定文件加载配置（优先级：环境变量 > 配置文件 > 默认值）
func Load(filePath string) (*Config, error) {
	cf := &ConfigFile{}
	if filePath != "" {
		loaded, err := loadConfigFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败 %s: %w", filePath, err)
		}
		cf = loaded
	}

	testnet := true
	if cf.Exchange.Testnet != nil {
		testnet = *cf.Exchange.Testnet
	}
	perSession := true
	if cf.Log.PerSession != nil {
		perSession = *cf.Log.PerSession
	}
	dryRun := false
	if cf.DryRun != nil {
		dryRun = *cf.DryRun
	}

	cfg := &Config{
		Exchange: ExchangeConfig{
			APIKey:            getEnv("BINANCE_API_KEY", cf.Exchange.APIKey),
			APISecret:         getEnv("BINANCE_API_SECRET", cf.Exchange.APISecret),
			Testnet:           parseBoolEnv("BINANCE_TESTNET", testnet),
			BaseURL:           getEnv("BINANCE_BASE_URL", cf.Exchange.BaseURL),
			RecvWindow:        parseIntEnv("BINANCE_RECV_WINDOW", orDefault(cf.Exchange.RecvWindow, 5000)),
			Timeout:           time.Duration(parseIntEnv("FUTUREBOT_TIMEOUT_SECONDS", orDefault(cf.Exchange.TimeoutSeconds, 30))) * time.Second,
			RequestsPerSecond: parseIntEnv("FUTUREBOT_REQUESTS_PER_SECOND", orDefault(cf.Exchange.RequestsPerSecond, 10)),
		},
		Log: LogConfig{
			Level:      getEnv("FUTUREBOT_LOG_LEVEL", firstNonEmpty(cf.Log.Level, "info")),
			File:       getEnv("FUTUREBOT_LOG_FILE", firstNonEmpty(cf.Log.File, "logs/futurebot.log")),
			MaxSize:    orDefault(cf.Log.MaxSize, 100),
			MaxBackups: orDefault(cf.Log.MaxBackups, 5),
			MaxAge:     orDefault(cf.Log.MaxAge, 30),
			Compress:   cf.Log.Compress,
			PerSession: perSession,
		},
		SecretStore: SecretStoreConfig{
			Path: getEnv("FUTUREBOT_SECRET_DB", firstNonEmpty(cf.SecretStore.Path, "data/secrets.badger")),
			Key:  getEnv("FUTUREBOT_SECRET_KEY", cf.SecretStore.Key),
		},
		DryRun: parseBoolEnv("FUTUREBOT_DRY_RUN", dryRun),
	}

	return cfg, nil
}

func loadConfigFile(filePath string) (*ConfigFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var configFile ConfigFile
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("解析 YAML 配置文件失败: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("解析 JSON 配置文件失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的配置文件格式: %s (支持 .yaml, .yml, .json)", ext)
	}

	return &configFile, nil
}

// ResolvedBaseURL returns the REST endpoint for the configured environment.
func (e ExchangeConfig) ResolvedBaseURL() string {
	if u := strings.TrimSpace(e.BaseURL); u != "" {
		return strings.TrimSuffix(u, "/")
	}
	if e.Testnet {
		return TestnetBaseURL
	}
	return LiveBaseURL
}

// EnvironmentName is TESTNET or LIVE.
func (e ExchangeConfig) EnvironmentName() string {
	if e.Testnet {
		return "TESTNET"
	}
	return "LIVE"
}

// HasCredentials reports whether both halves of the API key pair are set.
func (c *Config) HasCredentials() bool {
	return strings.TrimSpace(c.Exchange.APIKey) != "" && strings.TrimSpace(c.Exchange.APISecret) != ""
}

// ApplyCredentials fills missing API credentials from the secret store.
// Values already present (env or config file) are kept.
func (c *Config) ApplyCredentials(creds secretstore.Credentials) {
	if strings.TrimSpace(c.Exchange.APIKey) == "" {
		c.Exchange.APIKey = creds.APIKey
	}
	if strings.TrimSpace(c.Exchange.APISecret) == "" {
		c.Exchange.APISecret = creds.APISecret
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if !c.HasCredentials() {
		return fmt.Errorf("缺少 API 凭据：请设置 BINANCE_API_KEY/BINANCE_API_SECRET 或导入到 %s", c.SecretStore.Path)
	}
	if c.Exchange.RecvWindow <= 0 || c.Exchange.RecvWindow > maxRecvWindow {
		return fmt.Errorf("recv_window 必须在 1-%d 毫秒之间，当前 %d", maxRecvWindow, c.Exchange.RecvWindow)
	}
	if c.Exchange.Timeout <= 0 {
		return fmt.Errorf("timeout 必须为正数")
	}
	if c.Exchange.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second 不能为负数")
	}
	return nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
