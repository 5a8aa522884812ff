package config

import (
	"os"
	"strconv"
)

// DBConfig 数据库配置
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	// SlowQueryMillis is the threshold for the slow-query tracer. 0 means 100ms.
	SlowQueryMillis int `yaml:"slow_query_ms"`
}

// MQConfig 消息队列配置. An empty URL disables the broker and triggers run in-process.
type MQConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig Redis配置. An empty Addr disables the run lock and failure counters.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig holds the bearer token settings.
type JWTConfig struct {
	Secret string `yaml:"secret"`
	// DebugEmail is used as the authenticated user when the service runs in debug mode.
	DebugEmail string `yaml:"debug_email"`
	// Admins may trigger resync/drain and replay queue entries.
	Admins []string `yaml:"admins"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port      string `yaml:"port"`
	PublicURL string `yaml:"public_url"`
}

// OtelConfig OpenTelemetry 配置
type OtelConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	// SampleRatio is the share of root traces kept. 0 or 1 keeps all of them.
	SampleRatio float64 `yaml:"sample_ratio"`
}

// MailConfig selects and configures the outbound mail transport.
type MailConfig struct {
	Provider    string `yaml:"provider"` // smtp, sendgrid, maileroo, none
	SenderEmail string `yaml:"sender_email"`
	SenderName  string `yaml:"sender_name"`
	SMTP        struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"smtp"`
	SendGrid struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"sendgrid"`
	Maileroo struct {
		APIKey   string `yaml:"api_key"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"maileroo"`
}

// OverrideDBFromEnv 从环境变量覆盖数据库配置
func OverrideDBFromEnv(cfg *DBConfig) {
	setString(&cfg.Host, "DB_HOST")
	setInt(&cfg.Port, "DB_PORT")
	setString(&cfg.User, "DB_USER")
	setString(&cfg.Password, "DB_PASSWORD")
	setString(&cfg.Name, "DB_NAME")
	setString(&cfg.SSLMode, "DB_SSLMODE")
}

// OverrideMQFromEnv 从环境变量覆盖MQ配置
func OverrideMQFromEnv(cfg *MQConfig) {
	setString(&cfg.URL, "MQ_URL")
}

// OverrideRedisFromEnv 从环境变量覆盖Redis配置
func OverrideRedisFromEnv(cfg *RedisConfig) {
	setString(&cfg.Addr, "REDIS_ADDR")
	setString(&cfg.Password, "REDIS_PASSWORD")
}

// OverrideJWTFromEnv 从环境变量覆盖JWT配置
func OverrideJWTFromEnv(cfg *JWTConfig) {
	setString(&cfg.Secret, "JWT_SECRET")
}

// OverrideServerFromEnv 从环境变量覆盖服务器配置
func OverrideServerFromEnv(cfg *ServerConfig) {
	setString(&cfg.Port, "SERVER_PORT")
	setString(&cfg.PublicURL, "SERVER_PUBLIC_URL")
}

// OverrideMailFromEnv reads provider credentials, which never live in yaml.
func OverrideMailFromEnv(cfg *MailConfig) {
	setString(&cfg.Provider, "MAIL_PROVIDER")
	setString(&cfg.SenderEmail, "MAIL_SENDER_EMAIL")
	setString(&cfg.SMTP.Host, "SMTP_HOST")
	setString(&cfg.SMTP.Username, "SMTP_USERNAME")
	setString(&cfg.SMTP.Password, "SMTP_PASSWORD")
	setString(&cfg.SendGrid.APIKey, "SENDGRID_API_KEY")
	setString(&cfg.Maileroo.APIKey, "MAILEROO_API_KEY")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
