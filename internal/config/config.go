// Package config предоставляет структуры и функцию для парсинга и загрузки конфига.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек всех сервисов академии.
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageBackend          string `yaml:"storage_backend" env:"STORAGE_BACKEND" env-default:"memory"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	Notifier                string `yaml:"notifier" env:"NOTIFIER" env-default:"local"`
	KVStore                 `yaml:"kvstore"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Admin                   `yaml:"admin"`
	RabbitMQ                `yaml:"rabbitmq"`
	SMTP                    `yaml:"smtp"`
	Scheduler               `yaml:"scheduler"`
}

// KVStore настройки хранилища ключ-значение и его аварийной очистки.
type KVStore struct {
	QuotaBytes      int64 `yaml:"quota_bytes" env:"KV_QUOTA_BYTES" env-default:"5242880"`
	MaxValueBytes   int64 `yaml:"max_value_bytes" env:"KV_MAX_VALUE_BYTES"`
	ImagePayloadMax int   `yaml:"image_payload_max" env:"KV_IMAGE_PAYLOAD_MAX" env-default:"51200"`
	HistoryCap      int   `yaml:"history_cap" env:"KV_HISTORY_CAP" env-default:"50"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RateLimit   float64       `yaml:"rate_limit" env-default:"5"`
	RateBurst   int           `yaml:"rate_burst" env-default:"10"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	AddressRedis  string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password      string        `yaml:"password" env:"REDIS_PASSWORD"`
	User          string        `yaml:"user"`
	DB            int           `yaml:"db"`
	MaxRetries    int           `yaml:"max_retries"`
	DialTimeout   time.Duration `yaml:"dial_timeout"`
	TimeoutRedis  time.Duration `yaml:"timeoutredis"`
	ChangeChannel string        `yaml:"change_channel" env-default:"academy:changes"`
}

// JWTToken структура для работы с jwt-токеном.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// Admin учётная запись администратора, которой засевается хранилище.
type Admin struct {
	AdminEmail    string `yaml:"email" env:"ADMIN_EMAIL"`
	AdminPassword string `yaml:"password" env:"ADMIN_PASSWORD"`
	AdminName     string `yaml:"name" env-default:"Administrator"`
}

// RabbitMQ параметры подключения к брокеру уведомлений.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// SMTP параметры почтового сервера.
type SMTP struct {
	SMTPHost string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"user" env:"SMTP_USER"`
	SMTPPass string `yaml:"pass" env:"SMTP_PASS"`
	SiteURL  string `yaml:"site_url" env:"SITE_URL" env-default:"http://localhost:8080"`
}

// Scheduler параметры планировщика напоминаний.
type Scheduler struct {
	PendingInterval time.Duration `yaml:"pending_interval" env-default:"1h"`
	PendingAge      time.Duration `yaml:"pending_age" env-default:"24h"`
}

// MustLoad загружает конфиг из файла CONFIG_PATH, переменные окружения
// перекрывают значения из файла.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageBackend: %s\n"+
			"Notifier: %s\n"+
			"KVStore:\n"+
			"  QuotaBytes: %d\n"+
			"  HistoryCap: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"RabbitMQ:\n"+
			"  URL set: %t\n"+
			"JWTToken:\n"+
			"  TokenTTL: %s\n",
		c.Env,
		c.StorageBackend,
		c.Notifier,
		c.QuotaBytes,
		c.HistoryCap,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.AddressRedis,
		c.RabbitMQURL != "",
		c.TokenTTL,
	)
}
