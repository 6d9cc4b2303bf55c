// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	MigrationsPath          string `yaml:"migrations_path"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	RabbitMQ                `yaml:"rabbitmq"`
	SMTP                    `yaml:"smtp"`
	JWTToken                `yaml:"jwttoken"`
	Identity                `yaml:"identity"`
	Notifier                `yaml:"notifier"`
	Catalog                 Catalog          `yaml:"catalog"`
	PaymentChannels         []PaymentChannel `yaml:"payment_channels"`
	Admin                   Admin            `yaml:"admin"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// RabbitMQ структура для настройки подключения к брокеру сообщений
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"rabbitmq_url"`
	RabbitMQMaxRetries int           `yaml:"rabbitmq_max_retries"`
	RabbitMQRetryDelay time.Duration `yaml:"rabbitmq_retry_delay"`
}

// SMTP структура для настройки почтового транспорта
type SMTP struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort string `yaml:"smtp_port"`
	SMTPUser string `yaml:"smtp_user"`
	SMTPPass string `yaml:"smtp_pass"`
}

// JWTToken структура для работы с jwt-токеном администраторов
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

// Identity структура с секретом для проверки identity-токенов пользователей
type Identity struct {
	IdentitySecret string `yaml:"identity_secret"`
}

// Notifier структура для настройки обходчика уведомлений
type Notifier struct {
	ScanInterval time.Duration `yaml:"scan_interval"`
}

// Catalog описывает версионированный каталог тарифов из конфига
type Catalog struct {
	Version string       `yaml:"version"`
	Plans   []PlanConfig `yaml:"plans"`
}

// PlanConfig описывает один тариф каталога
type PlanConfig struct {
	Code         string `yaml:"code"`
	Label        string `yaml:"label"`
	DurationDays int    `yaml:"duration_days"`
	PriceKopecks int64  `yaml:"price_kopecks"`
	Currency     string `yaml:"currency"`
}

// PaymentChannel описывает платежный канал и его секрет для проверки подписи вебхуков
type PaymentChannel struct {
	Name   string `yaml:"name"`
	Secret string `yaml:"secret"`
}

// Admin структура с учетными данными администратора, создаваемого при старте
type Admin struct {
	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
}

// MustLoad функция для загрузки конфига, возвращает конфиг, прочитанный из файла по пути CONFIG_PATH
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
			"StorageConnectionString: %s\n"+
			"MigrationsPath: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  Password: %s\n"+
			"  User: %s\n"+
			"  DB: %d\n"+
			"  MaxRetries: %d\n"+
			"  DialTimeout: %s\n"+
			"  Timeout: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"RabbitMQ:\n"+
			"  URL: %s\n"+
			"  MaxRetries: %d\n"+
			"  RetryDelay: %s\n"+
			"JWTToken:\n"+
			"  JWTSecretKey: %s\n"+
			"  TokenTTL: %s\n"+
			"Notifier:\n"+
			"  ScanInterval: %s\n"+
			"Catalog: %s, %d plans\n"+
			"PaymentChannels: %d\n",
		c.Env,
		c.StorageConnectionString,
		c.MigrationsPath,
		c.AddressRedis,
		c.Password,
		c.User,
		c.DB,
		c.MaxRetries,
		c.DialTimeout,
		c.TimeoutRedis,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.RabbitMQURL,
		c.RabbitMQMaxRetries,
		c.RabbitMQRetryDelay,
		c.JWTSecretKey,
		c.TokenTTL,
		c.ScanInterval,
		c.Catalog.Version,
		len(c.Catalog.Plans),
		len(c.PaymentChannels),
	)
}
