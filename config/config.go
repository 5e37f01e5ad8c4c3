package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Drivers de armazenamento e de lock aceitos.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	LockDriverMemory = "memory"
	LockDriverRedis  = "redis"
)

// Config armazena todas as configurações do aplicativo GoChopp.
type Config struct {
	// Geral
	Port        string
	Environment string
	LogLevel    string
	LogFormat   string

	// Armazenamento
	StorageDriver string
	DatabaseURL   string
	DBTimeout     time.Duration

	// Cache (Redis)
	RedisAddr    string
	CacheTimeout time.Duration

	// Serialização por marca
	LockDriver string
	LockTTL    time.Duration

	// Notificações (Kafka); vazio desliga o publisher e usa o log
	KafkaBrokers []string
	KafkaTopic   string

	// Segurança (JWT)
	JWTSecretKey string
	TokenExpiry  time.Duration

	// Rate Limiting
	RateLimitMaxRequests int
	RateLimitPeriod      time.Duration

	// Alocação FIFO
	AllocationMaxRetries int
}

// LoadConfig carrega as configurações do .env (se existir) e das variáveis de ambiente.
// As variáveis de ambiente reais têm precedência sobre o .env.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ Aviso: Arquivo .env não encontrado. Carregando configs apenas do ambiente do sistema.")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Port:        v.GetString("PORT"),
		Environment: v.GetString("ENV"),
		LogLevel:    strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:   v.GetString("LOG_FORMAT"),

		StorageDriver: strings.ToLower(v.GetString("STORAGE_DRIVER")),
		DatabaseURL:   v.GetString("DATABASE_URL"),
		DBTimeout:     time.Duration(v.GetInt("DB_TIMEOUT_SEC")) * time.Second,

		RedisAddr:    v.GetString("REDIS_ADDR"),
		CacheTimeout: time.Duration(v.GetInt("CACHE_TIMEOUT_SEC")) * time.Second,

		LockDriver: strings.ToLower(v.GetString("LOCK_DRIVER")),
		LockTTL:    time.Duration(v.GetInt("LOCK_TTL_SEC")) * time.Second,

		KafkaBrokers: splitCSV(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:   v.GetString("KAFKA_TOPIC"),

		JWTSecretKey: v.GetString("JWT_SECRET_KEY"),
		TokenExpiry:  time.Duration(v.GetInt("JWT_EXPIRY_MIN")) * time.Minute,

		RateLimitMaxRequests: v.GetInt("RATE_LIMIT_MAX_REQUESTS"),
		RateLimitPeriod:      time.Duration(v.GetInt("RATE_LIMIT_PERIOD_MIN")) * time.Minute,

		AllocationMaxRetries: v.GetInt("ALLOCATION_MAX_RETRIES"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("STORAGE_DRIVER", StorageDriverPostgres)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_TIMEOUT_SEC", 5)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("CACHE_TIMEOUT_SEC", 10)
	v.SetDefault("LOCK_DRIVER", LockDriverMemory)
	v.SetDefault("LOCK_TTL_SEC", 30)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "keg.notifications")
	v.SetDefault("JWT_SECRET_KEY", "")
	v.SetDefault("JWT_EXPIRY_MIN", 60)
	v.SetDefault("RATE_LIMIT_MAX_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_PERIOD_MIN", 1)
	v.SetDefault("ALLOCATION_MAX_RETRIES", 3)
}

// Validate garante que a aplicação não inicie com uma configuração impossível.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("❌ Erro de Configuração: DATABASE_URL deve ser definida para STORAGE_DRIVER=%s", c.StorageDriver)
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("❌ Erro de Configuração: STORAGE_DRIVER desconhecido %q", c.StorageDriver)
	}

	switch c.LockDriver {
	case LockDriverMemory, LockDriverRedis:
	default:
		return fmt.Errorf("❌ Erro de Configuração: LOCK_DRIVER desconhecido %q", c.LockDriver)
	}

	if c.JWTSecretKey == "" {
		return fmt.Errorf("❌ Erro de Configuração: A variável de ambiente JWT_SECRET_KEY deve ser definida.")
	}
	if c.DBTimeout <= 0 {
		return fmt.Errorf("❌ Erro de Configuração: DB_TIMEOUT_SEC deve ser positivo")
	}
	if c.AllocationMaxRetries < 1 {
		c.AllocationMaxRetries = 1
	}
	return nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
