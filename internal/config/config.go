package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"

	LockLocal = "local"
	LockRedis = "redis"

	SinkLog   = "log"
	SinkRedis = "redis"
	SinkSQS   = "sqs"

	MaxCurrencyPrecision = 2
)

type Config struct {
	AppPort     string
	StoreDriver string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	LockBackend string
	LockWait    time.Duration
	LockTTL     time.Duration

	CurrencyPrecision int32
	VerifySummary     bool

	NotifySinks   []string
	EventsChannel string
	SQSQueueURL   string

	SweepSchedule string
	CycleSchedule string

	LogLevel string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getint(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getbool(k string, d bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return d
}

// Load reads the process environment. A .env file in the working directory
// is applied first when present; variables already set win.
func Load() *Config {
	_ = godotenv.Load()

	c := &Config{
		AppPort:     getenv("APP_PORT", "8080"),
		StoreDriver: strings.ToLower(getenv("STORE_DRIVER", StoreMySQL)),

		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "savings"),
		MySQLUser: getenv("MYSQL_USER", "savings"),
		MySQLPass: getenv("MYSQL_PASS", "savings"),

		RedisAddr: getenv("REDIS_ADDR", "redis:6379"),
		RedisDB:   getint("REDIS_DB", 0),

		IdempTTLSecs: getint("IDEMPOTENCY_TTL_SECONDS", 300),

		LockBackend: strings.ToLower(getenv("LOCK_BACKEND", LockLocal)),
		LockWait:    time.Duration(getint("LOCK_WAIT_MS", 2000)) * time.Millisecond,
		LockTTL:     time.Duration(getint("LOCK_TTL_MS", 10000)) * time.Millisecond,

		CurrencyPrecision: int32(getint("CURRENCY_PRECISION", 0)),
		VerifySummary:     getbool("VERIFY_SUMMARY", false),

		NotifySinks:   splitList(getenv("NOTIFY_SINKS", SinkLog)),
		EventsChannel: getenv("REDIS_EVENTS_CHANNEL", "savings.events"),
		SQSQueueURL:   os.Getenv("SQS_QUEUE_URL"),

		SweepSchedule: getenv("SWEEP_SCHEDULE", "@every 1h"),
		CycleSchedule: getenv("CYCLE_SCHEDULE", "@daily"),

		LogLevel: getenv("LOG_LEVEL", "info"),
	}
	return c
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// HasSink reports whether name is among the configured notification sinks.
func (c *Config) HasSink(name string) bool {
	for _, s := range c.NotifySinks {
		if s == name {
			return true
		}
	}
	return false
}

// UsesRedis reports whether any configured component needs a redis client.
func (c *Config) UsesRedis() bool {
	return c.LockBackend == LockRedis || c.HasSink(SinkRedis) || c.IdempTTLSecs > 0
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	switch c.StoreDriver {
	case StoreMySQL:
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		// ensure port is valid
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q (mysql|memory)", c.StoreDriver)
	}
	switch c.LockBackend {
	case LockLocal, LockRedis:
	default:
		return fmt.Errorf("invalid LOCK_BACKEND %q (local|redis)", c.LockBackend)
	}
	if c.LockWait <= 0 || c.LockTTL <= 0 {
		return errors.New("LOCK_WAIT_MS and LOCK_TTL_MS must be positive")
	}
	// money columns are decimal(18,2)
	if c.CurrencyPrecision < 0 || c.CurrencyPrecision > MaxCurrencyPrecision {
		return fmt.Errorf("invalid CURRENCY_PRECISION %d (0..%d)", c.CurrencyPrecision, MaxCurrencyPrecision)
	}
	for _, s := range c.NotifySinks {
		switch s {
		case SinkLog, SinkRedis, SinkSQS:
		default:
			return fmt.Errorf("unknown notify sink %q", s)
		}
	}
	if c.HasSink(SinkSQS) && c.SQSQueueURL == "" {
		return errors.New("NOTIFY_SINKS includes sqs but SQS_QUEUE_URL is empty")
	}
	if c.UsesRedis() && c.RedisAddr == "" {
		return errors.New("missing REDIS_ADDR")
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
