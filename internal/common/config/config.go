package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"restaurant-orders/internal/domain"
)

type DB struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Pass     string `yaml:"password"`
	Name     string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
}

type MQ struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	User  string `yaml:"user"`
	Pass  string `yaml:"password"`
	VHost string `yaml:"vhost"`
	TLS   bool   `yaml:"tls"`
}

// Enabled is false when no broker host is configured; order events are
// then dropped.
func (m MQ) Enabled() bool { return m.Host != "" }

type HTTP struct {
	OrderPort    int `yaml:"order_port"`
	TrackingPort int `yaml:"tracking_port"`
	KitchenPort  int `yaml:"kitchen_port"`
}

type Log struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type App struct {
	Store       string        `yaml:"store"` // memory | postgres
	Timezone    string        `yaml:"timezone"`
	Transitions string        `yaml:"transitions"`
	CallTimeout time.Duration `yaml:"call_timeout"`
	Database    DB            `yaml:"database"`
	Rabbit      MQ            `yaml:"rabbitmq"`
	HTTP        HTTP          `yaml:"http"`
	Log         Log           `yaml:"log"`
}

func Defaults() App {
	return App{
		Store:       "memory",
		Timezone:    "Local",
		Transitions: string(domain.PolicyForward),
		CallTimeout: 10 * time.Second,
		Database:    DB{Port: 5432, SSLMode: "disable", MaxConns: 10},
		Rabbit:      MQ{Port: 5672, VHost: "/"},
		HTTP:        HTTP{OrderPort: 3000, TrackingPort: 3002, KitchenPort: 3001},
		Log:         Log{Level: "info"},
	}
}

// Load reads .env (if present), then the YAML file at path (if non-empty),
// then applies environment overrides.
func Load(path string) (App, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return App{}, fmt.Errorf("load .env: %w", err)
	}

	a := Defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return App{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &a); err != nil {
			return App{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&a)

	if err := a.Validate(); err != nil {
		return App{}, err
	}
	return a, nil
}

func (a App) Validate() error {
	switch a.Store {
	case "memory":
	case "postgres":
		if a.Database.Host == "" || a.Database.User == "" || a.Database.Name == "" {
			return errors.New("invalid config: database host, user and database are required for the postgres store")
		}
	default:
		return fmt.Errorf("invalid config: unknown store %q", a.Store)
	}
	if _, err := domain.ParsePolicy(a.Transitions); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := a.Location(); err != nil {
		return fmt.Errorf("invalid config: timezone: %w", err)
	}
	if a.CallTimeout < 0 {
		return errors.New("invalid config: call_timeout must not be negative")
	}
	return nil
}

func (a App) Location() (*time.Location, error) {
	if a.Timezone == "" || a.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(a.Timezone)
}

func applyEnv(a *App) {
	str(&a.Store, "STORE")
	str(&a.Timezone, "TIMEZONE")
	str(&a.Transitions, "TRANSITIONS")
	if v := os.Getenv("CALL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			a.CallTimeout = d
		}
	}

	str(&a.Database.Host, "DB_HOST")
	num(&a.Database.Port, "DB_PORT")
	str(&a.Database.User, "DB_USER")
	str(&a.Database.Pass, "DB_PASSWORD")
	str(&a.Database.Name, "DB_NAME")
	str(&a.Database.SSLMode, "DB_SSLMODE")

	str(&a.Rabbit.Host, "RABBITMQ_HOST")
	num(&a.Rabbit.Port, "RABBITMQ_PORT")
	str(&a.Rabbit.User, "RABBITMQ_USER")
	str(&a.Rabbit.Pass, "RABBITMQ_PASSWORD")
	str(&a.Rabbit.VHost, "RABBITMQ_VHOST")

	str(&a.Log.Level, "LOG_LEVEL")
}

func str(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func num(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func FindConfig() (string, error) {
	candidates := []string{"config.yaml", "deploy/config.example.yaml"}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fs.ErrNotExist
}
