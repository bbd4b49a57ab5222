// Package config loads rusty-stl settings from a YAML or TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/pangeorg/rusty-stl/pkg/engine"
	"github.com/pangeorg/rusty-stl/pkg/source"
)

// EnvPath names the environment variable consulted when no config path is
// given on the command line.
const EnvPath = "CONFIG_PATH"

// ErrUnknownFormat is returned for config files that are neither YAML nor TOML.
var ErrUnknownFormat = errors.New("config: unknown file format")

type Config struct {
	Analysis Analysis        `yaml:"analysis" toml:"analysis"`
	Columns  []engine.Column `yaml:"columns" toml:"columns"`
	Server   Server          `yaml:"server" toml:"server"`
	Database Database        `yaml:"database" toml:"database"`
	Minio    Minio           `yaml:"minio" toml:"minio"`
	Log      Log             `yaml:"log" toml:"log"`
}

type Analysis struct {
	// Workers is the number of files analysed concurrently. Zero means
	// one per CPU.
	Workers int `yaml:"workers" toml:"workers"`

	// MeshWorkers splits a single large mesh across goroutines. Values
	// below 2 keep the sequential pass.
	MeshWorkers int    `yaml:"meshWorkers" toml:"meshWorkers"`
	Recursive   bool   `yaml:"recursive" toml:"recursive"`
	Thickness   bool   `yaml:"thickness" toml:"thickness"`
	Format      string `yaml:"format" toml:"format"`

	// Scale divides reported volumes. The default 1e6 turns mm³ into
	// litres.
	Scale float64 `yaml:"scale" toml:"scale"`
}

type Server struct {
	Port           int      `yaml:"port" toml:"port"`
	AllowedOrigins []string `yaml:"allowedOrigins" toml:"allowedOrigins"`
}

type Database struct {
	// Driver is "postgres" or "mysql". Empty disables the result store.
	Driver   string `yaml:"driver" toml:"driver"`
	DSN      string `yaml:"dsn" toml:"dsn"`
	Host     string `yaml:"host" toml:"host"`
	Port     int    `yaml:"port" toml:"port"`
	User     string `yaml:"user" toml:"user"`
	Password string `yaml:"password" toml:"password"`
	Name     string `yaml:"name" toml:"name"`
}

type Minio struct {
	Endpoint  string `yaml:"endpoint" toml:"endpoint"`
	AccessKey string `yaml:"accessKey" toml:"accessKey"`
	SecretKey string `yaml:"secretKey" toml:"secretKey"`
	Region    string `yaml:"region" toml:"region"`
	UseSSL    bool   `yaml:"useSSL" toml:"useSSL"`
}

type Log struct {
	Level string `yaml:"level" toml:"level"`
	JSON  bool   `yaml:"json" toml:"json"`
}

const defaultScale = 1e6

// Default returns the settings used when no file is present.
func Default() *Config {
	return &Config{
		Analysis: Analysis{Format: "table", Scale: defaultScale},
		Server:   Server{Port: 8080, AllowedOrigins: []string{"*"}},
		Log:      Log{Level: "info"},
	}
}

// Load reads the file at path on top of [Default]. The format is chosen by
// extension: .yaml/.yml or .toml.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Analysis.Scale <= 0 {
		cfg.Analysis.Scale = defaultScale
	}
	return cfg, nil
}

// Resolve loads path, falling back to $CONFIG_PATH. With neither set it
// returns [Default].
func Resolve(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// ConnString returns the data source name for the configured driver,
// building one from the individual fields when DSN is empty.
func (d Database) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	switch d.Driver {
	case "mysql":
		return d.MySQLDSN()
	case "postgres":
		return d.PostgresDSN()
	}
	return ""
}

// MySQLDSN builds a go-sql-driver/mysql DSN.
func (d Database) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Name,
	)
}

// PostgresDSN builds a lib/pq connection string.
func (d Database) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// Bucket converts the minio section for [source.NewBucket].
func (m Minio) Bucket() source.BucketConfig {
	return source.BucketConfig{
		Endpoint:  m.Endpoint,
		Region:    m.Region,
		AccessKey: m.AccessKey,
		SecretKey: m.SecretKey,
		UseSSL:    m.UseSSL,
	}
}
