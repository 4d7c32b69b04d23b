// Package settings loads process configuration. Later layers win:
// defaults, YAML file, .env files, environment, command-line flags.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/paulofranca-ai/canaldarkgen/internal/observability"
	"github.com/paulofranca-ai/canaldarkgen/internal/script"
)

const appDir = "canaldarkgen"

// Storage backends for presets and the vault record.
const (
	StorageFile   = "file"
	StorageMemory = "memory"
	StorageDynamo = "dynamodb"
	StorageRedis  = "redis"
)

// Asset backends for media-stage output.
const (
	AssetsDir = "dir"
	AssetsS3  = "s3"
)

type Settings struct {
	Storage       string `yaml:"storage"`
	StorePath     string `yaml:"store_path"`
	DynamoTable   string `yaml:"dynamo_table"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`

	AWSRegion    string `yaml:"aws_region"`
	SecretPrefix string `yaml:"secret_prefix"`

	TextProvider string `yaml:"text_provider"`
	TextModel    string `yaml:"text_model"`

	AssetBackend string `yaml:"asset_backend"`
	AssetDir     string `yaml:"asset_dir"`
	S3Bucket     string `yaml:"s3_bucket"`
	AssetBaseURL string `yaml:"asset_base_url"`

	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	MCPPort int `yaml:"mcp_port"`
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() Settings {
	return Settings{
		Storage:      StorageFile,
		StorePath:    filepath.Join(configDir(), "store.json"),
		DynamoTable:  "canaldarkgen",
		RedisAddr:    "localhost:6379",
		RedisPrefix:  "canaldarkgen:",
		SecretPrefix: "canaldarkgen/",
		TextProvider: script.ProviderClaude,
		AssetBackend: AssetsDir,
		AssetDir:     "canaldark-assets",
		LogLevel:     "info",
		LogFormat:    "text",
		MCPPort:      8000,
	}
}

// DefaultPath is the YAML file read when no path is given.
func DefaultPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func configDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appDir)
	}
	return "." + appDir
}

// Load builds settings from defaults, the YAML file at path and the
// environment. An empty path reads DefaultPath if it exists; an explicit
// path must exist. envFiles are read with godotenv and lose to real
// environment variables.
func Load(path string, envFiles ...string) (Settings, error) {
	s := Defaults()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	dotenv := map[string]string{}
	for _, f := range envFiles {
		vals, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Settings{}, fmt.Errorf("read %s: %w", f, err)
		}
		for k, v := range vals {
			if _, seen := dotenv[k]; !seen {
				dotenv[k] = v
			}
		}
	}
	lookup := func(name string) (string, bool) {
		if v, ok := os.LookupEnv(name); ok {
			return v, true
		}
		v, ok := dotenv[name]
		return v, ok
	}
	if err := s.applyEnv(lookup); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s *Settings) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", name, v)
		}
		*dst = n
		return nil
	}

	str("CANALDARK_STORAGE", &s.Storage)
	str("CANALDARK_STORE_PATH", &s.StorePath)
	str("CANALDARK_DYNAMO_TABLE", &s.DynamoTable)
	str("REDIS_ADDR", &s.RedisAddr)
	str("REDIS_PASSWORD", &s.RedisPassword)
	str("CANALDARK_REDIS_PREFIX", &s.RedisPrefix)
	str("AWS_REGION", &s.AWSRegion)
	str("CANALDARK_SECRET_PREFIX", &s.SecretPrefix)
	str("CANALDARK_TEXT_PROVIDER", &s.TextProvider)
	str("CANALDARK_TEXT_MODEL", &s.TextModel)
	str("CANALDARK_ASSETS", &s.AssetBackend)
	str("CANALDARK_ASSET_DIR", &s.AssetDir)
	str("CANALDARK_S3_BUCKET", &s.S3Bucket)
	str("CANALDARK_ASSET_BASE_URL", &s.AssetBaseURL)
	str("LOG_LEVEL", &s.LogLevel)
	str("LOG_FORMAT", &s.LogFormat)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &s.OTLPEndpoint)

	return errors.Join(num("REDIS_DB", &s.RedisDB), num("MCP_PORT", &s.MCPPort))
}

// Validate reports every invalid value at once.
func (s Settings) Validate() error {
	var errs []error
	switch s.Storage {
	case StorageFile:
		if s.StorePath == "" {
			errs = append(errs, errors.New("store_path is required for file storage"))
		}
	case StorageMemory:
	case StorageDynamo:
		if s.DynamoTable == "" {
			errs = append(errs, errors.New("dynamo_table is required for dynamodb storage"))
		}
	case StorageRedis:
		if s.RedisAddr == "" {
			errs = append(errs, errors.New("redis_addr is required for redis storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage %q is not one of file, memory, dynamodb, redis", s.Storage))
	}

	validText := false
	for _, p := range script.Providers() {
		if s.TextProvider == p {
			validText = true
		}
	}
	if !validText {
		errs = append(errs, fmt.Errorf("text_provider %q is not one of %s", s.TextProvider, strings.Join(script.Providers(), ", ")))
	}

	switch s.AssetBackend {
	case AssetsDir:
		if s.AssetDir == "" {
			errs = append(errs, errors.New("asset_dir is required for dir assets"))
		}
	case AssetsS3:
		if s.S3Bucket == "" {
			errs = append(errs, errors.New("s3_bucket is required for s3 assets"))
		}
	default:
		errs = append(errs, fmt.Errorf("asset_backend %q is not one of dir, s3", s.AssetBackend))
	}

	if _, err := observability.ParseLevel(s.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if s.LogFormat != "text" && s.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format %q is not text or json", s.LogFormat))
	}
	if s.MCPPort <= 0 || s.MCPPort > 65535 {
		errs = append(errs, fmt.Errorf("mcp_port %d is out of range", s.MCPPort))
	}
	return errors.Join(errs...)
}

// NeedsAWS reports whether any configured backend talks to AWS.
func (s Settings) NeedsAWS() bool {
	return s.Storage == StorageDynamo || s.AssetBackend == AssetsS3 || s.TextProvider == script.ProviderNova || s.SecretPrefix != "" && s.AWSRegion != ""
}
