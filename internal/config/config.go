// Package config loads and validates the preprocessing pipeline configuration.
//
// Values come, lowest precedence first, from built-in defaults, an optional
// YAML/JSON file, RAGPREP_* environment variables and bound command line flags.
// The merged result is checked against an embedded JSON Schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/spf13/viper"

	"github.com/krakend/rag-preprocessor/internal/indexing"
)

const (
	EnvPrefix = "RAGPREP"

	DefaultDataDir       = "data/sample_transcripts"
	DefaultPattern       = "*.txt"
	DefaultOutput        = "output/processed_chunks.json"
	DefaultEncoding      = "cl100k_base"
	DefaultCacheTTL      = "2m"
	DefaultCacheCapacity = 1024

	// Under DataHome
	indexSubdir = "search/index"
)

// ErrInvalidConfig wraps every schema violation found by Validate
var ErrInvalidConfig = errors.New("invalid pipeline configuration")

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://rag-preprocessor.local/schema/config.json"

// Config is the full pipeline configuration
type Config struct {
	DataDir      string `mapstructure:"data_dir" json:"data_dir"`
	Pattern      string `mapstructure:"pattern" json:"pattern"`
	Output       string `mapstructure:"output" json:"output"`
	IndexDir     string `mapstructure:"index_dir" json:"index_dir"`
	ChunkSize    int    `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	Workers      int    `mapstructure:"workers" json:"workers"`

	Tokenizer TokenizerConfig `mapstructure:"tokenizer" json:"tokenizer"`
	Cache     CacheConfig     `mapstructure:"cache" json:"cache"`
	Metrics   MetricsConfig   `mapstructure:"metrics" json:"metrics"`
	Log       LogConfig       `mapstructure:"log" json:"log"`
}

type TokenizerConfig struct {
	Encoding string `mapstructure:"encoding" json:"encoding"`
}

type CacheConfig struct {
	TTL      string `mapstructure:"ttl" json:"ttl"`
	Capacity int    `mapstructure:"capacity" json:"capacity"`
}

// TTLDuration parses TTL; an unparsable value yields the default
func (c CacheConfig) TTLDuration() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		d, _ = time.ParseDuration(DefaultCacheTTL)
	}
	return d
}

type MetricsConfig struct {
	// Empty disables the metrics endpoint
	Addr string `mapstructure:"addr" json:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level" json:"level"`
	Style string `mapstructure:"style" json:"style"`
}

// NewViper returns a viper instance with defaults and environment binding set up
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("pattern", DefaultPattern)
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("index_dir", "")
	v.SetDefault("chunk_size", indexing.DefaultChunkSize)
	v.SetDefault("chunk_overlap", indexing.DefaultChunkOverlap)
	v.SetDefault("workers", 0)
	v.SetDefault("tokenizer.encoding", DefaultEncoding)
	v.SetDefault("cache.ttl", DefaultCacheTTL)
	v.SetDefault("cache.capacity", DefaultCacheCapacity)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.style", "terminal")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the optional file at path into v, then unmarshals and validates
// the merged configuration
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if cfg.IndexDir == "" {
		cfg.IndexDir = filepath.Join(DataHome(), indexSubdir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against the embedded schema
func (c *Config) Validate() error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	problems, err := ValidateJSON(data)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Problem is a single schema violation
type Problem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError lists every schema violation of a configuration
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Path+": "+p.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidConfig, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("embedded schema is invalid: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}

		compiledSchema, compileErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, compileErr
}

// ValidateJSON validates a JSON document against the configuration schema.
// It returns the violations found; the error is reserved for malformed JSON
// or a broken schema.
func ValidateJSON(data []byte) ([]Problem, error) {
	sch, err := schema()
	if err != nil {
		return nil, err
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if err := sch.Validate(doc); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return collectProblems(validationErr), nil
		}
		return []Problem{{Path: "$", Message: err.Error()}}, nil
	}

	return []Problem{}, nil
}

// collectProblems flattens the error tree, keeping only leaf causes
func collectProblems(validationErr *jsonschema.ValidationError) []Problem {
	if len(validationErr.Causes) == 0 {
		path := "$"
		if len(validationErr.InstanceLocation) > 0 {
			path = "$." + strings.Join(validationErr.InstanceLocation, ".")
		}
		return []Problem{{Path: path, Message: validationErr.Error()}}
	}

	var problems []Problem
	for _, cause := range validationErr.Causes {
		problems = append(problems, collectProblems(cause)...)
	}
	return problems
}

// DataHome returns the directory holding the search index and its lock.
//
// It prefers ~/.rag-preprocessor, creating it when missing, and falls back
// to ./data when the home directory cannot be used.
func DataHome() string {
	if home, err := os.UserHomeDir(); err == nil {
		dir := filepath.Join(home, ".rag-preprocessor")
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		if err := os.MkdirAll(filepath.Join(dir, "search"), 0755); err == nil {
			return dir
		}
	}

	dir := filepath.Join(".", "data")
	_ = os.MkdirAll(filepath.Join(dir, "search"), 0755)
	return dir
}
