// Package config provides functionality for managing configuration options
// for the directory server using a TOML file, command-line flags and
// environment variables. Later sources win: defaults, then the file, then
// flags, then the environment.
package config

import (
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

var ErrInvalidOptions = errors.New("invalid options")

// Options holds the configuration values for the application.
type Options struct {
	// ServerAddress defines the server's listening address (ip:port).
	ServerAddress string `toml:"server_address"`

	// DatabaseDSN selects the PostgreSQL backend when set.
	DatabaseDSN string `toml:"database_dsn"`

	// MongoURI selects the MongoDB backend when set and DatabaseDSN is empty.
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`

	// FilePath is the JSON-lines storage file used when no database is set.
	FilePath string `toml:"file_storage_path"`

	// RedisURL enables the shared page cache.
	RedisURL string        `toml:"redis_url"`
	CacheTTL time.Duration `toml:"cache_ttl"`

	LogLevel string `toml:"log_level"`

	// EnablePprof indicates whether to enable pprof for performance profiling.
	EnablePprof bool `toml:"enable_pprof"`

	// EnableHTTPS serves TLS on :443 with certificates from Let's Encrypt
	// for TLSHosts.
	EnableHTTPS bool     `toml:"enable_https"`
	TLSHosts    []string `toml:"tls_hosts"`

	// TrustedSubnet is a CIDR allowed to call operator endpoints.
	TrustedSubnet string `toml:"trusted_subnet"`

	PopulateCount       int           `toml:"populate_count"`
	MaxPopulateCount    int           `toml:"max_populate_count"`
	InsertChunkSize     int           `toml:"insert_chunk_size"`
	DeleteChunkSize     int           `toml:"delete_chunk_size"`
	DeleteMaxIterations int           `toml:"delete_max_iterations"`
	DeleteMaxDuration   time.Duration `toml:"delete_max_duration"`

	// ChunkRate caps chunk writes and deletes per second; 0 means unlimited.
	ChunkRate float64 `toml:"chunk_rate"`

	MaxPageSize int `toml:"max_page_size"`

	// ConfigPath is the TOML file the options were read from.
	ConfigPath string `toml:"-"`
}

// Default returns the built-in configuration.
func Default() *Options {
	return &Options{
		ServerAddress:       "localhost:8080",
		MongoDatabase:       "userdir",
		CacheTTL:            30 * time.Second,
		LogLevel:            "info",
		PopulateCount:       10000,
		MaxPopulateCount:    100000,
		InsertChunkSize:     200,
		DeleteChunkSize:     1000,
		DeleteMaxIterations: 10000,
		DeleteMaxDuration:   5 * time.Minute,
		MaxPageSize:         100,
	}
}

// Example returns the annotated example configuration file.
func Example() []byte {
	return exampleConf
}

// Parse reads options from os.Args and the environment.
func Parse() (*Options, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs reads options from args and the environment. Each call uses a
// fresh flag set, so it is safe to call repeatedly.
func ParseArgs(args []string) (*Options, error) {
	// first pass only locates the config file
	probe := flag.NewFlagSet("userdir", flag.ContinueOnError)
	probe.SetOutput(discard{})
	bindFlags(probe, Default())
	_ = probe.Parse(args)

	configPath := probe.Lookup("c").Value.String()
	if env := os.Getenv("CONFIG"); env != "" {
		configPath = env
	}

	options := Default()
	if configPath != "" {
		if err := loadFile(configPath, options); err != nil {
			return nil, err
		}
		options.ConfigPath = configPath
	}

	// second pass: flag defaults are the file values, so only explicit
	// flags override them
	fs := flag.NewFlagSet("userdir", flag.ContinueOnError)
	bindFlags(fs, options)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	options.ConfigPath = configPath

	if err := applyEnv(options); err != nil {
		return nil, err
	}

	return options, options.Validate()
}

func bindFlags(fs *flag.FlagSet, o *Options) {
	fs.StringVar(&o.ServerAddress, "a", o.ServerAddress, "run on ip:port server")
	fs.StringVar(&o.DatabaseDSN, "d", o.DatabaseDSN, "postgres dsn")
	fs.StringVar(&o.MongoURI, "m", o.MongoURI, "mongodb uri")
	fs.StringVar(&o.MongoDatabase, "mongo-db", o.MongoDatabase, "mongodb database name")
	fs.StringVar(&o.FilePath, "f", o.FilePath, "path to storage file")
	fs.StringVar(&o.RedisURL, "r", o.RedisURL, "redis url for the page cache")
	fs.DurationVar(&o.CacheTTL, "cache-ttl", o.CacheTTL, "page cache ttl")
	fs.StringVar(&o.LogLevel, "l", o.LogLevel, "log level")
	fs.BoolVar(&o.EnablePprof, "p", o.EnablePprof, "enable pprof")
	fs.BoolVar(&o.EnableHTTPS, "s", o.EnableHTTPS, "enable https")
	fs.StringVar(&o.TrustedSubnet, "t", o.TrustedSubnet, "trusted subnet (CIDR)")
	fs.IntVar(&o.PopulateCount, "populate-count", o.PopulateCount, "default number of users per populate")
	fs.IntVar(&o.MaxPopulateCount, "max-populate-count", o.MaxPopulateCount, "largest accepted populate count")
	fs.IntVar(&o.InsertChunkSize, "insert-chunk", o.InsertChunkSize, "records per insert")
	fs.IntVar(&o.DeleteChunkSize, "delete-chunk", o.DeleteChunkSize, "records per delete")
	fs.IntVar(&o.DeleteMaxIterations, "delete-max-iterations", o.DeleteMaxIterations, "delete chunk limit per run")
	fs.DurationVar(&o.DeleteMaxDuration, "delete-max-duration", o.DeleteMaxDuration, "delete time limit per run")
	fs.Float64Var(&o.ChunkRate, "chunk-rate", o.ChunkRate, "max chunks per second, 0 for unlimited")
	fs.IntVar(&o.MaxPageSize, "max-page-size", o.MaxPageSize, "largest accepted page size")
	fs.String("c", o.ConfigPath, "path to TOML config file")
}

func loadFile(path string, o *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, o); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	return nil
}

func applyEnv(o *Options) error {
	strs := map[string]*string{
		"SERVER_ADDRESS":    &o.ServerAddress,
		"DATABASE_DSN":      &o.DatabaseDSN,
		"MONGO_URI":         &o.MongoURI,
		"MONGO_DATABASE":    &o.MongoDatabase,
		"FILE_STORAGE_PATH": &o.FilePath,
		"REDIS_URL":         &o.RedisURL,
		"LOG_LEVEL":         &o.LogLevel,
		"TRUSTED_SUBNET":    &o.TrustedSubnet,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"POPULATE_COUNT":        &o.PopulateCount,
		"MAX_POPULATE_COUNT":    &o.MaxPopulateCount,
		"INSERT_CHUNK_SIZE":     &o.InsertChunkSize,
		"DELETE_CHUNK_SIZE":     &o.DeleteChunkSize,
		"DELETE_MAX_ITERATIONS": &o.DeleteMaxIterations,
		"MAX_PAGE_SIZE":         &o.MaxPageSize,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidOptions, key, err)
		}
		*dst = n
	}

	durations := map[string]*time.Duration{
		"DELETE_MAX_DURATION": &o.DeleteMaxDuration,
		"CACHE_TTL":           &o.CacheTTL,
	}
	for key, dst := range durations {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidOptions, key, err)
		}
		*dst = d
	}

	bools := map[string]*bool{
		"ENABLE_PPROF": &o.EnablePprof,
		"ENABLE_HTTPS": &o.EnableHTTPS,
	}
	for key, dst := range bools {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidOptions, key, err)
		}
		*dst = b
	}

	if v := os.Getenv("CHUNK_RATE"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: CHUNK_RATE: %w", ErrInvalidOptions, err)
		}
		o.ChunkRate = r
	}

	if v := os.Getenv("TLS_HOSTS"); v != "" {
		o.TLSHosts = strings.Split(v, ",")
	}

	return nil
}

// Validate rejects values the engines cannot run with.
func (o *Options) Validate() error {
	var errs []error

	positive := map[string]int{
		"insert_chunk_size":     o.InsertChunkSize,
		"delete_chunk_size":     o.DeleteChunkSize,
		"delete_max_iterations": o.DeleteMaxIterations,
		"max_page_size":         o.MaxPageSize,
		"populate_count":        o.PopulateCount,
		"max_populate_count":    o.MaxPopulateCount,
	}
	for name, v := range positive {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}

	if o.PopulateCount > o.MaxPopulateCount {
		errs = append(errs, fmt.Errorf("populate_count %d exceeds max_populate_count %d", o.PopulateCount, o.MaxPopulateCount))
	}
	if o.DeleteMaxDuration <= 0 {
		errs = append(errs, fmt.Errorf("delete_max_duration must be positive, got %s", o.DeleteMaxDuration))
	}
	if o.ChunkRate < 0 {
		errs = append(errs, fmt.Errorf("chunk_rate must not be negative, got %g", o.ChunkRate))
	}
	if o.TrustedSubnet != "" {
		if _, _, err := net.ParseCIDR(o.TrustedSubnet); err != nil {
			errs = append(errs, fmt.Errorf("trusted_subnet: %w", err))
		}
	}
	if o.EnableHTTPS && len(o.TLSHosts) == 0 {
		errs = append(errs, errors.New("enable_https requires tls_hosts"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, errors.Join(errs...))
	}
	return nil
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
