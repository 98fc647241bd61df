package main

import (
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFile = "./config.yml"
	EnvFile    = "./config.env"
	EnvPrefix  = "BGQL"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit               string        `yaml:"git_commit" json:"git_commit" envconfig:"BGQL_GIT_COMMIT"`
	GitTag                  string        `yaml:"git_tag" json:"git_tag" envconfig:"BGQL_GIT_TAG"`
	BuildTime               string        `yaml:"build_time" json:"build_time" envconfig:"BGQL_BUILD_TIME"`
	IsProduction            bool          `yaml:"is_production" json:"is_production" envconfig:"BGQL_IS_PRODUCTION"`
	LogLevel                zapcore.Level `yaml:"log_level" json:"log_level" envconfig:"BGQL_LOG_LEVEL"`
	LogFolder               string        `yaml:"log_folder" json:"log_folder" envconfig:"BGQL_LOG_FOLDER"`
	LogMaxSize              int           `yaml:"log_max_size" json:"log_max_size" envconfig:"BGQL_LOG_MAX_SIZE"`
	OpsEndpointsEnable      bool          `yaml:"ops_endpoints_enable" json:"ops_endpoints_enable" envconfig:"BGQL_OPS_ENDPOINTS_ENABLE"`
	ProfilerEndpointsEnable bool          `yaml:"profiler_endpoints_enable" json:"profiler_endpoints_enable" envconfig:"BGQL_PROFILER_ENDPOINTS_ENABLE"`
	Server                  ServerConfig  `yaml:"server" json:"server"`
	GraphQL                 GraphQLConfig `yaml:"graphql" json:"graphql"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" json:"host" envconfig:"BGQL_SERVER_HOST"`
	Port            string        `yaml:"port" json:"port" envconfig:"BGQL_SERVER_PORT"`
	CertsFile       string        `yaml:"certs_file" json:"certs_file" envconfig:"BGQL_SERVER_CERTS_FILE"`
	KeyFile         string        `yaml:"key_file" json:"key_file" envconfig:"BGQL_SERVER_KEY_FILE"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout" envconfig:"BGQL_SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout" envconfig:"BGQL_SERVER_WRITE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" json:"request_timeout" envconfig:"BGQL_SERVER_REQUEST_TIMEOUT"` // Time to wait for a request to finish
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" envconfig:"BGQL_SERVER_SHUTDOWN_TIMEOUT"`
}

type GraphQLConfig struct {
	Path             string `yaml:"path" json:"path" envconfig:"BGQL_GRAPHQL_PATH"`
	PlaygroundEnable bool   `yaml:"playground_enable" json:"playground_enable" envconfig:"BGQL_GRAPHQL_PLAYGROUND_ENABLE"`
	PlaygroundPath   string `yaml:"playground_path" json:"playground_path" envconfig:"BGQL_GRAPHQL_PLAYGROUND_PATH"`
	MaxDepth         int    `yaml:"max_depth" json:"max_depth" envconfig:"BGQL_GRAPHQL_MAX_DEPTH"`
	MaxParallelism   int    `yaml:"max_parallelism" json:"max_parallelism" envconfig:"BGQL_GRAPHQL_MAX_PARALLELISM"`
	MaxBodyBytes     int64  `yaml:"max_body_bytes" json:"max_body_bytes" envconfig:"BGQL_GRAPHQL_MAX_BODY_BYTES"`
}

// DefaultConfig provides the settings used for any value missing from the
// configuration file. The address matches the usual GraphQL dev server one.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:   zapcore.InfoLevel,
		LogFolder:  "./logs",
		LogMaxSize: 10,
		Server: ServerConfig{
			Host:            "localhost",
			Port:            "4000",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			RequestTimeout:  5 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		GraphQL: GraphQLConfig{
			Path:             "/graphql",
			PlaygroundEnable: true,
			PlaygroundPath:   "/playground",
			MaxDepth:         10,
			MaxParallelism:   10,
			MaxBodyBytes:     1 << 20,
		},
	}
}

// LoadConfigFile provides an instance of config structure for the all application.
// Values present in the file override the defaults. A missing file is not an error.
func LoadConfigFile(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	file, err := os.Open(configFile)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err = yaml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and provides an instance of the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig configures build tags values to be used if provided
// and checks the settings the server cannot start without.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Port) == 0 {
		return errors.New("make sure to set a valid server port in configuration file")
	}

	if (config.Server.CertsFile == "") != (config.Server.KeyFile == "") {
		return errors.New("make sure to set both certs and key files to enable tls")
	}

	if !strings.HasPrefix(config.GraphQL.Path, "/") {
		return errors.Errorf("graphql path %q must start with a slash", config.GraphQL.Path)
	}

	if config.GraphQL.PlaygroundEnable && !strings.HasPrefix(config.GraphQL.PlaygroundPath, "/") {
		return errors.Errorf("playground path %q must start with a slash", config.GraphQL.PlaygroundPath)
	}

	if config.GraphQL.MaxDepth < 0 || config.GraphQL.MaxParallelism < 0 || config.GraphQL.MaxBodyBytes < 0 {
		return errors.New("graphql limits cannot be negative")
	}

	if config.LogMaxSize <= 0 {
		return errors.New("make sure to set a positive log max size")
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data.
func LoadAndInitConfigs(gitCommit, gitTag, buildTime string) (*Config, error) {
	// Setup the yaml configuration from file.
	config, err := LoadConfigFile(ConfigFile)
	if err != nil {
		return config, errors.Wrap(err, "failed to load configurations from file")
	}

	// Set the environment configuration.
	if err = godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config, errors.Wrap(err, "failed to set environment configurations")
	}

	// Use environment variables with prefix `BGQL`.
	if err = LoadConfigEnvs(EnvPrefix, config); err != nil {
		return config, errors.Wrap(err, "failed to load configurations from environment")
	}

	if err = InitConfig(config, gitCommit, gitTag, buildTime); err != nil {
		return config, errors.Wrap(err, "failed to initialize configurations")
	}
	return config, nil
}
