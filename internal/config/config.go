// Package config loads the connection settings of the Elvis client from a
// TOML file, a .env file and ELVIS_* environment variables, in increasing
// order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"

	"github.com/lasselehtinen/elvis/internal/common/apperrors"
	"github.com/lasselehtinen/elvis/pkg/elvis"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "ELVIS_"

// DefaultTimeout applies when no timeout is configured.
const DefaultTimeout = 60 * time.Second

var (
	ErrConfig        apperrors.Error = apperrors.New("configuration error")
	ErrConfigFile    apperrors.Error = ErrConfig.New("unable to read config file")
	ErrInvalidConfig apperrors.Error = ErrConfig.New("invalid configuration")
)

// Config holds the settings of one Elvis server connection.
type Config struct {
	APIEndpointURI     string        `toml:"api_endpoint_uri" mapstructure:"api_endpoint_uri" validate:"required,url"`
	Username           string        `toml:"username" mapstructure:"username" validate:"required"`
	Password           string        `toml:"password" mapstructure:"password" validate:"required"`
	Timeout            time.Duration `toml:"timeout" mapstructure:"timeout" validate:"gte=0"` // 0 disables the timeout
	ZipDir             string        `toml:"zip_dir" mapstructure:"zip_dir"`
	InsecureSkipVerify bool          `toml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
	LogLevel           string        `toml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
}

// LoadOptions selects the sources LoadConfig reads.
type LoadOptions struct {
	File    string   // TOML file, optional
	EnvFile string   // .env file, ignored when missing
	Environ []string // KEY=value pairs, os.Environ() in LoadConfig
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadConfig reads file, .env in the working directory and the process
// environment. An empty file name skips the TOML source.
func LoadConfig(file string) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, ErrConfig.MsgErr("unable to get working directory", err)
	}
	return Load(LoadOptions{
		File:    file,
		EnvFile: filepath.Join(cwd, ".env"),
		Environ: os.Environ(),
	})
}

// Load merges the sources in opts into a validated Config.
func Load(opts LoadOptions) (*Config, error) {
	env := parseEnviron(opts.Environ)
	if opts.EnvFile != "" {
		dotenv, err := godotenv.Read(opts.EnvFile)
		if err != nil && !os.IsNotExist(err) {
			return nil, ErrConfigFile.MsgErr("unable to parse "+opts.EnvFile, err)
		}
		for k, v := range dotenv {
			if _, set := env[k]; !set {
				env[k] = v
			}
		}
	}

	values := map[string]any{}
	if opts.File != "" {
		raw, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, ErrConfigFile.MsgErr("unable to read "+opts.File, err)
		}
		expanded, err := ExpandEnv(raw, env)
		if err != nil {
			return nil, ErrConfigFile.MsgErr("unable to expand "+opts.File, err)
		}
		if _, err := toml.Decode(string(expanded), &values); err != nil {
			return nil, ErrConfigFile.MsgErr("unable to parse "+opts.File, err)
		}
	}

	for k, v := range env {
		if key, found := strings.CutPrefix(k, EnvPrefix); found && key != "" {
			values[strings.ToLower(key)] = v
		}
	}

	cfg := &Config{Timeout: DefaultTimeout, LogLevel: "info"}
	if err := decode(values, cfg); err != nil {
		return nil, ErrInvalidConfig.MsgErr("unable to decode configuration", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

func parseEnviron(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, e := range environ {
		if k, v, found := strings.Cut(e, "="); found && k != "" {
			env[k] = v
		}
	}
	return env
}

func decode(values map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			secondsToDurationHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(values)
}

// secondsToDurationHook reads bare numbers as seconds, so timeout = 30 and
// ELVIS_TIMEOUT=30 both mean thirty seconds.
func secondsToDurationHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch v := data.(type) {
	case int64:
		return time.Duration(v) * time.Second, nil
	case int:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case string:
		if v != "" && strings.Trim(v, "0123456789") == "" {
			return v + "s", nil
		}
	}
	return data, nil
}

// Validate checks the struct constraints and the URL scheme.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return ErrInvalidConfig.MsgErr(fieldErrors(err), err)
	}
	if !strings.HasPrefix(cfg.APIEndpointURI, "http://") && !strings.HasPrefix(cfg.APIEndpointURI, "https://") {
		return ErrInvalidConfig.Msg("api_endpoint_uri must start with http:// or https://")
	}
	return nil
}

func fieldErrors(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, ", ")
}

// Normalize appends the trailing slash the services root needs.
func (c *Config) Normalize() {
	if !strings.HasSuffix(c.APIEndpointURI, "/") {
		c.APIEndpointURI += "/"
	}
}

// ClientConfig converts c to the client configuration. A zero timeout here
// disables the timeout, which the client spells as a negative value.
func (c *Config) ClientConfig() elvis.Config {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = -1
	}
	return elvis.Config{
		APIEndpointURI:     c.APIEndpointURI,
		Username:           c.Username,
		Password:           c.Password,
		Timeout:            timeout,
		ZipDir:             c.ZipDir,
		InsecureSkipVerify: c.InsecureSkipVerify,
	}
}

// DefaultConfigPath returns <UserConfigDir>/elvis/config.toml.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", ErrConfig.MsgErr("unable to get user config directory", err)
	}
	return filepath.Join(dir, "elvis", "config.toml"), nil
}
