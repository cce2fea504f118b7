package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/usersvc/logger"
)

// FileSystem is the file access LoadConfig needs.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem reads the real file system.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadEnv exports the variables of a .env file. Variables already set in
// the process win.
func (OSFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoaderConfig holds the loader's options.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
}

// LoaderOption configures LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem replaces the file system, for tests.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile skips the search and reads path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile skips the search and loads path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// searchDirs are tried in order, relative to the working directory, so the
// binary finds its files from the repo root as well as from a package
// directory under test.
var searchDirs = []string{".", "..", filepath.Join("..", "..")}

// LoadConfig fills cfg from, in increasing priority: config.yml, a .env file
// and the environment. Each field is read from the variable named after its
// mapstructure path, so `database.dsn` comes from DATABASE_DSN.
func LoadConfig(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	lc := LoaderConfig{FileSystem: OSFileSystem{}}
	for _, opt := range opts {
		opt(&lc)
	}
	configFile, envFile := resolveFiles(serviceName, lc)

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	if envFile != "" && lc.FileSystem.Exists(envFile) {
		if err := lc.FileSystem.LoadEnv(envFile); err != nil {
			logger.Warn("Failed to load env file", map[string]interface{}{
				"file":            envFile,
				logger.FieldError: err.Error(),
			})
		}
	}
	bindEnv(v, reflect.TypeOf(cfg), "")

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}
	if d, ok := cfg.(Defaulter); ok {
		d.ApplyDefaults()
	}
	if val, ok := cfg.(Validator); ok {
		if err := val.Validate(); err != nil {
			return fmt.Errorf("invalid config for service %s: %w", serviceName, err)
		}
	}
	return nil
}

// Defaulter is implemented by config structs that fill zero values.
type Defaulter interface {
	ApplyDefaults()
}

// Validator is implemented by config structs that can check themselves.
type Validator interface {
	Validate() error
}

// resolveFiles returns the explicit paths or the first match of the search.
func resolveFiles(serviceName string, lc LoaderConfig) (configFile, envFile string) {
	configFile, envFile = lc.ConfigFile, lc.EnvFile
	if configFile == "" {
		configFile = find(lc.FileSystem,
			filepath.Join("cmd", serviceName, "config.yml"),
			filepath.Join("config", "config.yml"),
			"config.yml",
		)
	}
	if envFile == "" {
		envFile = find(lc.FileSystem, ".env."+serviceName, ".env")
	}
	return configFile, envFile
}

func find(fs FileSystem, names ...string) string {
	for _, dir := range searchDirs {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if fs.Exists(path) {
				return path
			}
		}
	}
	return ""
}

// bindEnv binds every leaf field of t under its mapstructure path. Squashed
// embedded structs share their parent's prefix.
func bindEnv(v *viper.Viper, t reflect.Type, prefix string) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}
		if strings.Contains(opts, "squash") {
			bindEnv(v, f.Type, prefix)
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}

		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct {
			bindEnv(v, ft, key)
			continue
		}
		_ = v.BindEnv(key, EnvName(key))
	}
}

// EnvName is the environment variable read for a config key:
// "auth.jwt.secret" -> "AUTH_JWT_SECRET".
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
