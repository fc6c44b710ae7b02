package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kr/pretty"
	"github.com/sampctl/configor"

	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/fs"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/print"
)

// Config represents a local configuration for jxl-release
// nolint:lll
type Config struct {
	GitHubToken    string `json:"github_token,omitempty"    env:"JXL_RELEASE_GITHUB_TOKEN"`    // token used to query, delete and create releases
	DefaultYes     bool   `json:"default_yes,omitempty"     env:"JXL_RELEASE_DEFAULT_YES"`     // answer yes to the overwrite prompt without asking
	ContainerImage string `json:"container_image,omitempty" env:"JXL_RELEASE_CONTAINER_IMAGE"` // overrides the project's container build image
	CI             string `json:"-" yaml:"-"                env:"CI"`                          // set by most CI providers, disables prompting
}

// Redacted returns a copy that is safe to print.
func (c Config) Redacted() Config {
	if c.GitHubToken != "" {
		c.GitHubToken = "<redacted>"
	}
	return c
}

// LoadOrCreateConfig reads a config file from the given config directory,
// writing an empty one when none exists yet.
func LoadOrCreateConfig(configDir string) (cfg *Config, err error) {
	cfg = new(Config)

	err = godotenv.Load(".env")
	// on unix: "open .env: no such file or directory"
	// on windows: "open .env: The system cannot find the file specified"
	if err != nil && !strings.HasPrefix(err.Error(), "open .env") {
		print.Warn("Failed to load .env:", err)
	}

	configFiles := []string{
		filepath.Join(configDir, "config.json"),
		filepath.Join(configDir, "config.yaml"),
	}
	configFile := ""
	for _, file := range configFiles {
		if fs.Exists(file) {
			configFile = file
			break
		}
	}

	if configFile == "" {
		print.Verb("No configuration file found, using default configuration")
		if err = WriteConfig(configDir, *cfg); err != nil {
			return nil, err
		}
		configFile = configFiles[0]
	}

	cnfgr := configor.New(&configor.Config{
		EnvironmentPrefix:    "JXL_RELEASE",
		ErrorOnUnmatchedKeys: false,
	})
	if err = cnfgr.Load(cfg, configFile); err != nil {
		return nil, err
	}

	// the plain GITHUB_TOKEN is what CI systems tend to provide
	if cfg.GitHubToken == "" {
		cfg.GitHubToken = os.Getenv("GITHUB_TOKEN")
	}

	print.Verb("Using configuration:", pretty.Sprint(cfg.Redacted()))

	return cfg, nil
}

// WriteConfig writes a configuration file to the given config directory
func WriteConfig(configDir string, cfg Config) (err error) {
	contents, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return
	}
	return fs.WriteFileAtomic(filepath.Join(configDir, "config.json"), contents, fs.PermDirPrivate, fs.PermFilePrivate)
}
