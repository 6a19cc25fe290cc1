package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/c360studio/hexguard/layer"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "hexguard.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/hexguard"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// ErrConfigExists is returned by InitProject when the project config is
// already present.
var ErrConfigExists = errors.New("project config already exists")

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/hexguard/config.yaml)
// 3. Project config (explicitPath, or hexguard.yaml in current or parent directories)
//
// An explicit path that cannot be read is an error; a missing user or
// discovered project config is not.
func (l *Loader) Load(explicitPath string) (*Config, error) {
	config := DefaultConfig()

	userConfigPath := l.userConfigPath()
	if userConfig, err := loadOverlay(userConfigPath); err == nil {
		l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
		config.Merge(userConfig)
	} else if !errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
	}

	projectConfigPath := explicitPath
	if projectConfigPath == "" {
		projectConfigPath = l.findProjectConfig()
	}
	if projectConfigPath != "" {
		projectConfig, err := loadOverlay(projectConfigPath)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
		config.Merge(projectConfig)

		// Relative paths in a project config are relative to the file.
		if config.Repo.Path == "" {
			if abs, err := filepath.Abs(filepath.Dir(projectConfigPath)); err == nil {
				config.Repo.Path = abs
			}
		}
	} else {
		l.logger.Debug("No project config found")
	}

	if config.Repo.Path == "" {
		if gitRoot := l.detectGitRoot(); gitRoot != "" {
			config.Repo.Path = gitRoot
			l.logger.Debug("Auto-detected git root", slog.String("path", gitRoot))
		} else if cwd, err := os.Getwd(); err == nil {
			config.Repo.Path = cwd
			l.logger.Debug("Using current directory as repo root", slog.String("path", cwd))
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// InitProject writes a starter project config into dir, with the layers
// placed below basePackage. An existing file is only replaced with force.
func (l *Loader) InitProject(dir, basePackage string, force bool) (string, error) {
	if strings.TrimSpace(basePackage) == "" {
		return "", fmt.Errorf("base package is required")
	}
	path := filepath.Join(dir, ProjectConfigFile)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	config := ProjectTemplate(basePackage)
	if _, err := layer.NewRegistry(config.Architecture, config.Vocabulary, l.logger); err != nil {
		return "", fmt.Errorf("base package %q: %w", basePackage, err)
	}
	if err := config.SaveToFile(path); err != nil {
		return "", err
	}

	// The written file must load back as it will on the next run.
	loaded, err := LoadFromFile(path)
	if err != nil {
		return "", err
	}
	if err := loaded.Validate(); err != nil {
		return "", err
	}

	l.logger.Info("Created project config", slog.String("path", path))
	return path, nil
}

// ProjectConfigPath returns the project config Load would use.
func (l *Loader) ProjectConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}
	return l.findProjectConfig()
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for hexguard.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// detectGitRoot finds the git repository root from current directory
func (l *Loader) detectGitRoot() string {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}
