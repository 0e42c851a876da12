package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	hclog "github.com/hashicorp/go-hclog"

	managerservice "amio/internal/modules/manager/service"
	traitdomain "amio/internal/modules/trait/domain"
	apperrors "amio/internal/platform/errors"
)

// DefaultConfigEnvVar names the TOML file that seeds the default
// manager. Unset is a soft no-op; a named but missing or invalid file
// is a hard configuration error.
const DefaultConfigEnvVar = "AMIO_DEFAULT_CONFIG"

// configDirVar is substituted in string settings with the absolute
// directory of the config file, so configs can reference files shipped
// alongside them.
const configDirVar = "${config_dir}"

type defaultConfig struct {
	Manager struct {
		Identifier string         `toml:"identifier"`
		Settings   map[string]any `toml:"settings"`
	} `toml:"manager"`
}

// DefaultManager instantiates and initializes the manager named by the
// default-config environment variable. Returns (nil, nil) when the
// variable is unset: many hosts call this unconditionally and handle a
// nil manager, so absence is expected, not an error.
func DefaultManager(ctx context.Context, factory *Factory, logger hclog.Logger) (*managerservice.Manager, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	configPath, ok := os.LookupEnv(DefaultConfigEnvVar)
	if !ok || configPath == "" {
		logger.Debug("default manager config var not set, unable to instantiate default manager",
			"var", DefaultConfigEnvVar)
		return nil, nil
	}
	logger.Debug("retrieved default manager config file path", "var", DefaultConfigEnvVar, "path", configPath)
	return DefaultManagerForConfig(ctx, configPath, factory, logger)
}

// DefaultManagerForConfig instantiates and initializes the manager
// described by the TOML file at configPath.
func DefaultManagerForConfig(ctx context.Context, configPath string, factory *Factory, logger hclog.Logger) (*managerservice.Manager, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger.Debug("loading default manager config", "path", configPath)

	info, err := os.Stat(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: could not load default manager config from %q: %v",
			apperrors.ErrConfiguration, configPath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: could not load default manager config from %q: must be a TOML file not a directory",
			apperrors.ErrConfiguration, configPath)
	}

	var config defaultConfig
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		return nil, fmt.Errorf("%w: error parsing config file %q: %v", apperrors.ErrConfiguration, configPath, err)
	}
	if config.Manager.Identifier == "" {
		return nil, fmt.Errorf("%w: config file %q names no manager identifier", apperrors.ErrConfiguration, configPath)
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: could not resolve config path %q: %v", apperrors.ErrConfiguration, configPath, err)
	}
	settings, err := settingsFromConfig(config.Manager.Settings, filepath.Dir(absPath))
	if err != nil {
		return nil, fmt.Errorf("%w: config file %q: %v", apperrors.ErrConfiguration, configPath, err)
	}

	impl, err := factory.Instantiate(ctx, config.Manager.Identifier)
	if err != nil {
		return nil, err
	}
	manager := managerservice.NewManager(impl)
	if err := manager.Initialize(settings); err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("initialize default manager %q: %w", config.Manager.Identifier, err)
	}
	return manager, nil
}

// settingsFromConfig narrows the TOML settings table to the closed
// property value set, substituting ${config_dir} in strings.
func settingsFromConfig(raw map[string]any, configDir string) (traitdomain.InfoDictionary, error) {
	settings := make(traitdomain.InfoDictionary, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case bool:
			settings[key] = traitdomain.Bool(v)
		case int64:
			settings[key] = traitdomain.Int(v)
		case float64:
			settings[key] = traitdomain.Float(v)
		case string:
			settings[key] = traitdomain.String(strings.ReplaceAll(v, configDirVar, configDir))
		default:
			return nil, fmt.Errorf("unsupported value type for %q", key)
		}
	}
	return settings, nil
}
