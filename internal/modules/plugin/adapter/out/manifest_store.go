package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	hclog "github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"

	"amio/internal/modules/plugin/domain"
	pluginout "amio/internal/modules/plugin/port/out"
)

// PluginPathEnvVar names the search path list scanned for plugin
// manifests, in the platform's path-list syntax. Absence means no
// plugins are discovered; it is not an error.
const PluginPathEnvVar = "AMIO_PLUGIN_PATH"

// PathManifestStore discovers plugin manifests by scanning each search
// path entry for directories containing a manager.yaml file. Binary
// paths in a manifest are resolved relative to the manifest's
// directory.
type PathManifestStore struct {
	paths  []string
	logger hclog.Logger
}

// NewPathManifestStore scans the given paths. Pass nil to use the
// AMIO_PLUGIN_PATH environment variable.
func NewPathManifestStore(paths []string, logger hclog.Logger) pluginout.ManifestStore {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &PathManifestStore{paths: paths, logger: logger}
}

func (s *PathManifestStore) Load(_ context.Context) ([]domain.Manifest, error) {
	paths := s.paths
	if paths == nil {
		value, ok := os.LookupEnv(PluginPathEnvVar)
		if !ok || value == "" {
			s.logger.Debug("plugin path not set, no plugins discovered", "var", PluginPathEnvVar)
			return []domain.Manifest{}, nil
		}
		paths = filepath.SplitList(value)
	}

	var manifests []domain.Manifest
	for _, root := range paths {
		if root == "" {
			continue
		}
		found, err := s.scanDir(root)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, found...)
	}
	if manifests == nil {
		manifests = []domain.Manifest{}
	}
	return manifests, nil
}

func (s *PathManifestStore) scanDir(root string) ([]domain.Manifest, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug("plugin path entry does not exist, skipping", "path", root)
			return nil, nil
		}
		return nil, fmt.Errorf("read plugin path %q: %w", root, err)
	}

	var manifests []domain.Manifest
	// A manifest may sit directly in the path entry or one directory
	// below it (one directory per plugin).
	candidates := []string{filepath.Join(root, domain.ManifestFileName)}
	for _, entry := range entries {
		if entry.IsDir() {
			candidates = append(candidates, filepath.Join(root, entry.Name(), domain.ManifestFileName))
		}
	}
	for _, path := range candidates {
		manifest, ok, err := s.loadManifest(path)
		if err != nil {
			return nil, err
		}
		if ok {
			manifests = append(manifests, manifest)
		}
	}
	return manifests, nil
}

func (s *PathManifestStore) loadManifest(path string) (domain.Manifest, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Manifest{}, false, nil
		}
		return domain.Manifest{}, false, fmt.Errorf("read plugin manifest %q: %w", path, err)
	}
	var manifest domain.Manifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return domain.Manifest{}, false, fmt.Errorf("decode plugin manifest %q: %w", path, err)
	}
	if err := manifest.Validate(); err != nil {
		return domain.Manifest{}, false, fmt.Errorf("invalid plugin manifest %q: %w", path, err)
	}
	if !filepath.IsAbs(manifest.Binary) {
		manifest.Binary = filepath.Clean(filepath.Join(filepath.Dir(path), manifest.Binary))
	}
	s.logger.Debug("discovered manager plugin", "identifier", manifest.Identifier, "binary", manifest.Binary)
	return manifest, true, nil
}
