package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	managerout "amio/internal/modules/manager/port/out"
	"amio/internal/modules/plugin/service"
	apperrors "amio/internal/platform/errors"
)

func newNativeFactory(managers ...*stubManager) *service.Factory {
	factory := service.NewFactory(&fakeStore{}, &fakeHost{}, nil)
	for _, manager := range managers {
		manager := manager
		factory.RegisterNative(manager.id, func() (managerout.ManagerInterface, error) {
			return manager, nil
		})
	}
	return factory
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "amio.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultManagerUnsetVarIsSoftAbsence(t *testing.T) {
	t.Setenv(service.DefaultConfigEnvVar, "")

	manager, err := service.DefaultManager(context.Background(), newNativeFactory(), nil)
	if err != nil {
		t.Fatalf("unset var must not error: %v", err)
	}
	if manager != nil {
		t.Fatalf("unset var must yield no manager")
	}
}

func TestDefaultManagerMissingFileIsConfigurationError(t *testing.T) {
	t.Parallel()
	_, err := service.DefaultManagerForConfig(context.Background(),
		filepath.Join(t.TempDir(), "missing.toml"), newNativeFactory(), nil)
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDefaultManagerDirectoryIsConfigurationError(t *testing.T) {
	t.Parallel()
	_, err := service.DefaultManagerForConfig(context.Background(), t.TempDir(), newNativeFactory(), nil)
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDefaultManagerParseErrorIsConfigurationError(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "[manager\nidentifier = broken")
	_, err := service.DefaultManagerForConfig(context.Background(), path, newNativeFactory(), nil)
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDefaultManagerMissingIdentifierIsConfigurationError(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "[manager.settings]\nkey = \"value\"\n")
	_, err := service.DefaultManagerForConfig(context.Background(), path, newNativeFactory(), nil)
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDefaultManagerUnsupportedSettingTypeIsConfigurationError(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "[manager]\nidentifier = \"org.test.cfg\"\n[manager.settings]\nbad = [1, 2]\n")
	_, err := service.DefaultManagerForConfig(context.Background(), path, newNativeFactory(), nil)
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDefaultManagerInitializesWithSubstitutedSettings(t *testing.T) {
	t.Parallel()
	stub := &stubManager{id: "org.test.cfg"}
	path := writeConfig(t, `
[manager]
identifier = "org.test.cfg"

[manager.settings]
database = "${config_dir}/store.db"
prefix = "amio://"
retries = 3
strict = true
ratio = 0.5
`)

	manager, err := service.DefaultManagerForConfig(context.Background(), path, newNativeFactory(stub), nil)
	if err != nil {
		t.Fatalf("default manager: %v", err)
	}
	if manager == nil {
		t.Fatalf("expected a manager")
	}

	configDir := filepath.Dir(path)
	if v, _ := stub.initialized["database"].AsString(); v != configDir+"/store.db" {
		t.Fatalf("config_dir substitution failed: %q", v)
	}
	if v, _ := stub.initialized["prefix"].AsString(); v != "amio://" {
		t.Fatalf("prefix = %q", v)
	}
	if v, _ := stub.initialized["retries"].AsInt(); v != 3 {
		t.Fatalf("retries = %d", v)
	}
	if v, _ := stub.initialized["strict"].AsBool(); !v {
		t.Fatalf("strict must be true")
	}
	if v, _ := stub.initialized["ratio"].AsFloat(); v != 0.5 {
		t.Fatalf("ratio = %g", v)
	}
}

func TestDefaultManagerInitializeFailureClosesManager(t *testing.T) {
	t.Parallel()
	stub := &stubManager{id: "org.test.cfg", initErr: errors.New("bad settings")}
	path := writeConfig(t, "[manager]\nidentifier = \"org.test.cfg\"\n")

	_, err := service.DefaultManagerForConfig(context.Background(), path, newNativeFactory(stub), nil)
	if err == nil {
		t.Fatalf("expected initialize failure to propagate")
	}
	if !stub.closed {
		t.Fatalf("failed initialization must close the implementation")
	}
}
