// Command reference is a self-contained asset manager plugin backed by
// a SQLite entity store. It exists to exercise the full host protocol:
// discovery, dispense, settings, and every batch operation.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	pluginrpc "amio/internal/modules/plugin/adapter/out/rpc"

	"github.com/hashicorp/go-plugin"
	_ "modernc.org/sqlite"
)

const (
	identifier    = "org.amio.test.reference"
	displayName   = "Reference Asset Manager"
	defaultPrefix = "amio://"
)

// Wire error codes, mirroring the host's element error taxonomy.
const (
	codeMalformedEntityReference = 2
	codeEntityResolutionError    = 3
	codeEntityAccessError        = 4
)

type server struct {
	mu     sync.Mutex
	db     *sql.DB
	prefix string
	dbPath string
}

func (s *server) GetMetadata(_ context.Context, _ *pluginrpc.Empty) (*pluginrpc.Metadata, error) {
	return &pluginrpc.Metadata{
		Identifier:  identifier,
		DisplayName: displayName,
		Info: pluginrpc.InfoDictionary{
			"vendor": {Type: "string", Str: "amio project"},
		},
		Capabilities: []string{
			"entityReferenceIdentification",
			"existenceQueries",
			"resolution",
			"publishing",
		},
	}, nil
}

func (s *server) GetSettings(_ context.Context, _ *pluginrpc.Empty) (*pluginrpc.SettingsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &pluginrpc.SettingsResponse{Settings: pluginrpc.InfoDictionary{
		"database": {Type: "string", Str: s.dbPath},
		"prefix":   {Type: "string", Str: s.prefix},
	}}, nil
}

// Initialize opens (or re-opens) the entity store. An empty "database"
// setting selects an in-memory store; a fresh store is seeded with a
// couple of entities so a host has something to resolve out of the box.
func (s *server) Initialize(ctx context.Context, in *pluginrpc.InitializeRequest) (*pluginrpc.Empty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Sparse update: settings absent from the request keep their
	// current values.
	prefix := s.prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	dbPath := s.dbPath
	if dbPath == "" {
		dbPath = ":memory:"
	}
	for key, value := range in.Settings {
		switch key {
		case "prefix":
			if value.Type != "string" || value.Str == "" {
				return nil, fmt.Errorf("setting %q must be a non-empty string", key)
			}
			prefix = value.Str
		case "database":
			if value.Type != "string" {
				return nil, fmt.Errorf("setting %q must be a string", key)
			}
			if value.Str != "" {
				dbPath = value.Str
			}
		default:
			return nil, fmt.Errorf("unknown setting %q", key)
		}
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := seedIfEmpty(ctx, db, prefix); err != nil {
		_ = db.Close()
		return nil, err
	}

	if s.db != nil {
		_ = s.db.Close()
	}
	s.db = db
	s.prefix = prefix
	s.dbPath = dbPath
	return &pluginrpc.Empty{}, nil
}

func (s *server) IsEntityReference(_ context.Context, in *pluginrpc.IsEntityReferenceRequest) (*pluginrpc.IsEntityReferenceResponse, error) {
	s.mu.Lock()
	prefix := s.prefix
	s.mu.Unlock()
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &pluginrpc.IsEntityReferenceResponse{Ok: strings.HasPrefix(in.Ref, prefix)}, nil
}

func (s *server) Exists(ctx context.Context, in *pluginrpc.ExistsRequest) (*pluginrpc.BatchResponse, error) {
	db, prefix, err := s.store()
	if err != nil {
		return nil, err
	}
	outcomes := make([]pluginrpc.Outcome, 0, len(in.Refs))
	for index, ref := range in.Refs {
		if !strings.HasPrefix(ref, prefix) {
			outcomes = append(outcomes, malformedOutcome(index, ref))
			continue
		}
		var count int
		if err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM entities WHERE ref = ?`, ref).Scan(&count); err != nil {
			return nil, fmt.Errorf("query entity %q: %w", ref, err)
		}
		exists := count > 0
		outcomes = append(outcomes, pluginrpc.Outcome{Index: index, Exists: &exists})
	}
	return &pluginrpc.BatchResponse{Outcomes: outcomes}, nil
}

func (s *server) Resolve(ctx context.Context, in *pluginrpc.ResolveRequest) (*pluginrpc.BatchResponse, error) {
	db, prefix, err := s.store()
	if err != nil {
		return nil, err
	}
	requested := map[string]struct{}{}
	for _, traitID := range in.TraitSet {
		requested[traitID] = struct{}{}
	}
	outcomes := make([]pluginrpc.Outcome, 0, len(in.Refs))
	for index, ref := range in.Refs {
		switch {
		case !strings.HasPrefix(ref, prefix):
			outcomes = append(outcomes, malformedOutcome(index, ref))
		case in.Access != "read" && in.Access != "managerDriven":
			outcomes = append(outcomes, pluginrpc.Outcome{Index: index, Error: &pluginrpc.BatchElementError{
				Code:    codeEntityAccessError,
				Message: fmt.Sprintf("access %q is not supported for resolution", in.Access),
			}})
		default:
			outcome, err := s.resolveOne(ctx, db, index, ref, requested)
			if err != nil {
				return nil, err
			}
			outcomes = append(outcomes, outcome)
		}
	}
	return &pluginrpc.BatchResponse{Outcomes: outcomes}, nil
}

func (s *server) resolveOne(ctx context.Context, db *sql.DB, index int, ref string, requested map[string]struct{}) (pluginrpc.Outcome, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT trait, key, type, value FROM entities WHERE ref = ?`, ref)
	if err != nil {
		return pluginrpc.Outcome{}, fmt.Errorf("query entity %q: %w", ref, err)
	}
	defer func() { _ = rows.Close() }()

	found := false
	data := pluginrpc.TraitsData{}
	for rows.Next() {
		var trait, key, valueType, raw string
		if err := rows.Scan(&trait, &key, &valueType, &raw); err != nil {
			return pluginrpc.Outcome{}, fmt.Errorf("scan entity row: %w", err)
		}
		found = true
		if _, wanted := requested[trait]; !wanted {
			continue
		}
		if _, ok := data[trait]; !ok {
			data[trait] = map[string]pluginrpc.Value{}
		}
		if key == "" {
			continue
		}
		value, err := decodeValue(valueType, raw)
		if err != nil {
			return pluginrpc.Outcome{}, fmt.Errorf("entity %q trait %q property %q: %w", ref, trait, key, err)
		}
		data[trait][key] = value
	}
	if err := rows.Err(); err != nil {
		return pluginrpc.Outcome{}, fmt.Errorf("iterate entity rows: %w", err)
	}
	if !found {
		return pluginrpc.Outcome{Index: index, Error: &pluginrpc.BatchElementError{
			Code:    codeEntityResolutionError,
			Message: fmt.Sprintf("entity %q does not exist", ref),
		}}, nil
	}
	return pluginrpc.Outcome{Index: index, Data: data}, nil
}

// Preflight accepts any well-formed reference and hands back a working
// reference unchanged. A real manager would mint a staging location.
func (s *server) Preflight(_ context.Context, in *pluginrpc.PublishRequest) (*pluginrpc.BatchResponse, error) {
	_, prefix, err := s.store()
	if err != nil {
		return nil, err
	}
	outcomes := make([]pluginrpc.Outcome, 0, len(in.Refs))
	for index, ref := range in.Refs {
		if !strings.HasPrefix(ref, prefix) {
			outcomes = append(outcomes, malformedOutcome(index, ref))
			continue
		}
		outcomes = append(outcomes, pluginrpc.Outcome{Index: index, Ref: ref})
	}
	return &pluginrpc.BatchResponse{Outcomes: outcomes}, nil
}

func (s *server) Register(ctx context.Context, in *pluginrpc.PublishRequest) (*pluginrpc.BatchResponse, error) {
	db, prefix, err := s.store()
	if err != nil {
		return nil, err
	}
	if len(in.Data) != len(in.Refs) {
		return nil, fmt.Errorf("%d refs with %d traits data", len(in.Refs), len(in.Data))
	}
	outcomes := make([]pluginrpc.Outcome, 0, len(in.Refs))
	for index, ref := range in.Refs {
		if !strings.HasPrefix(ref, prefix) {
			outcomes = append(outcomes, malformedOutcome(index, ref))
			continue
		}
		if err := s.registerOne(ctx, db, ref, in.Data[index]); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, pluginrpc.Outcome{Index: index, Ref: ref})
	}
	return &pluginrpc.BatchResponse{Outcomes: outcomes}, nil
}

func (s *server) registerOne(ctx context.Context, db *sql.DB, ref string, data pluginrpc.TraitsData) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin register tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE ref = ?`, ref); err != nil {
		return fmt.Errorf("clear entity %q: %w", ref, err)
	}
	for trait, properties := range data {
		if len(properties) == 0 {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO entities (ref, trait, key, type, value) VALUES (?, ?, '', '', '')`,
				ref, trait); err != nil {
				return fmt.Errorf("insert trait %q for %q: %w", trait, ref, err)
			}
			continue
		}
		for key, value := range properties {
			valueType, raw := encodeValue(value)
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO entities (ref, trait, key, type, value) VALUES (?, ?, ?, ?, ?)`,
				ref, trait, key, valueType, raw); err != nil {
				return fmt.Errorf("insert property %q.%q for %q: %w", trait, key, ref, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit register tx: %w", err)
	}
	return nil
}

func (s *server) store() (*sql.DB, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, "", fmt.Errorf("manager is not initialized")
	}
	return s.db, s.prefix, nil
}

func malformedOutcome(index int, ref string) pluginrpc.Outcome {
	return pluginrpc.Outcome{Index: index, Error: &pluginrpc.BatchElementError{
		Code:    codeMalformedEntityReference,
		Message: fmt.Sprintf("reference %q does not match prefix", ref),
	}}
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS entities (
  ref TEXT NOT NULL,
  trait TEXT NOT NULL,
  key TEXT NOT NULL,
  type TEXT NOT NULL,
  value TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS entities_ref ON entities (ref);
`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create entities table: %w", err)
	}
	return nil
}

func seedIfEmpty(ctx context.Context, db *sql.DB, prefix string) error {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities`).Scan(&count); err != nil {
		return fmt.Errorf("count entities: %w", err)
	}
	if count > 0 {
		return nil
	}
	seed := []struct {
		ref, trait, key, valueType, value string
	}{
		{prefix + "assets/logo", "locatableContent", "location", "string", "/mnt/assets/logo_v2.png"},
		{prefix + "assets/logo", "versioned", "specifiedVersion", "int", "2"},
		{prefix + "shots/sq001/sh0010", "locatableContent", "location", "string", "/mnt/shots/sq001/sh0010.exr"},
	}
	for _, row := range seed {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO entities (ref, trait, key, type, value) VALUES (?, ?, ?, ?, ?)`,
			row.ref, row.trait, row.key, row.valueType, row.value); err != nil {
			return fmt.Errorf("seed entity %q: %w", row.ref, err)
		}
	}
	return nil
}

func encodeValue(value pluginrpc.Value) (string, string) {
	switch value.Type {
	case "bool":
		return "bool", strconv.FormatBool(value.Bool)
	case "int":
		return "int", strconv.FormatInt(value.Int, 10)
	case "float":
		return "float", strconv.FormatFloat(value.Float, 'g', -1, 64)
	default:
		return "string", value.Str
	}
}

func decodeValue(valueType, raw string) (pluginrpc.Value, error) {
	switch valueType {
	case "bool":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return pluginrpc.Value{}, fmt.Errorf("parse bool %q: %w", raw, err)
		}
		return pluginrpc.Value{Type: "bool", Bool: b}, nil
	case "int":
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return pluginrpc.Value{}, fmt.Errorf("parse int %q: %w", raw, err)
		}
		return pluginrpc.Value{Type: "int", Int: i}, nil
	case "float":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return pluginrpc.Value{}, fmt.Errorf("parse float %q: %w", raw, err)
		}
		return pluginrpc.Value{Type: "float", Float: f}, nil
	case "string":
		return pluginrpc.Value{Type: "string", Str: raw}, nil
	default:
		return pluginrpc.Value{}, fmt.Errorf("unknown value type %q", valueType)
	}
}

func main() {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: pluginrpc.HandshakeConfig,
		Plugins:         pluginrpc.PluginMap(&server{}),
		GRPCServer:      plugin.DefaultGRPCServer,
	})
}
