// Package postgres persists the output index in a relational schema:
// one row per compiled resource and per discovered reference, keyed by the
// compile node's fingerprint, plus a runtime-id to path mapping.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/legion-labs/databuild-go/internal/domain"
	"github.com/legion-labs/databuild-go/internal/repo"
)

type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type OutputIndex struct {
	db      DB
	version string
}

func NewOutputIndex(db DB, version string) (*OutputIndex, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if version == "" {
		return nil, errors.New("engine version is required")
	}
	return &OutputIndex{db: db, version: version}, nil
}

// Initialize creates the schema if needed and verifies the stored engine
// version. An index written by a different version is rejected; entries
// under an old fingerprint contract must never be served.
func (s *OutputIndex) Initialize(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	var stored string
	err := s.db.QueryRowContext(ctx, `SELECT version FROM build_index_meta`).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx, `INSERT INTO build_index_meta (version) VALUES ($1)`, s.version); err != nil {
			return fmt.Errorf("record version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	case stored != s.version:
		return fmt.Errorf("index written by version %q, engine is %q: %w", stored, s.version, repo.ErrVersionMismatch)
	default:
		return nil
	}
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS build_index_meta (
		version TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS compiled_outputs (
		fingerprint TEXT NOT NULL,
		ordinal INT NOT NULL,
		compiled_path TEXT NOT NULL,
		compiled_checksum TEXT NOT NULL,
		compiled_size BIGINT NOT NULL,
		PRIMARY KEY (fingerprint, ordinal)
	)`,
	`CREATE TABLE IF NOT EXISTS compiled_references (
		fingerprint TEXT NOT NULL,
		ordinal INT NOT NULL,
		compiled_path TEXT NOT NULL,
		compiled_reference TEXT NOT NULL,
		PRIMARY KEY (fingerprint, ordinal)
	)`,
	`CREATE TABLE IF NOT EXISTS pathid_mapping (
		resource_id TEXT PRIMARY KEY,
		resource_path TEXT NOT NULL
	)`,
}

func (s *OutputIndex) InsertCompiled(ctx context.Context, entry repo.CompiledEntry) error {
	if entry.Fingerprint == "" {
		return errors.New("fingerprint is required")
	}

	existing, err := s.FindCompiled(ctx, entry.Fingerprint)
	switch {
	case err == nil:
		if !sameEntry(existing, entry) {
			return fmt.Errorf("fingerprint %s: %w", entry.Fingerprint, repo.ErrFingerprintConflict)
		}
		return nil
	case !errors.Is(err, repo.ErrNotFound):
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, resource := range entry.Resources {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO compiled_outputs (fingerprint, ordinal, compiled_path, compiled_checksum, compiled_size)
			 VALUES ($1,$2,$3,$4,$5)
			 ON CONFLICT (fingerprint, ordinal) DO NOTHING`,
			entry.Fingerprint,
			i,
			resource.Path.String(),
			string(resource.Checksum),
			resource.Size,
		)
		if err != nil {
			return fmt.Errorf("insert compiled output: %w", err)
		}
	}
	for i, reference := range entry.References {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO compiled_references (fingerprint, ordinal, compiled_path, compiled_reference)
			 VALUES ($1,$2,$3,$4)
			 ON CONFLICT (fingerprint, ordinal) DO NOTHING`,
			entry.Fingerprint,
			i,
			reference.Path.String(),
			reference.Reference.String(),
		)
		if err != nil {
			return fmt.Errorf("insert compiled reference: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

func (s *OutputIndex) FindCompiled(ctx context.Context, fingerprint string) (repo.CompiledEntry, error) {
	entry := repo.CompiledEntry{Fingerprint: fingerprint}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT compiled_path, compiled_checksum, compiled_size
		 FROM compiled_outputs WHERE fingerprint = $1 ORDER BY ordinal`,
		fingerprint,
	)
	if err != nil {
		return repo.CompiledEntry{}, fmt.Errorf("find compiled outputs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pathText, checksum string
		var size int64
		if err := rows.Scan(&pathText, &checksum, &size); err != nil {
			return repo.CompiledEntry{}, fmt.Errorf("scan compiled output: %w", err)
		}
		path, err := domain.ParseResourcePathID(pathText)
		if err != nil {
			return repo.CompiledEntry{}, fmt.Errorf("decode compiled output: %w", err)
		}
		entry.Resources = append(entry.Resources, domain.CompiledResource{
			Path:     path,
			Checksum: domain.Checksum(checksum),
			Size:     size,
		})
	}
	if err := rows.Err(); err != nil {
		return repo.CompiledEntry{}, fmt.Errorf("find compiled outputs: %w", err)
	}
	if len(entry.Resources) == 0 {
		return repo.CompiledEntry{}, repo.ErrNotFound
	}

	refRows, err := s.db.QueryContext(
		ctx,
		`SELECT compiled_path, compiled_reference
		 FROM compiled_references WHERE fingerprint = $1 ORDER BY ordinal`,
		fingerprint,
	)
	if err != nil {
		return repo.CompiledEntry{}, fmt.Errorf("find compiled references: %w", err)
	}
	defer refRows.Close()
	for refRows.Next() {
		var pathText, referenceText string
		if err := refRows.Scan(&pathText, &referenceText); err != nil {
			return repo.CompiledEntry{}, fmt.Errorf("scan compiled reference: %w", err)
		}
		path, err := domain.ParseResourcePathID(pathText)
		if err != nil {
			return repo.CompiledEntry{}, fmt.Errorf("decode compiled reference: %w", err)
		}
		reference, err := domain.ParseResourcePathID(referenceText)
		if err != nil {
			return repo.CompiledEntry{}, fmt.Errorf("decode compiled reference: %w", err)
		}
		entry.References = append(entry.References, domain.CompiledReference{
			Path:      path,
			Reference: reference,
		})
	}
	if err := refRows.Err(); err != nil {
		return repo.CompiledEntry{}, fmt.Errorf("find compiled references: %w", err)
	}
	return entry, nil
}

func (s *OutputIndex) RecordPathID(ctx context.Context, path domain.ResourcePathID) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO pathid_mapping (resource_id, resource_path) VALUES ($1,$2)
		 ON CONFLICT (resource_id) DO UPDATE SET resource_path = EXCLUDED.resource_path`,
		path.ResourceID().String(),
		path.String(),
	)
	if err != nil {
		return fmt.Errorf("record pathid: %w", err)
	}
	return nil
}

func (s *OutputIndex) LookupPathID(ctx context.Context, id domain.ResourceTypeAndID) (domain.ResourcePathID, error) {
	var pathText string
	row := s.db.QueryRowContext(
		ctx,
		`SELECT resource_path FROM pathid_mapping WHERE resource_id = $1`,
		id.String(),
	)
	if err := row.Scan(&pathText); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ResourcePathID{}, repo.ErrNotFound
		}
		return domain.ResourcePathID{}, fmt.Errorf("lookup pathid: %w", err)
	}
	path, err := domain.ParseResourcePathID(pathText)
	if err != nil {
		return domain.ResourcePathID{}, fmt.Errorf("decode pathid: %w", err)
	}
	return path, nil
}

func sameEntry(a, b repo.CompiledEntry) bool {
	if len(a.Resources) != len(b.Resources) || len(a.References) != len(b.References) {
		return false
	}
	for i := range a.Resources {
		if !a.Resources[i].Path.Equal(b.Resources[i].Path) ||
			a.Resources[i].Checksum != b.Resources[i].Checksum ||
			a.Resources[i].Size != b.Resources[i].Size {
			return false
		}
	}
	for i := range a.References {
		if !a.References[i].Path.Equal(b.References[i].Path) ||
			!a.References[i].Reference.Equal(b.References[i].Reference) {
			return false
		}
	}
	return true
}
