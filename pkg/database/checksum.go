package database

import (
	"context"
	"crypto/sha256"
	stdsql "database/sql"
	"encoding/hex"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// VerifyChecksums layers a checksum ledger on top of golang-migrate's
// version tracking. golang-migrate only records which migration version a
// database is at; it has no way to detect that a migration file's contents
// changed after it was applied (e.g. a committed-and-deployed .sql file
// hand-edited later). VerifyChecksums computes a sha256 of every embedded
// migration file and compares it against the checksum recorded the first
// time that version was applied, failing startup if they diverge.
func VerifyChecksums(ctx context.Context, db *stdsql.DB, migrations fs.FS) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS archon_migration_checksums (
			version    text PRIMARY KEY,
			checksum   text NOT NULL,
			recorded_at timestamptz NOT NULL DEFAULT now()
		)
	`); err != nil {
		return fmt.Errorf("failed to create checksum ledger table: %w", err)
	}

	entries, err := fs.ReadDir(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		data, err := fs.ReadFile(migrations, "migrations/"+name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		sum := sha256.Sum256(data)
		checksum := hex.EncodeToString(sum[:])
		version := strings.TrimSuffix(name, ".up.sql")

		var recorded string
		err = db.QueryRowContext(ctx,
			`SELECT checksum FROM archon_migration_checksums WHERE version = $1`, version,
		).Scan(&recorded)

		switch {
		case err == stdsql.ErrNoRows:
			if _, err := db.ExecContext(ctx,
				`INSERT INTO archon_migration_checksums (version, checksum) VALUES ($1, $2)`,
				version, checksum,
			); err != nil {
				return fmt.Errorf("failed to record checksum for %s: %w", version, err)
			}
		case err != nil:
			return fmt.Errorf("failed to look up checksum for %s: %w", version, err)
		case recorded != checksum:
			return fmt.Errorf("migration %s has changed since it was applied: recorded checksum %s, file checksum %s", version, recorded, checksum)
		}
	}

	return nil
}
