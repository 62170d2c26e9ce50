// Package migrate applies embedded SQL migrations against postgres
//
// Applied files are recorded in a migrations ledger table so reruns are
// no-ops. Each file runs inside its own transaction together with its
// ledger insert, in filename order.
package migrate

import (
	"context"
	"io/fs"
	"sort"
	"strings"

	perr "threadmirror/internal/platform/errors"
	"threadmirror/internal/platform/logger"
	"threadmirror/internal/platform/store"
)

const ledgerDDL = `
CREATE TABLE IF NOT EXISTS migrations (
	id SERIAL PRIMARY KEY,
	filename VARCHAR(255) NOT NULL UNIQUE,
	executed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Run applies every pending .sql file from files against db
func Run(ctx context.Context, db store.TxRunner, files fs.FS) error {
	log := logger.Named("migrate")

	if _, err := db.Exec(ctx, ledgerDDL); err != nil {
		return perr.DBf("create migrations ledger: %v", err)
	}

	names, err := listSQL(files)
	if err != nil {
		return err
	}

	applied, err := appliedSet(ctx, db)
	if err != nil {
		return err
	}

	for _, name := range names {
		if applied[name] {
			continue
		}
		raw, err := fs.ReadFile(files, name)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnknown, "read migration %s", name)
		}
		log.Info().Str("file", name).Msg("applying migration")
		err = db.Tx(ctx, func(q store.RowQuerier) error {
			if _, err := q.Exec(ctx, string(raw)); err != nil {
				return err
			}
			_, err := q.Exec(ctx, `INSERT INTO migrations (filename) VALUES ($1)`, name)
			return err
		})
		if err != nil {
			return perr.DBf("apply migration %s: %v", name, err)
		}
		log.Info().Str("file", name).Msg("migration applied")
	}
	return nil
}

func listSQL(files fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "list migrations")
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func appliedSet(ctx context.Context, db store.RowQuerier) (map[string]bool, error) {
	rows, err := db.Query(ctx, `SELECT filename FROM migrations ORDER BY filename`)
	if err != nil {
		return nil, perr.DBf("list applied migrations: %v", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, perr.DBf("scan applied migration: %v", err)
		}
		applied[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, perr.DBf("iterate applied migrations: %v", err)
	}
	return applied, nil
}
