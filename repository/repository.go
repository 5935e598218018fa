// Package repository is the persistence layer. Each record type has an
// interface (consumed by services) and a SQLite implementation built on
// database.TxQuerier, so the same repo works on *sql.DB or inside
// database.WithTx.
package repository

import (
	"database/sql"
	"strings"
)

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
