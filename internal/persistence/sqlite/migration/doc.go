// Package migration applies versioned SQL schema changes to a SQLite database.
//
// Migration files are read from an fs.FS (usually an embed.FS) and follow the
// naming convention {version}_{description}.sql, e.g. "001_create_documents.sql".
// Applied versions are tracked in a schema_migrations table so that each file
// runs exactly once, inside its own transaction.
//
// Example usage:
//
//	manager := migration.NewManager(db, files, "migrations", logger)
//	if err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
