// Package database provides SQLite connectivity for Chatwire.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Embedded schema migrations (paired .up.sql/.down.sql files)
//   - Connection lifecycle and health checks
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
