// Package history persists one row per variant build in SQLite.
//
// A row is written when a variant starts (status running) and rewritten when
// it finishes, so an interrupted build stays visible as running. The schema
// is embedded and its version lives in SQLite's user_version pragma; a
// mismatch asks the user to delete the database instead of migrating.
package history
