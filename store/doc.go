// Package store persists events, credentials and audit entries with gorm.
//
// Postgres is the production dialect: the pgx driver backs the connection
// pool and pgvector ranks embeddings in the database. SQLite is supported
// for local runs and tests; there similarity is computed in process over the
// same scoped rows.
//
// Every event query applies the caller's scope as a bound IN condition that
// is ANDed with all other filters, and keyword text is matched as a literal
// substring through LIKE with an explicit escape character.
package store
