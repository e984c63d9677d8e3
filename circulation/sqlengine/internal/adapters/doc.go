// Package adapters wraps the supported database connection flavors
// (pgxpool.Pool, sql.DB, sqlx.DB) behind one small interface so the
// storage engine can execute queries without knowing the driver.
package adapters
