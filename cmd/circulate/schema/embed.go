// Package schema embeds the driver-owned DDL for both storage backends.
// The core stores never run DDL; bootstrap happens here before they are built.
package schema

import "embed"

//go:embed sqlite.sql postgres.sql
var Files embed.FS

// For returns the DDL for the given backend ("sqlite" or "postgres").
func For(backend string) (string, error) {
	data, err := Files.ReadFile(backend + ".sql")
	if err != nil {
		return "", err
	}

	return string(data), nil
}
