// Package all links every built-in table-store backend into the storage
// registry. Import it for side effects:
//
//	import _ "tkexport/internal/storage/all"
//
// after which storage.New accepts kinds "sqlite", "postgres", "mssql",
// "mysql" and "duckdb".
package all

import (
	_ "tkexport/internal/storage/duckdb"
	_ "tkexport/internal/storage/mssql"
	_ "tkexport/internal/storage/mysql"
	_ "tkexport/internal/storage/postgres"
	_ "tkexport/internal/storage/sqlite"
)
