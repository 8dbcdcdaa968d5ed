// Package all links every built-in source kind into the datasource registry.
package all

import (
	_ "tkexport/internal/datasource/mssql"
	_ "tkexport/internal/datasource/mysql"
	_ "tkexport/internal/datasource/postgres"
	_ "tkexport/internal/datasource/sqlite"
)
