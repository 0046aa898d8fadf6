// Package all wires every built-in warehouse dialect into the storage
// registry. Import it for side effects:
//
//	import _ "salesdw/internal/storage/all"
//
// A binary that needs only a subset can import the dialect packages
// (internal/storage/sqlite, postgres, mysql, mssql) directly instead.
package all

import (
	_ "salesdw/internal/storage/mssql"
	_ "salesdw/internal/storage/mysql"
	_ "salesdw/internal/storage/postgres"
	_ "salesdw/internal/storage/sqlite"
)
