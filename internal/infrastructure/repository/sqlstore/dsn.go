package sqlstore

import (
	"net/url"
	"path/filepath"
	"strings"
)

// dbName labels spans with the database file or postgres database name.
func dbName(driver, dsn string) string {
	trimmed := strings.TrimSpace(dsn)
	if driver == DriverSQLite {
		path := strings.TrimPrefix(trimmed, "file:")
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		if path == "" || path == ":memory:" {
			return "memory"
		}
		return filepath.Base(path)
	}

	parsed, err := url.Parse(trimmed)
	if err == nil && parsed != nil && parsed.Scheme != "" {
		if name := strings.TrimSpace(strings.TrimPrefix(parsed.Path, "/")); name != "" {
			return name
		}
	}

	for _, token := range strings.Fields(trimmed) {
		if !strings.HasPrefix(token, "dbname=") {
			continue
		}
		name := strings.Trim(strings.TrimSpace(strings.TrimPrefix(token, "dbname=")), `"'`)
		if name != "" {
			return name
		}
	}
	return ""
}
