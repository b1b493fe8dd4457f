package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildTableObjectPath returns the key of a table snapshot: <prefix>/<table>.parquet.
// The prefix may span several segments; each one is validated.
func BuildTableObjectPath(prefix, tableName string) (string, error) {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return "", fmt.Errorf("object prefix is required")
	}
	for _, segment := range strings.Split(prefix, "/") {
		if err := validatePathComponent(segment, "prefix segment"); err != nil {
			return "", err
		}
	}
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	return path.Join(prefix, tableName+".parquet"), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) || strings.Contains(value, "..") {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
