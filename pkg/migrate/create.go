package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var nameSanitizeRe = regexp.MustCompile(`[^a-z0-9_]+`)

// CreateOptions describes a new goose SQL migration.
type CreateOptions struct {
	Dir  string
	Name string
	// NoTransaction marks the file for statements Postgres refuses inside a
	// transaction, e.g. CREATE INDEX CONCURRENTLY on the orders table.
	NoTransaction bool
	Now           func() time.Time
}

// CreateSQLMigration creates <dir>/<YYYYMMDDHHMMSS>_<name>.sql.
func CreateSQLMigration(dir string, name string) (string, error) {
	return Create(CreateOptions{Dir: dir, Name: name})
}

// Create writes the migration skeleton and returns its path. When another
// file already owns the version (two creates in one second) the version is
// moved forward until it is free.
func Create(opts CreateOptions) (string, error) {
	if opts.Dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	safe := SanitizeName(opts.Name)
	if safe == "" {
		return "", fmt.Errorf("name %q results in empty sanitized filename", opts.Name)
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", opts.Dir, err)
	}

	taken, err := existingVersions(opts.Dir)
	if err != nil {
		return "", err
	}
	at := now().UTC()
	for taken[at.Format(versionLayout)] {
		at = at.Add(time.Second)
	}

	fullpath := filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.sql", at.Format(versionLayout), safe))
	if err := os.WriteFile(fullpath, []byte(skeleton(safe, opts.NoTransaction)), 0o644); err != nil {
		return "", fmt.Errorf("write migration %q: %w", fullpath, err)
	}
	return fullpath, nil
}

// SanitizeName lowercases name and collapses everything outside [a-z0-9_].
func SanitizeName(name string) string {
	safe := strings.ToLower(strings.TrimSpace(name))
	safe = nameSanitizeRe.ReplaceAllString(safe, "_")
	return strings.Trim(safe, "_")
}

func existingVersions(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}
	out := make(map[string]bool, len(entries))
	for _, e := range entries {
		if m := sqlFileRe.FindStringSubmatch(e.Name()); m != nil {
			out[m[1]] = true
		}
	}
	return out, nil
}

func skeleton(name string, noTx bool) string {
	var b strings.Builder
	if noTx {
		b.WriteString(noTransactionMarker + "\n\n")
	}
	fmt.Fprintf(&b, "%s\n%s\n-- %s\n%s\n\n", upMarker, beginMarker, name, endMarker)
	fmt.Fprintf(&b, "%s\n%s\n-- rollback %s\n%s\n", downMarker, beginMarker, name, endMarker)
	return b.String()
}
