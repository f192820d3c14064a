package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

const (
	upMarker            = "-- +goose Up"
	downMarker          = "-- +goose Down"
	beginMarker         = "-- +goose StatementBegin"
	endMarker           = "-- +goose StatementEnd"
	noTransactionMarker = "-- +goose NO TRANSACTION"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks every .sql file in dir and reports all problems at once
// so a CI run lists the whole set.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var errs error
	seen := map[string]string{}
	for _, name := range names {
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name))
			continue
		}
		if prev, ok := seen[m[1]]; ok {
			errs = multierr.Append(errs, fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name))
			continue
		}
		seen[m[1]] = name

		full := filepath.Join(dir, name)
		b, err := os.ReadFile(full)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("read file %q: %w", full, err))
			continue
		}
		errs = multierr.Append(errs, validateBody(name, string(b)))
	}
	return errs
}

func validateBody(name, body string) error {
	up := strings.Index(body, upMarker)
	down := strings.Index(body, downMarker)

	var errs error
	switch {
	case up < 0:
		errs = multierr.Append(errs, fmt.Errorf("migration %q missing %q", name, upMarker))
	case down < 0:
		errs = multierr.Append(errs, fmt.Errorf("migration %q missing %q", name, downMarker))
	case down < up:
		errs = multierr.Append(errs, fmt.Errorf("migration %q has Down before Up", name))
	}

	if begins, ends := strings.Count(body, beginMarker), strings.Count(body, endMarker); begins != ends {
		errs = multierr.Append(errs, fmt.Errorf("migration %q has %d StatementBegin and %d StatementEnd", name, begins, ends))
	}

	if idx := strings.Index(body, noTransactionMarker); idx >= 0 && up >= 0 && idx > up {
		errs = multierr.Append(errs, fmt.Errorf("migration %q must declare NO TRANSACTION before Up", name))
	}
	return errs
}
