package migrate

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	annotationUp    = "-- +goose Up"
	annotationDown  = "-- +goose Down"
	annotationBegin = "-- +goose StatementBegin"
	annotationEnd   = "-- +goose StatementEnd"
)

// ValidateDir checks every .sql file in dir and reports all problems at once
// so CI shows the whole list instead of the first failure.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	var errs error
	versions := map[string]string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".sql" {
			continue
		}
		match := sqlFileRe.FindStringSubmatch(name)
		if match == nil {
			errs = multierr.Append(errs, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name))
			continue
		}
		if prev, dup := versions[match[1]]; dup {
			errs = multierr.Append(errs, fmt.Errorf("duplicate migration version %s in %q and %q", match[1], prev, name))
		}
		versions[match[1]] = name
		errs = multierr.Append(errs, checkAnnotations(filepath.Join(dir, name)))
	}
	return errs
}

// checkAnnotations walks the goose markers line by line: one Up, then one
// Down, with StatementBegin/End paired inside a single section.
func checkAnnotations(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	var (
		section string
		seen    = map[string]int{}
		open    bool
	)
	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(text, annotationUp), strings.HasPrefix(text, annotationDown):
			next := annotationUp
			if strings.HasPrefix(text, annotationDown) {
				next = annotationDown
			}
			if open {
				return fmt.Errorf("migration %q line %d: %s inside an open statement block", name, line, next)
			}
			if next == annotationUp && seen[annotationDown] > 0 {
				return fmt.Errorf("migration %q has Down before Up", name)
			}
			seen[next]++
			if seen[next] > 1 {
				return fmt.Errorf("migration %q repeats %q", name, next)
			}
			section = next
		case strings.HasPrefix(text, annotationBegin):
			if section == "" || open {
				return fmt.Errorf("migration %q line %d: unexpected StatementBegin", name, line)
			}
			open = true
		case strings.HasPrefix(text, annotationEnd):
			if !open {
				return fmt.Errorf("migration %q line %d: StatementEnd without StatementBegin", name, line)
			}
			open = false
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %q: %w", path, err)
	}

	switch {
	case seen[annotationUp] == 0:
		return fmt.Errorf("migration %q missing %q", name, annotationUp)
	case seen[annotationDown] == 0:
		return fmt.Errorf("migration %q missing %q", name, annotationDown)
	case open:
		return fmt.Errorf("migration %q ends inside a statement block", name)
	}
	return nil
}
