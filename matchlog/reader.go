package matchlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var ErrMalformed = errors.New("malformed match log")

// ReadFile parses one match log. The file must end with a summary record.
func ReadFile(path string) (Match, error) {
	f, err := os.Open(path)
	if err != nil {
		return Match{}, fmt.Errorf("failed to open match log: %w", err)
	}
	defer f.Close()

	var m Match
	var haveSummary bool
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if haveSummary {
			return Match{}, fmt.Errorf("%w: %s:%d: record after summary", ErrMalformed, path, line)
		}
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return Match{}, fmt.Errorf("%w: %s:%d: %w", ErrMalformed, path, line, err)
		}
		switch head.Type {
		case TypeRound:
			var r Round
			if err := json.Unmarshal(raw, &r); err != nil {
				return Match{}, fmt.Errorf("%w: %s:%d: %w", ErrMalformed, path, line, err)
			}
			m.Rounds = append(m.Rounds, r)
		case TypeSummary:
			if err := json.Unmarshal(raw, &m.Summary); err != nil {
				return Match{}, fmt.Errorf("%w: %s:%d: %w", ErrMalformed, path, line, err)
			}
			haveSummary = true
		default:
			return Match{}, fmt.Errorf("%w: %s:%d: unknown record type %q", ErrMalformed, path, line, head.Type)
		}
	}
	if err := scanner.Err(); err != nil {
		return Match{}, fmt.Errorf("failed to read match log: %w", err)
	}
	if !haveSummary {
		return Match{}, fmt.Errorf("%w: %s: missing summary record", ErrMalformed, path)
	}
	return m, nil
}

// ReadDir parses every match_*.jsonl file below dir, ordered by path.
func ReadDir(dir string) ([]Match, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if !d.IsDir() && strings.HasPrefix(name, "match_") && strings.HasSuffix(name, ".jsonl") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	sort.Strings(paths)

	matches := make([]Match, 0, len(paths))
	for _, path := range paths {
		m, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, nil
}
