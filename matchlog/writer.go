package matchlog

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"zerosum/config"
)

const MatchesDir = "matches"

// Writer stores match logs and run metadata under an output directory.
// WriteMatch is safe for concurrent use; each match owns its file.
type Writer struct {
	baseDir string
}

func NewWriter(baseDir string) (*Writer, error) {
	err := os.MkdirAll(filepath.Join(baseDir, MatchesDir), 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir: baseDir,
	}, nil
}

// MatchPath is where the log of match id is stored.
func (w *Writer) MatchPath(id string) string {
	return filepath.Join(w.baseDir, MatchesDir, "match_"+id+".jsonl")
}

// WriteMatch writes m to a temporary file and renames it into place, so
// readers never observe a log without its summary.
func (w *Writer) WriteMatch(m Match) (string, error) {
	path := w.MatchPath(m.Summary.MatchID)
	f, err := os.CreateTemp(filepath.Dir(path), ".match_*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create match log: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	buf := bufio.NewWriter(f)
	enc := json.NewEncoder(buf)
	for _, r := range m.Rounds {
		r.Type = TypeRound
		if err := enc.Encode(r); err != nil {
			f.Close()
			return "", fmt.Errorf("failed to write round record: %w", err)
		}
	}
	m.Summary.Type = TypeSummary
	if err := enc.Encode(m.Summary); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write summary record: %w", err)
	}
	if err := buf.Flush(); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to flush match log: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close match log: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to move match log into place: %w", err)
	}
	return path, nil
}

// WriteRoster stores the roster as roster.csv.
func (w *Writer) WriteRoster(roster []config.ModelConfig) error {
	// Create a file
	path := filepath.Join(w.baseDir, "roster.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create roster file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)

	// Write header
	err = writer.Write([]string{"name", "model"})
	if err != nil {
		return fmt.Errorf("failed to write roster header: %w", err)
	}

	// Write each row
	for _, m := range roster {
		err = writer.Write([]string{m.Name, m.Model})
		if err != nil {
			return fmt.Errorf("failed to write roster row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush roster: %w", err)
	}
	return f.Close()
}

// WriteSetup stores the run inputs as setup.json.
func (w *Writer) WriteSetup(setup any) error {
	return w.writeJSON("setup.json", setup)
}

// WriteWDL stores the final tally as wdl.json.
func (w *Writer) WriteWDL(wdl map[string]WDL) error {
	return w.writeJSON("wdl.json", wdl)
}

func (w *Writer) writeJSON(name string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	err = os.WriteFile(filepath.Join(w.baseDir, name), append(raw, '\n'), 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
