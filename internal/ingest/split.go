package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dom/puckquery/internal/domain"
)

var filenameReplacer = strings.NewReplacer(" ", "_", "/", "-", string(filepath.Separator), "-")

// GameFilename names the per-game CSV written by SplitGames, e.g.
// "2022-02-03_Olympic_(Women)_-_Finland_Olympic_(Women)_-_United_States.csv".
// The date prefix keeps rematches between the same teams apart.
func GameFilename(id domain.GameIdentity) string {
	return filenameReplacer.Replace(id.GameDate + "_" + id.HomeTeam + "_" + id.AwayTeam + ".csv")
}

// SplitGames writes one CSV per game of t into dir, creating dir if needed,
// and returns the written paths in order of first appearance.
func SplitGames(t *Table, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	var paths []string
	for _, id := range t.Games() {
		path := filepath.Join(dir, GameFilename(id))
		if err := writeFile(path, t.Scope(id)); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
