package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
)

// ErrNoNumberColumn means the jersey file cannot be used at all.
var ErrNoNumberColumn = errors.New("jersey file has no player or number column")

// numberHeaders are the accepted spellings of the declared-number column, in
// order of preference. Compared after case folding.
var numberHeaders = []string{"number", "jersey number", "jersey"}

// JerseyNumbers maps a case-folded player name to the declared number.
type JerseyNumbers map[string]int

// folder is shared; a Caser is not safe for concurrent use.
var folder = struct {
	sync.Mutex
	cases.Caser
}{Caser: cases.Fold()}

// FoldName is the key used for case-insensitive player matching.
func FoldName(name string) string {
	folder.Lock()
	defer folder.Unlock()
	return folder.String(strings.TrimSpace(name))
}

// Lookup returns the declared number for name, ignoring case and surrounding
// whitespace.
func (j JerseyNumbers) Lookup(name string) (int, bool) {
	if j == nil {
		return 0, false
	}
	n, ok := j[FoldName(name)]
	return n, ok
}

// LoadJerseyNumbers reads the optional lookup file at path.
func LoadJerseyNumbers(path string, log logrus.FieldLogger) (JerseyNumbers, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadJerseyNumbers(f, log)
}

// ReadJerseyNumbers parses a lookup file with a Player column and one of
// Number / Jersey Number / Jersey. Rows with a blank name or an unparseable
// number are skipped with a warning; the first entry for a name wins.
func ReadJerseyNumbers(r io.Reader, log logrus.FieldLogger) (JerseyNumbers, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read jersey header: %w", err)
	}

	playerCol, numberCol := -1, -1
	folded := make([]string, len(header))
	for i, h := range header {
		folded[i] = FoldName(strings.TrimPrefix(h, "\ufeff"))
		if folded[i] == "player" && playerCol < 0 {
			playerCol = i
		}
	}
	for _, want := range numberHeaders {
		for i, h := range folded {
			if h == want {
				numberCol = i
				break
			}
		}
		if numberCol >= 0 {
			break
		}
	}
	if playerCol < 0 || numberCol < 0 {
		return nil, ErrNoNumberColumn
	}

	numbers := make(JerseyNumbers)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("jersey file line %d: %w", line, err)
		}
		if playerCol >= len(record) || numberCol >= len(record) {
			log.WithField("line", line).Warn("jersey row is short, skipping")
			continue
		}

		key := FoldName(record[playerCol])
		if key == "" {
			continue
		}
		rawNumber := strings.TrimSpace(record[numberCol])
		if rawNumber == "" {
			continue
		}
		n, err := parseInt(rawNumber)
		if err != nil {
			log.WithFields(logrus.Fields{
				"line":   line,
				"player": record[playerCol],
				"number": rawNumber,
			}).Warn("unparseable jersey number, skipping")
			continue
		}
		if _, dup := numbers[key]; dup {
			continue
		}
		numbers[key] = n
	}

	return numbers, nil
}
