package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/dom/puckquery/internal/domain"
	"github.com/sirupsen/logrus"
)

// Load errors. ErrSourceNotFound means the export does not exist;
// ErrMissingColumn means its header lacks a game identity column.
var (
	ErrSourceNotFound = errors.New("source file not found")
	ErrMissingColumn  = errors.New("required column missing")
)

type column int

const (
	colGameDate column = iota
	colHomeTeam
	colAwayTeam
	colPeriod
	colClock
	colHomeSkaters
	colAwaySkaters
	colHomeGoals
	colAwayGoals
	colTeam
	colPlayer
	colEvent
	colX
	colY
	colDetail1
	colDetail2
	colDetail3
	colDetail4
	colPlayer2
	colX2
	colY2
	numColumns
)

// headers is the canonical header row, in export order.
var headers = [numColumns]string{
	"game_date", "Home Team", "Away Team", "Period", "Clock",
	"Home Team Skaters", "Away Team Skaters", "Home Team Goals", "Away Team Goals",
	"Team", "Player", "Event", "X Coordinate", "Y Coordinate",
	"Detail 1", "Detail 2", "Detail 3", "Detail 4",
	"Player 2", "X Coordinate 2", "Y Coordinate 2",
}

// headerAliases maps every accepted header spelling to its column. Matching is
// exact and case-sensitive.
var headerAliases = func() map[string]column {
	m := make(map[string]column, numColumns+1)
	for i, h := range headers {
		m[h] = column(i)
	}
	m["Game Date"] = colGameDate
	return m
}()

var requiredColumns = []column{colGameDate, colHomeTeam, colAwayTeam}

// LoadCSV reads the export at path. A missing file wraps ErrSourceNotFound.
func LoadCSV(path string, log logrus.FieldLogger) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	table, err := ReadCSV(f, log.WithField("path", path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return table, nil
}

// ReadCSV parses an export. Unknown columns are ignored; absent optional
// columns leave their fields zero or nil. A numeric cell that does not parse
// is logged and read as blank.
func ReadCSV(r io.Reader, log logrus.FieldLogger) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[column]int)
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if col, ok := headerAliases[name]; ok {
			if _, dup := index[col]; !dup {
				index[col] = i
			}
		}
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, headers[col])
		}
	}

	var rows []domain.RawEvent
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		p := rowParser{record: record, index: index, line: line, log: log}
		rows = append(rows, p.event())
	}

	return &Table{rows: rows}, nil
}

// rowParser decodes one record; bad numeric cells are reported, not fatal.
type rowParser struct {
	record []string
	index  map[column]int
	line   int
	log    logrus.FieldLogger
}

func (p *rowParser) cell(col column) string {
	i, ok := p.index[col]
	if !ok || i >= len(p.record) {
		return ""
	}
	return p.record[i]
}

func (p *rowParser) str(col column) string {
	return p.cell(col)
}

func (p *rowParser) optStr(col column) *string {
	v := p.cell(col)
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

func (p *rowParser) integer(col column) int {
	v := p.optInt(col)
	if v == nil {
		return 0
	}
	return *v
}

func (p *rowParser) optInt(col column) *int {
	raw := strings.TrimSpace(p.cell(col))
	if raw == "" {
		return nil
	}
	n, err := parseInt(raw)
	if err != nil {
		p.log.WithFields(logrus.Fields{
			"line":   p.line,
			"column": headers[col],
			"value":  raw,
		}).Warn("ignoring non-numeric cell")
		return nil
	}
	return &n
}

func (p *rowParser) event() domain.RawEvent {
	return domain.RawEvent{
		GameDate:        p.str(colGameDate),
		HomeTeam:        p.str(colHomeTeam),
		AwayTeam:        p.str(colAwayTeam),
		Period:          p.integer(colPeriod),
		Clock:           p.str(colClock),
		HomeTeamSkaters: p.integer(colHomeSkaters),
		AwayTeamSkaters: p.integer(colAwaySkaters),
		HomeTeamGoals:   p.integer(colHomeGoals),
		AwayTeamGoals:   p.integer(colAwayGoals),
		Team:            p.str(colTeam),
		Player:          p.str(colPlayer),
		Event:           p.str(colEvent),
		XCoordinate:     p.optInt(colX),
		YCoordinate:     p.optInt(colY),
		Detail1:         p.optStr(colDetail1),
		Detail2:         p.optStr(colDetail2),
		Detail3:         p.optStr(colDetail3),
		Detail4:         p.optStr(colDetail4),
		Player2:         p.optStr(colPlayer2),
		XCoordinate2:    p.optInt(colX2),
		YCoordinate2:    p.optInt(colY2),
	}
}

// parseInt accepts "12" as well as the "12.0" spelling pandas writes for
// integer columns that contain blanks.
func parseInt(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("%q is not a whole number", raw)
	}
	return int(f), nil
}

// WriteCSV renders t with the canonical header row.
func WriteCSV(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(headers[:]); err != nil {
		return err
	}
	for _, row := range t.Rows() {
		if err := writer.Write(formatRow(row)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatRow(e domain.RawEvent) []string {
	return []string{
		e.GameDate, e.HomeTeam, e.AwayTeam, strconv.Itoa(e.Period), e.Clock,
		strconv.Itoa(e.HomeTeamSkaters), strconv.Itoa(e.AwayTeamSkaters),
		strconv.Itoa(e.HomeTeamGoals), strconv.Itoa(e.AwayTeamGoals),
		e.Team, e.Player, e.Event, fmtInt(e.XCoordinate), fmtInt(e.YCoordinate),
		fmtStr(e.Detail1), fmtStr(e.Detail2), fmtStr(e.Detail3), fmtStr(e.Detail4),
		fmtStr(e.Player2), fmtInt(e.XCoordinate2), fmtInt(e.YCoordinate2),
	}
}

func fmtInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func fmtStr(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
