// Package corpus loads the keyword corpus from its tabular source and serves
// read-only lookups once loaded.
package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/zatekoja/keywordscout/internal/domain/analytics"
	"github.com/zatekoja/keywordscout/internal/domain/entities"
	"github.com/zatekoja/keywordscout/internal/domain/repositories"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/keywordscout/pkg/errors"
	"github.com/zatekoja/keywordscout/pkg/utils"
)

const (
	columnKeyword     = "keyword"
	columnCompetition = "competition"
	columnCPC         = "cpc"
	columnBidLow      = "top_of_page_bid_low"
	columnBidHigh     = "top_of_page_bid_high"
)

var periodColumn = regexp.MustCompile(`^\d{4}_(0[1-9]|1[0-2])$`)

// Store is the in-memory keyword corpus
type Store struct {
	path   string
	engine *analytics.Engine

	mu         sync.RWMutex
	records    []*entities.KeywordRecord
	byKeyword  map[string]*entities.KeywordRecord
	duplicates int
}

var _ repositories.CorpusRepository = (*Store)(nil)

// NewStore creates a store for the CSV file at path. Nothing is read until Load.
func NewStore(path string) *Store {
	return &Store{
		path:   path,
		engine: analytics.NewEngine(),
	}
}

// NewStoreFromRecords builds an already-loaded store from records, in order.
// Raw derived fields are precomputed the same way Load does.
func NewStoreFromRecords(records ...*entities.KeywordRecord) *Store {
	s := NewStore("")
	s.index(records)
	return s
}

// Load reads and indexes the corpus. Any structural problem fails the whole
// load and leaves the store empty.
func (s *Store) Load(ctx context.Context) error {
	logger := observability.LoggerFromContext(ctx)

	f, err := os.Open(s.path)
	if err != nil {
		return corpusError(fmt.Sprintf("failed to open corpus %s", s.path), err)
	}
	defer f.Close()

	if err := s.LoadReader(ctx, f); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	logger.Info().
		Str("path", s.path).
		Int("keywords", len(s.records)).
		Int("duplicates", s.duplicates).
		Msg("Keyword corpus loaded")
	return nil
}

// LoadReader reads the corpus from r
func (s *Store) LoadReader(ctx context.Context, r io.Reader) error {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return corpusError("corpus is empty", nil)
		}
		return corpusError("failed to read corpus header", err)
	}

	layout, err := parseHeader(header)
	if err != nil {
		return err
	}

	var records []*entities.KeywordRecord
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return corpusError(fmt.Sprintf("malformed corpus row %d", line), err)
		}
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		record, err := layout.parseRow(row)
		if err != nil {
			return corpusError(fmt.Sprintf("invalid corpus row %d", line), err)
		}
		if record != nil {
			records = append(records, record)
		}
	}

	s.index(records)
	return nil
}

func (s *Store) index(records []*entities.KeywordRecord) {
	byKeyword := make(map[string]*entities.KeywordRecord, len(records))
	kept := make([]*entities.KeywordRecord, 0, len(records))
	duplicates := 0

	for _, record := range records {
		key := utils.NormalizeKeyword(record.Keyword)
		if _, exists := byKeyword[key]; exists {
			duplicates++
			continue
		}
		sort.SliceStable(record.Series, func(i, j int) bool {
			return record.Series[i].Period < record.Series[j].Period
		})
		s.engine.Precompute(record)
		byKeyword[key] = record
		kept = append(kept, record)
	}

	s.mu.Lock()
	s.records = kept
	s.byKeyword = byKeyword
	s.duplicates = duplicates
	s.mu.Unlock()
}

// Close releases the loaded corpus
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.byKeyword = nil
	return nil
}

// Lookup finds a record by keyword, ignoring case and extra whitespace
func (s *Store) Lookup(keyword string) (*entities.KeywordRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.byKeyword[utils.NormalizeKeyword(keyword)]
	return record, ok
}

// All returns every record in source order
func (s *Store) All() []*entities.KeywordRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records
}

// Len returns the number of loaded records
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Duplicates returns how many duplicate keyword rows the last load skipped
func (s *Store) Duplicates() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.duplicates
}

type columnLayout struct {
	keyword     int
	competition int
	cpc         int
	bidLow      int
	bidHigh     int
	periods     []periodIndex
}

type periodIndex struct {
	period string
	column int
}

func parseHeader(header []string) (*columnLayout, error) {
	layout := &columnLayout{keyword: -1, competition: -1, cpc: -1, bidLow: -1, bidHigh: -1}

	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff")))
		switch {
		case name == columnKeyword:
			layout.keyword = i
		case name == columnCompetition:
			layout.competition = i
		case name == columnCPC:
			layout.cpc = i
		case name == columnBidLow:
			layout.bidLow = i
		case name == columnBidHigh:
			layout.bidHigh = i
		case periodColumn.MatchString(name):
			layout.periods = append(layout.periods, periodIndex{period: name, column: i})
		}
	}

	required := map[string]int{
		columnKeyword:     layout.keyword,
		columnCompetition: layout.competition,
		columnCPC:         layout.cpc,
		columnBidLow:      layout.bidLow,
		columnBidHigh:     layout.bidHigh,
	}
	var missing []string
	for name, idx := range required {
		if idx < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, corpusError(fmt.Sprintf("corpus header missing columns: %s", strings.Join(missing, ", ")), nil)
	}
	if len(layout.periods) == 0 {
		return nil, corpusError("corpus header has no YYYY_MM period columns", nil)
	}

	sort.Slice(layout.periods, func(i, j int) bool { return layout.periods[i].period < layout.periods[j].period })
	return layout, nil
}

// parseRow returns nil for rows with a blank keyword
func (l *columnLayout) parseRow(row []string) (*entities.KeywordRecord, error) {
	keyword := strings.TrimSpace(row[l.keyword])
	if keyword == "" {
		return nil, nil
	}

	record := &entities.KeywordRecord{
		Keyword: keyword,
		Series:  make([]entities.MonthlyVolume, 0, len(l.periods)),
	}

	for _, p := range l.periods {
		cell := strings.TrimSpace(row[p.column])
		if cell == "" {
			continue
		}
		volume, err := strconv.ParseFloat(cell, 64)
		if err != nil || utils.Float(volume) == nil {
			return nil, fmt.Errorf("keyword %q: volume %q for %s is not a number", keyword, cell, p.period)
		}
		if volume < 0 {
			return nil, fmt.Errorf("keyword %q: negative volume %s for %s", keyword, cell, p.period)
		}
		record.Series = append(record.Series, entities.MonthlyVolume{Period: p.period, Volume: int64(volume)})
	}

	competition, err := parseCompetition(row[l.competition])
	if err != nil {
		return nil, fmt.Errorf("keyword %q: %w", keyword, err)
	}
	record.Competition = competition

	fields := []struct {
		name   string
		column int
		target *float64
	}{
		{columnCPC, l.cpc, &record.CPC},
		{columnBidLow, l.bidLow, &record.TopPageBidLow},
		{columnBidHigh, l.bidHigh, &record.TopPageBidHigh},
	}
	for _, f := range fields {
		value, err := parseAmount(row[f.column])
		if err != nil {
			return nil, fmt.Errorf("keyword %q: %s: %w", keyword, f.name, err)
		}
		*f.target = value
	}

	return record, nil
}

func parseCompetition(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, nil
	}
	if level, ok := entities.CompetitionFromLabel(cell); ok {
		return level, nil
	}
	value, err := utils.ParseNumber(cell)
	if err != nil {
		return 0, fmt.Errorf("competition %q is neither numeric nor LOW/MEDIUM/HIGH", cell)
	}
	if value < 0 || value > 100 {
		return 0, fmt.Errorf("competition %v is outside 0-100", value)
	}
	return value, nil
}

func parseAmount(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, nil
	}
	value, err := utils.ParseNumber(cell)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", cell)
	}
	if value < 0 {
		return 0, fmt.Errorf("%v is negative", value)
	}
	return value, nil
}

func corpusError(message string, err error) error {
	if err == nil {
		err = apperrors.ErrCorpusUnavailable
	} else {
		err = fmt.Errorf("%w: %w", apperrors.ErrCorpusUnavailable, err)
	}
	return apperrors.NewFatalError(message, err)
}
