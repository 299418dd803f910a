package customer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/contract"
)

type ReadinessState string

const (
	StateUninitialized ReadinessState = "uninitialized"
	StateLoading       ReadinessState = "loading"
	StateReady         ReadinessState = "ready"
	StateLoadFailed    ReadinessState = "load_failed"
)

var ErrLoadStarted = errors.New("customer store load already started")

// Source yields the delimited dataset. It is opened exactly once per store.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// LoadStats describes what the last successful load saw in the source.
type LoadStats struct {
	Records        int      `json:"records"`
	SkippedRows    int      `json:"skipped_rows"`
	ShortRows      int      `json:"short_rows"`
	DuplicateKeys  int      `json:"duplicate_keys"`
	MissingColumns []string `json:"missing_columns,omitempty"`
}

// Store is an immutable, session-scoped snapshot of customer records.
//
// Duplicate customer ids (after case folding) resolve first-match-wins; the
// later rows are dropped and counted in LoadStats.DuplicateKeys.
type Store struct {
	source Source

	mu      sync.RWMutex
	state   ReadinessState
	records []Record
	index   map[string]int
	stats   LoadStats
	loadErr error

	done chan struct{}
}

func NewStore(source Source) *Store {
	return &Store{
		source: source,
		state:  StateUninitialized,
		done:   make(chan struct{}),
	}
}

// Load fetches and parses the source. It may be called once; the store ends
// in either Ready or LoadFailed.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateUninitialized {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: state=%s", ErrLoadStarted, state)
	}
	s.state = StateLoading
	s.mu.Unlock()

	records, index, stats, err := s.fetch(ctx)

	s.mu.Lock()
	defer func() {
		s.mu.Unlock()
		close(s.done)
	}()

	if err != nil {
		s.state = StateLoadFailed
		s.loadErr = fmt.Errorf("%w: %v", contractx.ErrLoadFailed, err)
		log.Error().Err(err).Msg("customer records load failed")
		return s.loadErr
	}

	s.records = records
	s.index = index
	s.stats = stats
	s.state = StateReady

	evt := log.Info()
	if stats.DuplicateKeys > 0 || len(stats.MissingColumns) > 0 {
		evt = log.Warn()
	}
	evt.Int("records", stats.Records).
		Int("skipped_rows", stats.SkippedRows).
		Int("short_rows", stats.ShortRows).
		Int("duplicate_keys", stats.DuplicateKeys).
		Strs("missing_columns", stats.MissingColumns).
		Msg("customer records loaded")
	return nil
}

func (s *Store) fetch(ctx context.Context) ([]Record, map[string]int, LoadStats, error) {
	if s.source == nil {
		return nil, nil, LoadStats{}, errors.New("no data source configured")
	}
	rc, err := s.source.Open(ctx)
	if err != nil {
		return nil, nil, LoadStats{}, fmt.Errorf("open source: %w", err)
	}
	defer rc.Close()

	return parse(rc)
}

// Lookup finds a record by customer id, ignoring case and surrounding space.
func (s *Store) Lookup(customerID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state != StateReady {
		return Record{}, &NotReadyError{State: s.state, Cause: s.loadErr}
	}

	i, ok := s.index[NormalizeID(customerID)]
	if !ok {
		return Record{}, &NotFoundError{CustomerID: customerID}
	}
	return s.records[i], nil
}

func (s *Store) State() ReadinessState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the load failure, if any.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

func (s *Store) Stats() LoadStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Done is closed once Load has settled in Ready or LoadFailed.
func (s *Store) Done() <-chan struct{} {
	return s.done
}

func parse(r io.Reader) ([]Record, map[string]int, LoadStats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, LoadStats{}, errors.New("source is empty: missing header row")
	}
	if err != nil {
		return nil, nil, LoadStats{}, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	cols := resolveColumns(header)
	if cols.core[ColumnCustomerID] < 0 {
		return nil, nil, LoadStats{}, fmt.Errorf("header has no %s column", ColumnCustomerID)
	}

	var stats LoadStats
	for _, name := range coreColumns {
		if cols.core[name] < 0 {
			stats.MissingColumns = append(stats.MissingColumns, name)
		}
	}

	records := make([]Record, 0, 64)
	index := make(map[string]int, 64)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, LoadStats{}, fmt.Errorf("read row: %w", err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) < len(header) {
			stats.ShortRows++
		}

		rec := cols.record(row)
		key := NormalizeID(rec.CustomerID)
		if key == "" {
			stats.SkippedRows++
			continue
		}
		if _, exists := index[key]; exists {
			stats.DuplicateKeys++
			continue
		}
		index[key] = len(records)
		records = append(records, rec)
	}

	stats.Records = len(records)
	return records, index, stats, nil
}

type columnLayout struct {
	core  map[string]int
	extra []int
	names []string
}

func resolveColumns(header []string) columnLayout {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}

	layout := columnLayout{
		core:  make(map[string]int, len(coreColumns)),
		names: names,
	}
	claimed := make(map[int]bool, len(coreColumns))
	for _, col := range coreColumns {
		layout.core[col] = -1
		for i, name := range names {
			if name == col {
				layout.core[col] = i
				break
			}
		}
		if layout.core[col] < 0 {
			for i, name := range names {
				if strings.EqualFold(name, col) && !claimed[i] {
					layout.core[col] = i
					break
				}
			}
		}
		if layout.core[col] >= 0 {
			claimed[layout.core[col]] = true
		}
	}
	for i, name := range names {
		if !claimed[i] && name != "" {
			layout.extra = append(layout.extra, i)
		}
	}
	return layout
}

func (c columnLayout) record(row []string) Record {
	rec := Record{
		CustomerID:     strings.TrimSpace(cell(row, c.core[ColumnCustomerID])),
		TenureMonths:   cell(row, c.core[ColumnTenure]),
		MonthlyCharges: cell(row, c.core[ColumnMonthlyCharges]),
		TotalCharges:   cell(row, c.core[ColumnTotalCharges]),
		ChurnStatus:    cell(row, c.core[ColumnChurn]),
	}
	if len(c.extra) > 0 {
		rec.Extra = make([]Field, 0, len(c.extra))
		for _, i := range c.extra {
			rec.Extra = append(rec.Extra, Field{Name: c.names[i], Value: cell(row, i)})
		}
	}
	return rec
}

// cell returns "" for columns the row does not reach.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
