package services

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/models"
)

const (
	batchSize    = 10000
	maxWorkers   = 10
	cacheVersion = "v2"
	minColumns   = 4
	unknownPlace = "Desconhecido"
)

var errNoRecords = errors.New("no valid records found")

// LoaderConfig tunes the ingestion boundary.
type LoaderConfig struct {
	CacheDir   string
	SampleSize int
	SampleYear int
}

// LoadResult describes where the record store came from.
type LoadResult struct {
	Source    string        `json:"source"`
	Records   int           `json:"records"`
	Fallback  bool          `json:"fallback"`
	FromCache bool          `json:"from_cache"`
	Duration  time.Duration `json:"duration"`
}

// Loader turns a feed into a validated record store. It never fails: when
// the feed cannot be read or yields nothing, it returns sample data.
type Loader struct {
	source Source
	config LoaderConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewLoader(source Source, config LoaderConfig, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if config.SampleSize <= 0 {
		config.SampleSize = 50
	}
	if config.SampleYear == 0 {
		config.SampleYear = 2024
	}
	return &Loader{
		source: source,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

func (l *Loader) Load(ctx context.Context) ([]models.Transaction, LoadResult) {
	start := time.Now()
	result := LoadResult{Source: l.source.Name()}

	if cached, ok := l.loadFromCache(); ok {
		result.Records = len(cached)
		result.FromCache = true
		result.Duration = time.Since(start)
		l.logger.Info("loaded from cache", "source", result.Source, "records", result.Records)
		return cached, result
	}

	l.logger.Info("processing feed", "source", result.Source)
	records, err := l.fetch(ctx)
	if err != nil {
		l.logger.Warn("feed unavailable, using sample data", "source", result.Source, "error", err)
		records = SampleTransactions(l.config.SampleSize, l.config.SampleYear)
		result.Fallback = true
	} else if err := l.saveToCache(records); err != nil {
		l.logger.Warn("failed to save cache", "error", err)
	}

	result.Records = len(records)
	result.Duration = time.Since(start)
	l.logger.Info("feed processing complete",
		"records", result.Records,
		"fallback", result.Fallback,
		"duration", result.Duration)
	return records, result
}

func (l *Loader) fetch(ctx context.Context) ([]models.Transaction, error) {
	rows, err := l.source.Rows(ctx)
	if err != nil {
		return nil, err
	}
	records, err := ParseRows(ctx, rows, l.now())
	if err != nil {
		return nil, fmt.Errorf("parse rows: %w", err)
	}
	return records, nil
}

// ParseRows converts sheet rows (date, origin, destination, value) into
// transactions. Rows are parsed in parallel batches; output keeps row order.
// Malformed dates fall back to now and malformed amounts to zero.
func ParseRows(ctx context.Context, rows [][]string, now time.Time) ([]models.Transaction, error) {
	start := 0
	if len(rows) > 0 && len(rows[0]) > 0 {
		first := strings.ToLower(rows[0][0])
		if strings.Contains(first, "data") || strings.Contains(first, "label") {
			start = 1
		}
	}

	parsed := make([]models.Transaction, len(rows))
	valid := make([]bool, len(rows))

	for batchStart := start; batchStart < len(rows); batchStart += batchSize {
		batchEnd := min(batchStart+batchSize, len(rows))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxWorkers)
		for i := batchStart; i < batchEnd; i++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				parsed[i], valid[i] = parseRow(rows[i], i, now)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	records := make([]models.Transaction, 0, len(rows))
	for i, ok := range valid {
		if ok {
			records = append(records, parsed[i])
		}
	}
	if len(records) == 0 {
		return nil, errNoRecords
	}
	return records, nil
}

func parseRow(row []string, index int, now time.Time) (models.Transaction, bool) {
	if len(row) < minColumns {
		return models.Transaction{}, false
	}

	dateCell := strings.TrimSpace(row[0])
	if dateCell == "" || strings.EqualFold(dateCell, "data") {
		return models.Transaction{}, false
	}

	date := parseDate(dateCell, now)
	value := parseCurrency(row[3])

	return models.Transaction{
		ID:          "row-" + strconv.Itoa(index),
		Year:        date.Year(),
		Month:       MonthToken(int(date.Month())),
		Origin:      placeOrUnknown(row[1]),
		Destination: placeOrUnknown(row[2]),
		Billing:     value,
		Issuances:   1,
		Receipts:    value,
		Date:        date,
	}, true
}

func placeOrUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return unknownPlace
	}
	return s
}

// parseDate accepts DD/MM/YYYY and YYYY-MM-DD. Year and month of the record
// are always taken from the returned date so the two never disagree.
func parseDate(s string, now time.Time) time.Time {
	var day, month, year string
	switch {
	case strings.Contains(s, "/"):
		parts := strings.Split(s, "/")
		if len(parts) != 3 {
			return now
		}
		day, month, year = parts[0], parts[1], parts[2]
	case strings.Contains(s, "-"):
		parts := strings.Split(s, "-")
		if len(parts) != 3 {
			return now
		}
		year, month, day = parts[0], parts[1], parts[2]
	default:
		return now
	}

	// Sheets exports may append a time after the year.
	yearFields := strings.Fields(year)
	if len(yearFields) == 0 {
		return now
	}
	d, errD := strconv.Atoi(strings.TrimSpace(day))
	m, errM := strconv.Atoi(strings.TrimSpace(month))
	y, errY := strconv.Atoi(yearFields[0])
	if errD != nil || errM != nil || errY != nil {
		return now
	}
	// Sort keys format the year with four digits.
	if y < 1 || y > 9999 || m < 1 || m > 12 || d < 1 || d > 31 {
		return now
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// parseCurrency reads PT-BR amounts such as "R$ 1.234,56". Anything
// unparseable or negative becomes zero.
func parseCurrency(s string) float64 {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case 'R', '$', '.', ' ', '\t', '\u00a0':
			return -1
		case ',':
			return '.'
		}
		return r
	}, strings.TrimSpace(s))
	if clean == "" {
		return 0
	}

	amount, err := decimal.NewFromString(clean)
	if err != nil || amount.IsNegative() {
		return 0
	}
	return amount.InexactFloat64()
}

var (
	sampleOrigins      = []string{"São Paulo", "Belo Horizonte", "Curitiba", "Porto Alegre"}
	sampleDestinations = []string{"Manaus", "Recife", "Salvador", "Fortaleza"}
)

// SampleTransactions builds the fallback dataset. The generator is seeded
// so repeated fallbacks show the same numbers.
func SampleTransactions(n, year int) []models.Transaction {
	rng := rand.New(rand.NewPCG(uint64(year), uint64(n)))
	records := make([]models.Transaction, n)
	for i := range records {
		month := rng.IntN(12) + 1
		value := float64(rng.IntN(5000) + 500)
		records[i] = models.Transaction{
			ID:          "sample-" + strconv.Itoa(i),
			Year:        year,
			Month:       MonthToken(month),
			Origin:      sampleOrigins[rng.IntN(len(sampleOrigins))],
			Destination: sampleDestinations[rng.IntN(len(sampleDestinations))],
			Billing:     value,
			Issuances:   1,
			Receipts:    value,
			Date:        time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC),
		}
	}
	return records
}

type cachedRecords struct {
	Records      []models.Transaction
	LastModified time.Time
}

// Cache management. Only local files are cached; remote feeds are always
// fetched fresh.
func (l *Loader) cacheFilename(path string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(path)
	return filepath.Join(l.config.CacheDir, fmt.Sprintf("%s_%s.gob", name, cacheVersion))
}

func (l *Loader) saveToCache(records []models.Transaction) error {
	src, ok := l.source.(*fileSource)
	if !ok || l.config.CacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(l.config.CacheDir, 0755); err != nil {
		return err
	}

	file, err := os.Create(l.cacheFilename(src.path))
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(cachedRecords{Records: records, LastModified: time.Now()})
}

func (l *Loader) loadFromCache() ([]models.Transaction, bool) {
	src, ok := l.source.(*fileSource)
	if !ok || l.config.CacheDir == "" {
		return nil, false
	}

	file, err := os.Open(l.cacheFilename(src.path))
	if err != nil {
		return nil, false
	}
	defer file.Close()

	var data cachedRecords
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, false
	}

	modTime, err := src.modTime()
	if err != nil || !modTime.Before(data.LastModified) || len(data.Records) == 0 {
		return nil, false
	}
	return data.Records, true
}
