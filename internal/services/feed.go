package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const defaultSheetRange = "A:D"

// Source delivers the raw rows of the transaction sheet.
type Source interface {
	Name() string
	Rows(ctx context.Context) ([][]string, error)
}

// SourceOptions carries the credentials some sources need.
type SourceOptions struct {
	GoogleAPIKey string
	HTTPClient   *http.Client
}

// NewSource picks a Source from a location string:
//
//	sheets://<spreadsheet id>[/<A1 range>]
//	gs://<bucket>/<object>
//	http(s)://... (CSV export, e.g. a gviz tqx=out:csv link)
//	anything else is a local CSV path
func NewSource(location string, opts SourceOptions) (Source, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("empty feed source")
	}

	if rest, ok := strings.CutPrefix(location, "sheets://"); ok {
		id, rng, _ := strings.Cut(rest, "/")
		if id == "" {
			return nil, fmt.Errorf("sheets source %q has no spreadsheet id", location)
		}
		if rng == "" {
			rng = defaultSheetRange
		}
		return &sheetsSource{spreadsheetID: id, readRange: rng, apiKey: opts.GoogleAPIKey}, nil
	}

	if rest, ok := strings.CutPrefix(location, "gs://"); ok {
		bucket, object, _ := strings.Cut(rest, "/")
		if bucket == "" || object == "" {
			return nil, fmt.Errorf("gcs source %q must be gs://bucket/object", location)
		}
		return &gcsSource{bucket: bucket, object: object}, nil
	}

	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		client := opts.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: 30 * time.Second}
		}
		return &httpSource{url: location, client: client}, nil
	}

	return &fileSource{path: location}, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

type fileSource struct {
	path string
}

func (s *fileSource) Name() string { return s.path }

func (s *fileSource) Rows(ctx context.Context) ([][]string, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return readCSV(file)
}

func (s *fileSource) modTime() (time.Time, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

type httpSource struct {
	url    string
	client *http.Client
}

func (s *httpSource) Name() string { return s.url }

func (s *httpSource) Rows(ctx context.Context) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed: unexpected status %s", resp.Status)
	}
	return readCSV(resp.Body)
}

type sheetsSource struct {
	spreadsheetID string
	readRange     string
	apiKey        string
}

func (s *sheetsSource) Name() string {
	return "sheets://" + s.spreadsheetID + "/" + s.readRange
}

func (s *sheetsSource) Rows(ctx context.Context) ([][]string, error) {
	var opts []option.ClientOption
	if s.apiKey != "" {
		opts = append(opts, option.WithAPIKey(s.apiKey))
	}

	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	resp, err := srv.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet %s: %w", s.spreadsheetID, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, values := range resp.Values {
		row := make([]string, len(values))
		for i, cell := range values {
			row[i] = fmt.Sprint(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type gcsSource struct {
	bucket string
	object string
}

func (s *gcsSource) Name() string { return "gs://" + s.bucket + "/" + s.object }

func (s *gcsSource) Rows(ctx context.Context) ([][]string, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	return readCSV(r)
}
