package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esmirror/internal/domain"
	logpkg "github.com/kailas-cloud/esmirror/internal/logger"
	"github.com/kailas-cloud/esmirror/internal/metrics"
)

// batch is the record list of one index/type pair, in file order.
type batch struct {
	index   string
	typ     string
	records []domain.Record
}

// Service feeds bulk-load files of the form {index: {type: [record, ...]}}
// through the bulk-insert path.
type Service struct {
	writer  RecordWriter
	baseDir string
}

// New creates a loader. Relative paths resolve against the directory of the
// running executable unless WithBaseDir overrides it.
func New(writer RecordWriter) *Service {
	return &Service{writer: writer, baseDir: executableDir()}
}

// WithBaseDir sets the directory relative load paths resolve against.
func (s *Service) WithBaseDir(dir string) *Service {
	if dir != "" {
		s.baseDir = dir
	}
	return s
}

// Resolve returns the absolute location a load path refers to.
func (s *Service) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.baseDir, path)
}

// Load parses the file at path and writes every record list in file order.
// A missing path fails with *domain.InvalidFileError and a malformed file with a
// parse error, both before any write is issued. A failing write aborts the load
// without rollback.
func (s *Service) Load(ctx context.Context, path string) (domain.LoadStats, error) {
	resolved := s.Resolve(path)

	info, err := os.Stat(resolved)
	if err != nil || !info.Mode().IsRegular() {
		return domain.LoadStats{}, domain.NewInvalidFile(resolved)
	}

	f, err := os.Open(filepath.Clean(resolved))
	if err != nil {
		return domain.LoadStats{}, fmt.Errorf("open %s: %w", resolved, err)
	}
	defer func() { _ = f.Close() }()

	batches, err := decode(json.NewDecoder(f))
	if err != nil {
		return domain.LoadStats{}, fmt.Errorf("parse %s: %w", resolved, err)
	}

	log := logpkg.FromContext(ctx).With(zap.String("file", resolved))

	var stats domain.LoadStats
	lastIndex := ""
	for i, b := range batches {
		if i == 0 || b.index != lastIndex {
			stats.Indices++
			lastIndex = b.index
		}
		stats.Types++

		ids, err := s.writer.PutRecords(ctx, b.index, b.typ, b.records)
		stats.Records += len(ids)
		metrics.LoadedRecordsTotal.Add(float64(len(ids)))
		if err != nil {
			log.Warn("bulk load aborted",
				zap.String("index", b.index),
				zap.String("type", b.typ),
				zap.Int("written", stats.Records),
				zap.Error(err),
			)
			return stats, fmt.Errorf("load %s/%s: %w", b.index, b.typ, err)
		}
	}

	log.Info("bulk load finished",
		zap.Int("indices", stats.Indices),
		zap.Int("types", stats.Types),
		zap.Int("records", stats.Records),
	)
	return stats, nil
}

// decode reads {index: {type: [record, ...]}} keeping the key order of the file.
func decode(dec *json.Decoder) ([]batch, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var out []batch
	for dec.More() {
		index, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if err := expectDelim(dec, '{'); err != nil {
			return nil, fmt.Errorf("index %q: %w", index, err)
		}
		for dec.More() {
			typ, err := readKey(dec)
			if err != nil {
				return nil, err
			}
			var records []domain.Record
			if err := dec.Decode(&records); err != nil {
				return nil, fmt.Errorf("index %q type %q: %w", index, typ, err)
			}
			out = append(out, batch{index: index, typ: typ, records: records})
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return out, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}
