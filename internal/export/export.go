package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/roach88/blinkwatch/internal/record"
	"github.com/roach88/blinkwatch/internal/store"
)

// File names written by Export.
const (
	IntervalsFile = "intervals.parquet"
	AveragesFile  = "averages.parquet"
)

// Source reads the logs to export. *store.Store satisfies it.
type Source interface {
	Snapshot(ctx context.Context) (store.Snapshot, error)
}

// Result describes one export.
type Result struct {
	IntervalsPath string `json:"intervals_path"`
	AveragesPath  string `json:"averages_path"`
	Intervals     int    `json:"intervals"`
	Averages      int    `json:"averages"`
}

// Export writes IntervalsFile and AveragesFile into dir, creating it if
// needed. Existing files are replaced.
func Export(ctx context.Context, src Source, dir string) (Result, error) {
	snap, err := src.Snapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read logs: %w", err)
	}
	intervals, averages := snap.Intervals, snap.Averages

	if err := os.MkdirAll(dir, 0755); err != nil {
		return Result{}, fmt.Errorf("create directory: %w", err)
	}

	res := Result{
		IntervalsPath: filepath.Join(dir, IntervalsFile),
		AveragesPath:  filepath.Join(dir, AveragesFile),
	}

	intervalRows := make([]IntervalRow, len(intervals))
	for i := range intervals {
		intervalRows[i] = IntervalToRow(&intervals[i])
	}
	if res.Intervals, err = writeFile(res.IntervalsPath, intervalRows); err != nil {
		return Result{}, err
	}

	averageRows := make([]AverageRow, len(averages))
	for i := range averages {
		averageRows[i] = AverageToRow(&averages[i])
	}
	if res.Averages, err = writeFile(res.AveragesPath, averageRows); err != nil {
		return Result{}, err
	}

	return res, nil
}

// writeFile writes rows to a zstd-compressed Parquet file.
func writeFile[T any](path string, rows []T) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	writer := parquet.NewGenericWriter[T](f, parquet.Compression(&parquet.Zstd))

	n, err := writer.Write(rows)
	if err != nil {
		writer.Close()
		f.Close()
		return 0, fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}

	if err := writer.Close(); err != nil {
		f.Close()
		return 0, fmt.Errorf("close writer: %w", err)
	}
	return n, f.Close()
}

// readFile reads every row of a Parquet file.
func readFile[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[T](f)
	defer reader.Close()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return rows[:n], nil
}

// ReadIntervals loads an intervals file written by Export.
func ReadIntervals(path string) ([]record.IntervalEntry, error) {
	rows, err := readFile[IntervalRow](path)
	if err != nil {
		return nil, err
	}
	out := make([]record.IntervalEntry, len(rows))
	for i := range rows {
		out[i] = RowToInterval(&rows[i])
	}
	return out, nil
}

// ReadAverages loads an averages file written by Export.
func ReadAverages(path string) ([]record.AverageEntry, error) {
	rows, err := readFile[AverageRow](path)
	if err != nil {
		return nil, err
	}
	out := make([]record.AverageEntry, len(rows))
	for i := range rows {
		out[i] = RowToAverage(&rows[i])
	}
	return out, nil
}
