package db

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/nickyhof/CommitView/core"
)

// ExportView writes the rows of view to path as CSV or JSON, chosen by the
// path's extension.
func ExportView(ctx context.Context, view core.ViewHandle, path string, cfg *S3Config, fs afero.Fs) (err error) {
	columns, err := view.Columns(ctx)
	if err != nil {
		return err
	}
	rows, err := view.Rows(ctx)
	if err != nil {
		return err
	}

	w, err := CreateSink(ctx, path, cfg, fs)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()

	data := &core.Data{Columns: columns, Rows: rows}
	if core.FormatForPath(path) == core.FormatCSV {
		return writeCSV(w, data)
	}
	return json.NewEncoder(w).Encode(data.Records())
}

func writeCSV(w io.Writer, data *core.Data) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(data.Columns); err != nil {
		return err
	}
	record := make([]string, len(data.Columns))
	for _, row := range data.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = core.FormatValue(row[i])
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
