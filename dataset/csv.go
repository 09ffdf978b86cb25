package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// utf8BOM is skipped at the start of input; spreadsheet exports often carry it.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// nullMarkers are the field values read as missing data. An empty field is
// always missing.
var nullMarkers = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"NaN":  true,
	"nan":  true,
	"NULL": true,
	"null": true,
}

// IsNullMarker reports whether a raw CSV field denotes a missing value.
func IsNullMarker(s string) bool { return nullMarkers[s] }

// ReadCSV reads a comma-separated table with a header row. Column order and
// header names are preserved exactly; a leading UTF-8 byte order mark is dropped.
func ReadCSV(name string, r io.Reader) (*Dataset, error) {
	br := bufio.NewReader(r)
	if prefix, _ := br.Peek(len(utf8BOM)); bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	reader := csv.NewReader(br)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("read %s: missing header row", name)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	cols := make([]*Column, len(header))
	for i, h := range header {
		cols[i] = &Column{Name: h}
	}
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// csv.Reader enforces a constant field count per record.
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		for i, field := range rec {
			if IsNullMarker(field) {
				cols[i].Cells = append(cols[i].Cells, Null)
			} else {
				cols[i].Cells = append(cols[i].Cells, Str(field))
			}
		}
	}
	return New(name, cols...)
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(name, path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(name, f)
}

// WriteCSV writes the header and all rows, without a row index column.
// Null cells are written as empty fields.
func WriteCSV(w io.Writer, d *Dataset) error {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)
	if err := cw.Write(d.Names()); err != nil {
		return err
	}
	record := make([]string, d.NumCols())
	for i := 0; i < d.NumRows(); i++ {
		for j, cell := range d.Row(i) {
			record[j] = cell.Value
			if !cell.Valid {
				record[j] = ""
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteCSVFile creates or truncates path and writes d to it.
func WriteCSVFile(path string, d *Dataset) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := WriteCSV(f, d); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
