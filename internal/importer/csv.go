package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
	"time"
)

// row is one CSV record keyed by its header column.
type row struct {
	file   string
	line   int
	fields map[string]string
}

func (r row) str(col string) string {
	return strings.TrimSpace(r.fields[col])
}

func (r row) parseInt64(col string) (int64, error) {
	v, err := strconv.ParseInt(r.str(col), 10, 64)
	if err != nil {
		return 0, r.errorf("column %s: %v", col, err)
	}
	return v, nil
}

func (r row) parseInt(col string) (int, error) {
	v, err := strconv.Atoi(r.str(col))
	if err != nil {
		return 0, r.errorf("column %s: %v", col, err)
	}
	return v, nil
}

// parseTime parses pub_date values such as 2019-09-24T21:08:21.567Z.
func (r row) parseTime(col string) (time.Time, error) {
	v := r.str(col)
	if v == "" {
		return time.Time{}, r.errorf("column %s is empty", col)
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, r.errorf("column %s: %v", col, err)
	}
	return t.UTC(), nil
}

func (r row) errorf(format string, args ...any) error {
	return fmt.Errorf("%s:%d: %s", r.file, r.line, fmt.Sprintf(format, args...))
}

// readCSV loads name from fsys. A missing file yields no rows and
// fs.ErrNotExist so callers can decide whether it is optional.
func readCSV(fsys fs.FS, name string, required ...string) ([]row, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	for _, col := range required {
		if !contains(header, col) {
			return nil, fmt.Errorf("%s: missing column %q", name, col)
		}
	}

	var rows []row
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, line, err)
		}
		fields := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				fields[col] = rec[i]
			}
		}
		rows = append(rows, row{file: name, line: line, fields: fields})
	}
	return rows, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
