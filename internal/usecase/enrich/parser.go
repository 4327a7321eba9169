package enrich

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/kailas-cloud/datahub/internal/domain"
	"github.com/kailas-cloud/datahub/internal/domain/metadata"
)

// parsed is the parser's output before it is stamped with entity and time.
type parsed struct {
	format      metadata.Format
	rowCount    int64
	columnCount int
	headers     []string
	previewRows [][]string
}

// DetectFormat maps a filename extension to a supported format. The match is
// case-insensitive; anything else is ErrUnsupportedFormat.
func DetectFormat(filename string) (metadata.Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return metadata.FormatCSV, nil
	case ".tsv":
		return metadata.FormatTSV, nil
	case ".parquet":
		return metadata.FormatParquet, nil
	default:
		return "", fmt.Errorf("file %q: %w", filename, domain.ErrUnsupportedFormat)
	}
}

// parser extracts structure from raw file bytes.
type parser struct {
	previewRows     int
	previewMaxBytes int
}

func newParser(previewRows, previewMaxBytes int) *parser {
	if previewRows <= 0 {
		previewRows = 10
	}
	if previewMaxBytes <= 0 {
		previewMaxBytes = 16 * 1024
	}
	return &parser{previewRows: previewRows, previewMaxBytes: previewMaxBytes}
}

// Parse extracts row count, column count, and preview rows. Structural
// problems in the file itself come back wrapping ErrUnparsable; those are
// permanent and must not be retried.
func (p *parser) Parse(data []byte, format metadata.Format) (parsed, error) {
	switch format {
	case metadata.FormatCSV:
		return p.parseDelimited(data, ',', format)
	case metadata.FormatTSV:
		return p.parseDelimited(data, '\t', format)
	case metadata.FormatParquet:
		return p.parseParquet(data)
	default:
		return parsed{}, fmt.Errorf("format %q: %w", format, domain.ErrUnsupportedFormat)
	}
}

// parseDelimited streams CSV/TSV, counting rows and keeping the first preview
// rows. The first record is the header.
func (p *parser) parseDelimited(data []byte, comma rune, format metadata.Format) (parsed, error) {
	text, err := decodeText(data)
	if err != nil {
		return parsed{}, fmt.Errorf("decode text: %w: %v", domain.ErrUnparsable, err)
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = comma
	r.ReuseRecord = false

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return parsed{}, fmt.Errorf("empty file: %w", domain.ErrUnparsable)
		}
		return parsed{}, fmt.Errorf("read header: %w: %v", domain.ErrUnparsable, err)
	}

	out := parsed{format: format, columnCount: len(header), headers: header}
	for {
		record, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return parsed{}, fmt.Errorf("row %d: %w: %v", out.rowCount+1, domain.ErrUnparsable, err)
		}
		if int(out.rowCount) < p.previewRows {
			out.previewRows = append(out.previewRows, record)
		}
		out.rowCount++
	}
}

// parseParquet reads counts from file metadata and the preview from the first
// row group via the generic row reader.
func (p *parser) parseParquet(data []byte) (parsed, error) {
	pf, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return parsed{}, fmt.Errorf("open parquet: %w: %v", domain.ErrUnparsable, err)
	}

	schema := pf.Schema()
	headers := make([]string, 0, len(schema.Fields()))
	for _, f := range schema.Fields() {
		headers = append(headers, f.Name())
	}

	out := parsed{
		format:      metadata.FormatParquet,
		rowCount:    pf.NumRows(),
		columnCount: len(headers),
		headers:     headers,
	}

	// Leaf column index -> position in headers; nested leaves collapse onto
	// their top-level field.
	leafToField := map[int]int{}
	for i, path := range schema.Columns() {
		if len(path) == 0 {
			continue
		}
		for fi, name := range headers {
			if path[0] == name {
				leafToField[i] = fi
			}
		}
	}

	preview, err := p.readParquetPreview(pf, len(headers), leafToField)
	if err != nil {
		return parsed{}, err
	}
	out.previewRows = preview
	return out, nil
}

func (p *parser) readParquetPreview(pf *parquet.File, width int, leafToField map[int]int) ([][]string, error) {
	preview := make([][]string, 0, p.previewRows)
	buf := make([]parquet.Row, p.previewRows)

	for _, rg := range pf.RowGroups() {
		rows := parquet.NewRowGroupReader(rg)
		for len(preview) < p.previewRows {
			n, readErr := rows.ReadRows(buf)
			for i := 0; i < n && len(preview) < p.previewRows; i++ {
				record := make([]string, width)
				for _, v := range buf[i] {
					fi, ok := leafToField[v.Column()]
					if !ok || v.IsNull() {
						continue
					}
					if record[fi] == "" {
						record[fi] = v.String()
					}
				}
				preview = append(preview, record)
			}
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return nil, fmt.Errorf("read parquet rows: %w: %v", domain.ErrUnparsable, readErr)
			}
		}
		if len(preview) >= p.previewRows {
			break
		}
	}
	return preview, nil
}

// decodeText normalizes the byte stream to UTF-8, honoring UTF-8/UTF-16 BOMs.
func decodeText(data []byte) ([]byte, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return nil, err
	}
	return out, nil
}
