// Package ingest turns uploaded files into the shapes the table layer
// normalizes: an ordered record table, a record sequence, a single
// record, or raw text.
package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"

	"github.com/shpitdev/reshape/pkg/table"
)

// MaxFileSize caps uploads at 50 MiB.
const MaxFileSize = 50 << 20

// Extensions lists the supported file extensions in the order they are
// advertised to callers.
var Extensions = []string{".csv", ".json", ".html", ".htm", ".pdf", ".docx", ".txt"}

// Result holds one parsed payload. Exactly one field is set; Table is
// used when the source carries a meaningful column order.
type Result struct {
	Table   *table.Table
	Records []table.Row
	Record  table.Row
	Text    string
}

// Value returns the populated shape for table.Normalize.
func (r Result) Value() any {
	switch {
	case r.Table != nil:
		return r.Table
	case r.Records != nil:
		return r.Records
	case r.Record != nil:
		return r.Record
	default:
		return r.Text
	}
}

// Normalize converts the payload into a table.
func (r Result) Normalize() (*table.Table, error) {
	return table.Normalize(r.Value())
}

// Parse routes data by the filename's extension.
func Parse(filename string, data []byte) (Result, error) {
	if len(data) > MaxFileSize {
		return Result{}, fmt.Errorf("file exceeds the %d MiB limit", MaxFileSize>>20)
	}
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		t, err := table.ReadCSV(bytes.NewReader(data))
		if err != nil {
			return Result{}, fmt.Errorf("parse CSV: %w", err)
		}
		return Result{Table: t}, nil
	case ".json":
		return parseJSON(data)
	case ".html", ".htm":
		return parseHTML(data)
	case ".pdf":
		return parsePDF(data)
	case ".docx":
		return parseDOCX(data)
	case ".txt":
		return Result{Text: string(data)}, nil
	default:
		return Result{}, fmt.Errorf("unsupported file format %q (supported: %s)",
			ext, strings.Join(Extensions, ", "))
	}
}

func parseJSON(data []byte) (Result, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Result{}, fmt.Errorf("parse JSON: %w", err)
	}
	switch x := v.(type) {
	case []any:
		records, ok := jsonRecords(x)
		if !ok {
			return Result{Text: strings.TrimSpace(string(data))}, nil
		}
		return Result{Records: records}, nil
	case map[string]any:
		return Result{Record: jsonRow(x)}, nil
	case string:
		return Result{Text: x}, nil
	default:
		return Result{Text: strings.TrimSpace(string(data))}, nil
	}
}

// jsonRecords converts an array of objects. Any non-object element makes
// the whole payload raw text instead.
func jsonRecords(items []any) ([]table.Row, bool) {
	records := make([]table.Row, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		records = append(records, jsonRow(obj))
	}
	return records, true
}

func jsonRow(obj map[string]any) table.Row {
	row := make(table.Row, len(obj))
	for k, v := range obj {
		row[k] = jsonCell(v)
	}
	return row
}

// jsonCell maps a decoded JSON value onto the cell types the table
// supports. Nested objects and arrays keep their JSON text.
func jsonCell(v any) any {
	switch x := v.(type) {
	case nil, bool, string:
		return x
	case json.Number:
		s := x.String()
		if !strings.ContainsAny(s, ".eE") {
			if n, err := x.Int64(); err == nil {
				return n
			}
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return s
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	}
}

// parseHTML extracts the first <table>. Headers come from th cells, or
// from the first row when the table has none. Pages without a table
// fall back to their visible text.
func parseHTML(data []byte) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("parse HTML: %w", err)
	}
	tbl := doc.Find("table").First()
	if tbl.Length() == 0 {
		return Result{Text: strings.TrimSpace(doc.Text())}, nil
	}

	var headers []string
	tbl.Find("th").Each(func(_ int, th *goquery.Selection) {
		headers = append(headers, headerName(th.Text(), len(headers)))
	})

	var rows []table.Row
	tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.Find("th").Length() > 0 {
			return
		}
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return
		}
		if len(headers) == 0 {
			cells.Each(func(_ int, td *goquery.Selection) {
				headers = append(headers, headerName(td.Text(), len(headers)))
			})
			return
		}
		row := make(table.Row, len(headers))
		cells.Each(func(i int, td *goquery.Selection) {
			if i < len(headers) {
				row[headers[i]] = table.ParseCell(strings.TrimSpace(td.Text()))
			}
		})
		rows = append(rows, row)
	})

	if len(headers) == 0 {
		return Result{Text: strings.TrimSpace(doc.Text())}, nil
	}
	return Result{Table: table.FromParts(headers, rows)}, nil
}

func headerName(text string, idx int) string {
	name := strings.TrimSpace(text)
	if name == "" {
		name = fmt.Sprintf("col%d", idx+1)
	}
	return name
}

// parsePDF extracts plain text. Only text-based PDFs yield content;
// scanned documents come back empty since no OCR is performed.
func parsePDF(data []byte) (Result, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("open PDF: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return Result{}, fmt.Errorf("extract PDF text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return Result{}, fmt.Errorf("extract PDF text: %w", err)
	}
	return Result{Text: strings.TrimSpace(buf.String())}, nil
}

// parseDOCX reads word/document.xml out of the zip container and joins
// paragraph text with newlines.
func parseDOCX(data []byte) (Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("open DOCX: %w", err)
	}
	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return Result{}, errors.New("DOCX has no word/document.xml")
	}
	rc, err := doc.Open()
	if err != nil {
		return Result{}, fmt.Errorf("open DOCX body: %w", err)
	}
	defer rc.Close()

	var (
		b      strings.Builder
		inText bool
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("parse DOCX body: %w", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(el)
			}
		}
	}
	return Result{Text: strings.TrimSpace(b.String())}, nil
}
