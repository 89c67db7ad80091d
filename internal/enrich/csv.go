package enrich

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"unicode/utf8"
)

// csv filter expressions
const (
	exprColumnCount = "columnCount"
	exprRowCount    = "rowCount"
	exprHeader      = "header"
)

type csvParser struct {
	delimiter rune
	header    bool
	filters   map[string]string
}

func newCSVParser(options map[string]any, filters map[string]string) (*csvParser, error) {
	p := &csvParser{delimiter: ',', header: true, filters: filters}

	if raw, ok := options["delimiter"]; ok {
		s, isString := raw.(string)
		if !isString || utf8.RuneCountInString(s) != 1 {
			return nil, fmt.Errorf("csv: delimiter must be a single character")
		}
		p.delimiter, _ = utf8.DecodeRuneInString(s)
	}
	if raw, ok := options["header"]; ok {
		header, isBool := raw.(bool)
		if !isBool {
			return nil, fmt.Errorf("csv: header must be a boolean")
		}
		p.header = header
	}

	for field, expr := range filters {
		switch expr {
		case exprColumnCount, exprRowCount, exprHeader:
		default:
			return nil, fmt.Errorf("csv: unknown filter expression %q for %s", expr, field)
		}
	}
	return p, nil
}

func (p *csvParser) Fields() []string {
	return sortedKeys(p.filters)
}

func (p *csvParser) Parse(body []byte) (*Result, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.Comma = p.delimiter
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}

	columns := 0
	if len(rows) > 0 {
		columns = len(rows[0])
	}
	dataRows := len(rows)
	var header []any
	if p.header && len(rows) > 0 {
		dataRows--
		header = make([]any, 0, len(rows[0]))
		for _, h := range rows[0] {
			header = append(header, h)
		}
	}

	filters := make(map[string]any, len(p.filters))
	for field, expr := range p.filters {
		switch expr {
		case exprColumnCount:
			filters[field] = columns
		case exprRowCount:
			filters[field] = dataRows
		case exprHeader:
			filters[field] = header
		}
	}

	return &Result{Data: rows, Filters: filters}, nil
}
