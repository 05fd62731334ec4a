// Package export renders tabular documents such as report cards into downloadable formats.
package export

import "fmt"

// Document is a titled table. Every row must have one cell per header.
type Document struct {
	Title    string
	Subtitle string
	Headers  []string
	Rows     [][]string
}

func (d Document) validate() error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("document requires at least one header")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Headers) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(d.Headers))
		}
	}
	return nil
}
