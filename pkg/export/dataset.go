// Package export renders tabular data as CSV or PDF.
package export

// Dataset defines tabular export content. Rows are keyed by header.
type Dataset struct {
	Title    string
	Subtitle string
	Headers  []string
	Rows     []map[string]string
	// Summary lines are printed after the table.
	Summary []string
}

func (d Dataset) record(row map[string]string) []string {
	out := make([]string, len(d.Headers))
	for i, h := range d.Headers {
		out[i] = row[h]
	}
	return out
}
