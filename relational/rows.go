package relational

import "fmt"

// Row is one result row keyed by column label.
type Row map[string]any

// Grouped holds result rows grouped by a root identifier, in first-seen
// order.
type Grouped struct {
	keys []string
	rows map[string][]Row
}

// GroupRows groups rows by the value of key. One construction fans out to
// several rows when one-to-many tables are joined. Byte slices, as returned
// by some drivers for text columns, are converted to strings.
func GroupRows(rows []Row, key string) *Grouped {
	g := &Grouped{rows: make(map[string][]Row)}
	for _, row := range rows {
		normalized := make(Row, len(row))
		for col, v := range row {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			normalized[col] = v
		}
		id := fmt.Sprint(normalized[key])
		if _, seen := g.rows[id]; !seen {
			g.keys = append(g.keys, id)
		}
		g.rows[id] = append(g.rows[id], normalized)
	}
	return g
}

// Keys returns the identifiers in first-seen order.
func (g *Grouped) Keys() []string {
	return append([]string(nil), g.keys...)
}

// Rows returns every row of id.
func (g *Grouped) Rows(id string) []Row {
	return g.rows[id]
}

// First returns the first row of id, nil when there is none.
func (g *Grouped) First(id string) Row {
	rows := g.rows[id]
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}

// Len returns the number of distinct identifiers.
func (g *Grouped) Len() int {
	return len(g.keys)
}
