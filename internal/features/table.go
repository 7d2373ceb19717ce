package features

// Table is a numeric feature matrix with named columns. Column order is
// stable across extractions so it can be compared between train and predict.
type Table struct {
	Names []string
	Rows  [][]float64

	index map[string]int
}

// NewTable builds a table over the given column names and rows
func NewTable(names []string, rows [][]float64) *Table {
	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}
	return &Table{Names: names, Rows: rows, index: index}
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Row returns a named view over row i
func (t *Table) Row(i int) Row {
	return Row{table: t, values: t.Rows[i]}
}

// Row is a single feature vector with access by column name
type Row struct {
	table  *Table
	values []float64
}

// Value returns the value of the named column, or 0 for unknown columns
func (r Row) Value(name string) float64 {
	i, ok := r.table.index[name]
	if !ok {
		return 0
	}
	return r.values[i]
}

// Values returns the raw feature vector
func (r Row) Values() []float64 {
	return r.values
}

// ToMap returns the row as a column name -> value map
func (r Row) ToMap() map[string]float64 {
	m := make(map[string]float64, len(r.table.Names))
	for i, name := range r.table.Names {
		m[name] = r.values[i]
	}
	return m
}
