package export

// Dataset defines tabular export content.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
	// Summary lines are rendered after the table, in order.
	Summary []SummaryLine
}

// SummaryLine is a labelled value printed below the table.
type SummaryLine struct {
	Label string
	Value string
}

// Renderer turns a dataset into a downloadable document.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}
