package chart

// Library is an ordered chart collection with a selection cursor.
type Library struct {
	charts   []*Chart
	selected int
}

// NewLibrary creates a library selecting the first chart.
func NewLibrary(charts []*Chart) *Library {
	return &Library{charts: charts}
}

// Len returns the number of charts.
func (l *Library) Len() int {
	return len(l.charts)
}

// Current returns the selected chart, or nil when the library is empty.
func (l *Library) Current() *Chart {
	if len(l.charts) == 0 {
		return nil
	}
	return l.charts[l.selected]
}

// Index returns the selection cursor.
func (l *Library) Index() int {
	return l.selected
}

// Next selects the following chart, wrapping to the first.
func (l *Library) Next() *Chart {
	if len(l.charts) == 0 {
		return nil
	}
	l.selected = (l.selected + 1) % len(l.charts)
	return l.Current()
}

// Prev selects the preceding chart, wrapping to the last.
func (l *Library) Prev() *Chart {
	if len(l.charts) == 0 {
		return nil
	}
	l.selected = (l.selected - 1 + len(l.charts)) % len(l.charts)
	return l.Current()
}

// Titles returns every chart title in library order.
func (l *Library) Titles() []string {
	titles := make([]string, len(l.charts))
	for i, c := range l.charts {
		titles[i] = c.Title
	}
	return titles
}
