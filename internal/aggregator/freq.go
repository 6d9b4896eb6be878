package aggregator

import "sort"

// freqTable is a monotonically incremented counter map that remembers
// insertion order so ties stay stable when sorted by count.
type freqTable struct {
	counts map[string]int
	order  []string
}

type freqEntry struct {
	label string
	count int
}

func newFreqTable() *freqTable {
	return &freqTable{counts: make(map[string]int)}
}

func (f *freqTable) add(label string) {
	if _, ok := f.counts[label]; !ok {
		f.order = append(f.order, label)
	}
	f.counts[label]++
}

func (f *freqTable) len() int {
	return len(f.order)
}

// entries returns the table sorted by count descending, ties in first-seen
// order
func (f *freqTable) entries() []freqEntry {
	out := make([]freqEntry, 0, len(f.order))
	for _, label := range f.order {
		out = append(out, freqEntry{label: label, count: f.counts[label]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].count > out[j].count
	})
	return out
}
