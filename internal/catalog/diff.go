package catalog

import "sort"

// Diff classifies every CarID as added, removed or changed between the
// stored catalog and a freshly parsed one. Ids present in both catalogs
// with an identical content hash are omitted entirely.
type Diff struct {
	Added   []Record      `json:"added"`
	Removed []Record      `json:"removed"`
	Changed []ChangedPair `json:"changed"`
	Totals  Totals        `json:"totals"`
}

// ChangedPair carries both sides of a hash mismatch.
type ChangedPair struct {
	Before Record `json:"before"`
	After  Record `json:"after"`
}

// Totals holds the catalog sizes, for display.
type Totals struct {
	Current int `json:"current"`
	Next    int `json:"next"`
}

// HasChanges reports whether committing the diff would write anything.
func (d Diff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Changed) > 0
}

// DiffCatalogs compares the stored catalog against a freshly parsed one.
// Pure function: no side effects, no I/O.
//
// All three lists are sorted ascending by CarID so that truncated previews
// shown to managers are stable across runs.
func DiffCatalogs(current, next Catalog) Diff {
	d := Diff{
		Added:   []Record{},
		Removed: []Record{},
		Changed: []ChangedPair{},
		Totals:  Totals{Current: len(current), Next: len(next)},
	}

	for _, id := range sortedKeys(next) {
		rec := next[id]
		prev, ok := current[id]
		switch {
		case !ok:
			d.Added = append(d.Added, rec)
		case prev.ContentHash != rec.ContentHash:
			d.Changed = append(d.Changed, ChangedPair{Before: prev, After: rec})
		}
	}

	for _, id := range sortedKeys(current) {
		if _, ok := next[id]; !ok {
			d.Removed = append(d.Removed, current[id])
		}
	}

	return d
}

func sortedKeys(c Catalog) []string {
	keys := make([]string, 0, len(c))
	for id := range c {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys
}
