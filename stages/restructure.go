package stages

import (
	"strings"

	"github.com/dcshock/passengerpipe/dataset"
)

// SurnamePosition is the absolute column index the surname column is moved to.
const SurnamePosition = 2

// SplitNameColumn splits Name on its first comma in both datasets. The text
// before the comma becomes a new surname column at SurnamePosition; the text
// after it (leading space kept) replaces Name. A value without a comma yields
// an empty surname and keeps Name as is. Null names stay null on both sides.
func SplitNameColumn(p *dataset.Pair) error {
	if err := p.Each(func(d *dataset.Dataset) error { return d.Require("Name") }); err != nil {
		return err
	}
	return p.Each(splitName)
}

func splitName(d *dataset.Dataset) error {
	name, err := d.Column("Name")
	if err != nil {
		return err
	}
	surname := &dataset.Column{Name: "surname", Cells: make([]dataset.Cell, name.Len())}
	for i, c := range name.Cells {
		if !c.Valid {
			continue
		}
		prefix, suffix := SplitFirstComma(c.Value)
		surname.Cells[i] = dataset.Str(prefix)
		name.Cells[i] = dataset.Str(suffix)
	}
	if d.Has("surname") {
		if _, err := d.Pop("surname"); err != nil {
			return err
		}
	}
	return d.Insert(SurnamePosition, surname)
}

// SplitFirstComma returns the text before and after the first comma in s.
// Without a comma the prefix is empty and the suffix is s.
func SplitFirstComma(s string) (prefix, suffix string) {
	before, after, found := strings.Cut(s, ",")
	if !found {
		return "", s
	}
	return before, after
}
