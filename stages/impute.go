package stages

import (
	"sort"
	"strconv"

	"github.com/dcshock/passengerpipe/dataset"
	"github.com/dcshock/passengerpipe/errs"
)

// Strategy names the statistic used to fill a column.
type Strategy string

const (
	Mean Strategy = "mean"
	Mode Strategy = "mode"
)

// Imputation records one fill operation.
type Imputation struct {
	Dataset  string
	Column   string
	Strategy Strategy
	Value    string
	Filled   int
}

// ImputeMissing applies the preprocessing missing-value policy:
//
//  1. Cabin is dropped from both datasets.
//  2. Age nulls are filled with each dataset's own mean.
//  3. Embarked nulls are filled with the train mode, in train only.
//  4. Fare nulls are filled with the test mean, in test only.
//
// Steps 3 and 4 are one-sided on purpose; downstream consumers rely on the
// test Embarked and train Fare columns keeping their nulls.
//
// Required columns are checked on both sides before anything changes.
func ImputeMissing(p *dataset.Pair) ([]Imputation, error) {
	if err := p.Each(func(d *dataset.Dataset) error { return d.Require("Cabin", "Age") }); err != nil {
		return nil, err
	}
	if err := p.Train.Require("Embarked"); err != nil {
		return nil, err
	}
	if err := p.Test.Require("Fare"); err != nil {
		return nil, err
	}

	// Statistics are computed before mutating so a failure leaves the pair intact.
	type fill struct {
		d        *dataset.Dataset
		column   string
		strategy Strategy
	}
	plan := []fill{
		{p.Train, "Age", Mean},
		{p.Test, "Age", Mean},
		{p.Train, "Embarked", Mode},
		{p.Test, "Fare", Mean},
	}
	values := make([]string, len(plan))
	for i, f := range plan {
		col, _ := f.d.Column(f.column)
		var err error
		switch f.strategy {
		case Mean:
			values[i], err = columnMean(f.d.Name, col)
		case Mode:
			values[i], err = columnMode(f.d.Name, col)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := p.Each(func(d *dataset.Dataset) error { return d.Drop("Cabin") }); err != nil {
		return nil, err
	}
	out := make([]Imputation, 0, len(plan))
	for i, f := range plan {
		col, _ := f.d.Column(f.column)
		out = append(out, Imputation{
			Dataset:  f.d.Name,
			Column:   f.column,
			Strategy: f.strategy,
			Value:    values[i],
			Filled:   FillNull(col, values[i]),
		})
	}
	return out, nil
}

// FillNull replaces every null cell of col with v and returns how many were filled.
func FillNull(col *dataset.Column, v string) int {
	n := 0
	for i := range col.Cells {
		if col.IsNull(i) {
			col.Set(i, v)
			n++
		}
	}
	return n
}

// columnMean returns the mean of the non-null values, formatted with the
// shortest representation that round-trips.
func columnMean(ds string, col *dataset.Column) (string, error) {
	vals, err := col.Floats(ds)
	if err != nil {
		return "", err
	}
	if len(vals) == 0 {
		return "", &errs.InsufficientDataError{Dataset: ds, Column: col.Name, Statistic: string(Mean)}
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return strconv.FormatFloat(sum/float64(len(vals)), 'f', -1, 64), nil
}

// columnMode returns the most frequent non-null value. Ties go to the
// smallest value in sort order.
func columnMode(ds string, col *dataset.Column) (string, error) {
	counts := make(map[string]int)
	for _, c := range col.Cells {
		if c.Valid {
			counts[c.Value]++
		}
	}
	if len(counts) == 0 {
		return "", &errs.InsufficientDataError{Dataset: ds, Column: col.Name, Statistic: string(Mode)}
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best, nil
}
