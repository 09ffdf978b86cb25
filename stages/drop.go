package stages

import (
	"fmt"

	"github.com/dcshock/passengerpipe/dataset"
	"github.com/dcshock/passengerpipe/errs"
)

// Scope selects which side of a pair a column operation applies to.
type Scope int

const (
	Both Scope = iota
	TrainOnly
	TestOnly
)

func (s Scope) String() string {
	switch s {
	case Both:
		return "both"
	case TrainOnly:
		return "train"
	case TestOnly:
		return "test"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

func (s Scope) targets(p *dataset.Pair) []*dataset.Dataset {
	switch s {
	case TrainOnly:
		return []*dataset.Dataset{p.Train}
	case TestOnly:
		return []*dataset.Dataset{p.Test}
	default:
		return []*dataset.Dataset{p.Train, p.Test}
	}
}

// DropSpec names a column to remove and the side(s) it is removed from.
type DropSpec struct {
	Column string
	Scope  Scope
}

// IngestionDrops removes the identifier from both sides and the label from train.
var IngestionDrops = []DropSpec{
	{Column: "PassengerId", Scope: Both},
	{Column: "Survived", Scope: TrainOnly},
}

// DropColumns removes the columns named by specs. Every column is checked
// against the dataset(s) it is scoped to before anything is removed, so a
// ColumnNotFoundError leaves both datasets unchanged. A column named twice
// for the same dataset is reported as not found, as the second drop would be.
func DropColumns(p *dataset.Pair, specs []DropSpec) error {
	seen := make(map[*dataset.Dataset]map[string]bool, 2)
	for _, s := range specs {
		for _, d := range s.Scope.targets(p) {
			if err := d.Require(s.Column); err != nil {
				return err
			}
			if seen[d][s.Column] {
				return &errs.ColumnNotFoundError{Dataset: d.Name, Column: s.Column}
			}
			if seen[d] == nil {
				seen[d] = make(map[string]bool)
			}
			seen[d][s.Column] = true
		}
	}
	for _, s := range specs {
		for _, d := range s.Scope.targets(p) {
			if err := d.Drop(s.Column); err != nil {
				return err
			}
		}
	}
	return nil
}
