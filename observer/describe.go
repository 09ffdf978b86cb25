package observer

import (
	"github.com/dcshock/passengerpipe/dataset"
	"github.com/dcshock/passengerpipe/stages"
)

// rowCounts returns per-dataset row counts for stage values that carry data.
// Other values (the run Params, a Written result) yield nil.
func rowCounts(v interface{}) map[string]int {
	pair, ok := v.(*dataset.Pair)
	if !ok || pair == nil {
		return nil
	}
	out := make(map[string]int, 2)
	if pair.Train != nil {
		out[stages.TrainName] = pair.Train.NumRows()
	}
	if pair.Test != nil {
		out[stages.TestName] = pair.Test.NumRows()
	}
	return out
}

// summary is the JSON-friendly form of a stage value stored by RunStore.
// Datasets are reduced to their shapes; the cells are never persisted.
func summary(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case *dataset.Pair:
		return t.Shapes()
	case *stages.Written:
		return t
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = summary(e)
		}
		return out
	default:
		return v
	}
}
