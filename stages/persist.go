package stages

import (
	"os"
	"path/filepath"

	"github.com/dcshock/passengerpipe/dataset"
	"github.com/dcshock/passengerpipe/errs"
)

// Output file names inside a stage directory.
const (
	TrainFile = "train_data.csv"
	TestFile  = "test_data.csv"
)

// Written describes a completed persist.
type Written struct {
	Dir   string   `json:"dir"`
	Files []string `json:"files"`
}

// Persist creates dir if needed and writes train then test into it,
// overwriting existing files. The two writes are not atomic: when the test
// write fails the returned WriteError lists the train file as already written.
func Persist(p *dataset.Pair, dir string) (*Written, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &errs.WriteError{Path: dir, Err: err}
	}
	w := &Written{Dir: dir}
	for _, f := range []struct {
		d    *dataset.Dataset
		name string
	}{
		{p.Train, TrainFile},
		{p.Test, TestFile},
	} {
		path := filepath.Join(dir, f.name)
		if err := dataset.WriteCSVFile(path, f.d); err != nil {
			return nil, &errs.WriteError{Path: path, Written: w.Files, Err: err}
		}
		w.Files = append(w.Files, path)
	}
	return w, nil
}
