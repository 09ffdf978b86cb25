package stages

import (
	"errors"
	"io/fs"

	"github.com/dcshock/passengerpipe/dataset"
	"github.com/dcshock/passengerpipe/errs"
)

// Dataset names used for the two sides of a pair.
const (
	TrainName = "train"
	TestName  = "test"
)

// Load reads the train and test files fully into memory. If either path does
// not resolve to a readable file the result is a NotFoundError and neither
// dataset is returned.
func Load(trainPath, testPath string) (*dataset.Pair, error) {
	train, err := loadOne(TrainName, trainPath)
	if err != nil {
		return nil, err
	}
	test, err := loadOne(TestName, testPath)
	if err != nil {
		return nil, err
	}
	return &dataset.Pair{Train: train, Test: test}, nil
}

func loadOne(name, path string) (*dataset.Dataset, error) {
	d, err := dataset.ReadCSVFile(name, path)
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		// open failures and reads of non-files (directories) alike
		return nil, &errs.NotFoundError{Path: path, Err: err}
	}
	return d, err
}
