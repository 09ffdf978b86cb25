package stages

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dcshock/passengerpipe/config"
	"github.com/dcshock/passengerpipe/dataset"
	"github.com/dcshock/passengerpipe/errs"
)

var (
	s = dataset.Str
	n = dataset.Null
)

const rawTrain = `PassengerId,Survived,Name,Age,Cabin,Embarked,Fare
1,0,"Braund, Mr. Owen Harris",22,,S,7.25
2,1,"Cumings, Mrs. John Bradley",38,C85,C,71.2833
3,1,"Heikkinen, Miss. Laina",,,S,7.925
4,1,"Futrelle, Mrs. Jacques Heath",35,C123,,53.1
`

const rawTest = `PassengerId,Name,Age,Cabin,Embarked,Fare
892,"Kelly, Mr. James",34.5,,Q,7.25
893,"Wilkes, Mrs. James",47,,S,
894,"Myles, Mr. Thomas Francis",,,Q,9.75
`

func writeRaw(t *testing.T) (trainPath, testPath string) {
	t.Helper()
	dir := t.TempDir()
	trainPath = filepath.Join(dir, "train.csv")
	testPath = filepath.Join(dir, "test.csv")
	require.NoError(t, os.WriteFile(trainPath, []byte(rawTrain), 0o644))
	require.NoError(t, os.WriteFile(testPath, []byte(rawTest), 0o644))
	return trainPath, testPath
}

func cells(t *testing.T, d *dataset.Dataset, col string) []dataset.Cell {
	t.Helper()
	c, err := d.Column(col)
	require.NoError(t, err)
	return c.Cells
}

// --- Load ---

func TestLoad(t *testing.T) {
	trainPath, testPath := writeRaw(t)
	pair, err := Load(trainPath, testPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"PassengerId", "Survived", "Name", "Age", "Cabin", "Embarked", "Fare"}, pair.Train.Names())
	assert.Equal(t, 4, pair.Train.NumRows())
	assert.Equal(t, TestName, pair.Test.Name)
	assert.Equal(t, 3, pair.Test.NumRows())
}

func TestLoad_NotFound(t *testing.T) {
	trainPath, _ := writeRaw(t)
	missing := filepath.Join(t.TempDir(), "missing.csv")

	pair, err := Load(trainPath, missing)
	assert.Nil(t, pair)
	var nf *errs.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, missing, nf.Path)

	_, err = Load(missing, trainPath)
	assert.Equal(t, errs.CodeNotFound, errs.Code(err))

	_, err = Load(t.TempDir(), trainPath)
	assert.Equal(t, errs.CodeNotFound, errs.Code(err), "a directory is not a readable file: %v", err)
}

// --- DropColumns ---

func TestDropColumns_Ingestion(t *testing.T) {
	trainPath, testPath := writeRaw(t)
	pair, err := Load(trainPath, testPath)
	require.NoError(t, err)
	trainCols, testCols := pair.Train.NumCols(), pair.Test.NumCols()

	require.NoError(t, DropColumns(pair, IngestionDrops))

	assert.Equal(t, trainCols-2, pair.Train.NumCols())
	assert.Equal(t, testCols-1, pair.Test.NumCols())
	assert.False(t, pair.Train.Has("PassengerId"))
	assert.False(t, pair.Train.Has("Survived"))
	assert.False(t, pair.Test.Has("PassengerId"))
	assert.Equal(t, 4, pair.Train.NumRows())
	assert.Equal(t, 3, pair.Test.NumRows())
	assert.Equal(t, s("Braund, Mr. Owen Harris"), cells(t, pair.Train, "Name")[0])
}

func TestDropColumns_MissingScopedColumn(t *testing.T) {
	pair := &dataset.Pair{
		Train: dataset.MustNew(TrainName, dataset.NewColumn("PassengerId", s("1"))),
		Test:  dataset.MustNew(TestName, dataset.NewColumn("PassengerId", s("2"))),
	}
	err := DropColumns(pair, IngestionDrops)
	var cnf *errs.ColumnNotFoundError
	require.ErrorAs(t, err, &cnf)
	assert.Equal(t, "Survived", cnf.Column)
	assert.Equal(t, TrainName, cnf.Dataset)
	// nothing removed
	assert.True(t, pair.Train.Has("PassengerId"))
	assert.True(t, pair.Test.Has("PassengerId"))
}

func TestDropColumns_RepeatedColumnLeavesPairIntact(t *testing.T) {
	pair := &dataset.Pair{
		Train: dataset.MustNew(TrainName, dataset.NewColumn("PassengerId", s("1")), dataset.NewColumn("Name", s("a"))),
		Test:  dataset.MustNew(TestName, dataset.NewColumn("PassengerId", s("2")), dataset.NewColumn("Name", s("b"))),
	}
	err := DropColumns(pair, []DropSpec{
		{Column: "PassengerId", Scope: Both},
		{Column: "PassengerId", Scope: TrainOnly},
	})
	var cnf *errs.ColumnNotFoundError
	require.ErrorAs(t, err, &cnf)
	assert.Equal(t, TrainName, cnf.Dataset)
	assert.Equal(t, []string{"PassengerId", "Name"}, pair.Train.Names())
	assert.Equal(t, []string{"PassengerId", "Name"}, pair.Test.Names())
}

func TestDropColumns_TestOnlyScope(t *testing.T) {
	pair := &dataset.Pair{
		Train: dataset.MustNew(TrainName, dataset.NewColumn("x", s("1"))),
		Test:  dataset.MustNew(TestName, dataset.NewColumn("x", s("2")), dataset.NewColumn("y", s("3"))),
	}
	require.NoError(t, DropColumns(pair, []DropSpec{{Column: "y", Scope: TestOnly}}))
	assert.Equal(t, []string{"x"}, pair.Test.Names())
	assert.Equal(t, "test", TestOnly.String())
}

// --- ImputeMissing ---

func imputePair(trainAge, testAge, embarked, fare []dataset.Cell) *dataset.Pair {
	rows := func(k int) []dataset.Cell { return make([]dataset.Cell, k) }
	return &dataset.Pair{
		Train: dataset.MustNew(TrainName,
			dataset.NewColumn("Age", trainAge...),
			dataset.NewColumn("Cabin", rows(len(trainAge))...),
			dataset.NewColumn("Embarked", embarked...),
			dataset.NewColumn("Fare", rows(len(trainAge))...),
		),
		Test: dataset.MustNew(TestName,
			dataset.NewColumn("Age", testAge...),
			dataset.NewColumn("Cabin", rows(len(testAge))...),
			dataset.NewColumn("Embarked", rows(len(testAge))...),
			dataset.NewColumn("Fare", fare...),
		),
	}
}

func TestImputeMissing(t *testing.T) {
	pair := imputePair(
		[]dataset.Cell{s("10"), n, s("30"), s("20")},
		[]dataset.Cell{s("1"), s("2"), n},
		[]dataset.Cell{s("S"), s("S"), s("Q"), n},
		[]dataset.Cell{s("5"), n, s("6")},
	)
	fills, err := ImputeMissing(pair)
	require.NoError(t, err)

	assert.False(t, pair.Train.Has("Cabin"))
	assert.False(t, pair.Test.Has("Cabin"))

	assert.Equal(t, []dataset.Cell{s("10"), s("20"), s("30"), s("20")}, cells(t, pair.Train, "Age"))
	assert.Equal(t, []dataset.Cell{s("1"), s("2"), s("1.5")}, cells(t, pair.Test, "Age"))
	assert.Equal(t, []dataset.Cell{s("S"), s("S"), s("Q"), s("S")}, cells(t, pair.Train, "Embarked"))
	assert.Equal(t, []dataset.Cell{s("5"), s("5.5"), s("6")}, cells(t, pair.Test, "Fare"))

	// one-sided steps leave the other side's nulls alone
	assert.Equal(t, 3, mustCol(t, pair.Test, "Embarked").NullCount())
	assert.Equal(t, 4, mustCol(t, pair.Train, "Fare").NullCount())

	require.Len(t, fills, 4)
	assert.Equal(t, Imputation{Dataset: TrainName, Column: "Embarked", Strategy: Mode, Value: "S", Filled: 1}, fills[2])
}

func mustCol(t *testing.T, d *dataset.Dataset, name string) *dataset.Column {
	t.Helper()
	c, err := d.Column(name)
	require.NoError(t, err)
	return c
}

func TestImputeMissing_MeanExample(t *testing.T) {
	pair := imputePair(
		[]dataset.Cell{s("10"), n, s("30")},
		[]dataset.Cell{s("1")},
		[]dataset.Cell{s("S"), s("S"), s("S")},
		[]dataset.Cell{s("1")},
	)
	_, err := ImputeMissing(pair)
	require.NoError(t, err)
	assert.Equal(t, []dataset.Cell{s("10"), s("20"), s("30")}, cells(t, pair.Train, "Age"))
}

func TestImputeMissing_AllNull(t *testing.T) {
	pair := imputePair(
		[]dataset.Cell{s("10")},
		[]dataset.Cell{n, n},
		[]dataset.Cell{s("S")},
		[]dataset.Cell{s("1"), s("2")},
	)
	_, err := ImputeMissing(pair)
	var ide *errs.InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, TestName, ide.Dataset)
	assert.Equal(t, "Age", ide.Column)
	// no partial mutation
	assert.True(t, pair.Train.Has("Cabin"))
}

func TestImputeMissing_AllNullMode(t *testing.T) {
	pair := imputePair(
		[]dataset.Cell{s("10")},
		[]dataset.Cell{s("1")},
		[]dataset.Cell{n},
		[]dataset.Cell{s("1")},
	)
	_, err := ImputeMissing(pair)
	assert.Equal(t, errs.CodeInsufficientData, errs.Code(err))
}

func TestImputeMissing_NonNumeric(t *testing.T) {
	pair := imputePair(
		[]dataset.Cell{s("ten")},
		[]dataset.Cell{s("1")},
		[]dataset.Cell{s("S")},
		[]dataset.Cell{s("1")},
	)
	_, err := ImputeMissing(pair)
	assert.Equal(t, errs.CodeColumnType, errs.Code(err))
}

func TestImputeMissing_MissingColumns(t *testing.T) {
	for _, tc := range []struct {
		name    string
		dataset string
		column  string
	}{
		{"cabin train", TrainName, "Cabin"},
		{"age test", TestName, "Age"},
		{"embarked train", TrainName, "Embarked"},
		{"fare test", TestName, "Fare"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			pair := imputePair(
				[]dataset.Cell{s("1")}, []dataset.Cell{s("1")},
				[]dataset.Cell{s("S")}, []dataset.Cell{s("1")},
			)
			target := pair.Train
			if tc.dataset == TestName {
				target = pair.Test
			}
			require.NoError(t, target.Drop(tc.column))

			_, err := ImputeMissing(pair)
			var cnf *errs.ColumnNotFoundError
			require.ErrorAs(t, err, &cnf)
			assert.Equal(t, tc.column, cnf.Column)
			assert.Equal(t, tc.dataset, cnf.Dataset)
		})
	}
}

func TestImputeMissing_OneSidedColumnsNotRequiredOnOtherSide(t *testing.T) {
	pair := imputePair(
		[]dataset.Cell{s("1")}, []dataset.Cell{s("1")},
		[]dataset.Cell{s("S")}, []dataset.Cell{s("1")},
	)
	require.NoError(t, pair.Train.Drop("Fare"))
	require.NoError(t, pair.Test.Drop("Embarked"))
	_, err := ImputeMissing(pair)
	require.NoError(t, err)
}

func TestColumnMode_TieGoesToSmallest(t *testing.T) {
	col := dataset.NewColumn("Embarked", s("S"), s("C"), s("S"), s("C"), n)
	mode, err := columnMode(TrainName, col)
	require.NoError(t, err)
	assert.Equal(t, "C", mode)
}

// --- SplitNameColumn ---

func TestSplitFirstComma(t *testing.T) {
	p, sfx := SplitFirstComma("Smith, John")
	assert.Equal(t, "Smith", p)
	assert.Equal(t, " John", sfx)

	p, sfx = SplitFirstComma("NoComma")
	assert.Equal(t, "", p)
	assert.Equal(t, "NoComma", sfx)

	p, sfx = SplitFirstComma("a,b,c")
	assert.Equal(t, "a", p)
	assert.Equal(t, "b,c", sfx)
}

func TestSplitNameColumn(t *testing.T) {
	pair := &dataset.Pair{
		Train: dataset.MustNew(TrainName,
			dataset.NewColumn("Pclass", s("3"), s("1"), s("2")),
			dataset.NewColumn("Name", s("Smith, John"), s("NoComma"), n),
			dataset.NewColumn("Sex", s("male"), s("female"), s("male")),
			dataset.NewColumn("Age", s("22"), s("38"), s("1")),
		),
		Test: dataset.MustNew(TestName,
			dataset.NewColumn("Name", s("Kelly, Mr. James")),
		),
	}
	require.NoError(t, SplitNameColumn(pair))

	assert.Equal(t, []string{"Pclass", "Name", "surname", "Sex", "Age"}, pair.Train.Names())
	assert.Equal(t, 2, pair.Train.Index("surname"))
	assert.Equal(t, []dataset.Cell{s("Smith"), s(""), n}, cells(t, pair.Train, "surname"))
	assert.Equal(t, []dataset.Cell{s(" John"), s("NoComma"), n}, cells(t, pair.Train, "Name"))
	assert.Equal(t, 3, pair.Train.NumRows())

	// fewer columns than the target position: appended at the end
	assert.Equal(t, []string{"Name", "surname"}, pair.Test.Names())
	assert.Equal(t, []dataset.Cell{s("Kelly")}, cells(t, pair.Test, "surname"))
}

func TestSplitNameColumn_MissingName(t *testing.T) {
	pair := &dataset.Pair{
		Train: dataset.MustNew(TrainName, dataset.NewColumn("Name", s("a, b"))),
		Test:  dataset.MustNew(TestName, dataset.NewColumn("Age", s("1"))),
	}
	err := SplitNameColumn(pair)
	var cnf *errs.ColumnNotFoundError
	require.ErrorAs(t, err, &cnf)
	assert.Equal(t, TestName, cnf.Dataset)
	// train untouched
	assert.Equal(t, []string{"Name"}, pair.Train.Names())
}

// --- Persist ---

func samplePair() *dataset.Pair {
	return &dataset.Pair{
		Train: dataset.MustNew(TrainName,
			dataset.NewColumn("Name", s(" John"), s(" Jane")),
			dataset.NewColumn("Age", s("22"), n),
		),
		Test: dataset.MustNew(TestName,
			dataset.NewColumn("Name", s(" James")),
			dataset.NewColumn("Age", s("34.5")),
		),
	}
}

func TestPersist_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data", "interim")
	pair := samplePair()

	w, err := Persist(pair, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, TrainFile), filepath.Join(dir, TestFile)}, w.Files)

	// idempotent directory creation, files overwritten
	_, err = Persist(pair, dir)
	require.NoError(t, err)

	back, err := Load(w.Files[0], w.Files[1])
	require.NoError(t, err)
	for _, pr := range [][2]*dataset.Dataset{{pair.Train, back.Train}, {pair.Test, back.Test}} {
		assert.Equal(t, pr[0].Names(), pr[1].Names())
		for i := 0; i < pr[0].NumRows(); i++ {
			assert.Equal(t, pr[0].Row(i), pr[1].Row(i))
		}
	}
}

func TestPersist_DirectoryFailure(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0o644))
	_, err := Persist(samplePair(), filepath.Join(root, "processed"))
	var we *errs.WriteError
	require.ErrorAs(t, err, &we)
	assert.Empty(t, we.Written)
}

func TestPersist_PartialWriteSurfaced(t *testing.T) {
	dir := t.TempDir()
	// a directory where the test file should go makes the second write fail
	require.NoError(t, os.Mkdir(filepath.Join(dir, TestFile), 0o755))

	_, err := Persist(samplePair(), dir)
	var we *errs.WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, filepath.Join(dir, TestFile), we.Path)
	assert.Equal(t, []string{filepath.Join(dir, TrainFile)}, we.Written)
	_, statErr := os.Stat(filepath.Join(dir, TrainFile))
	assert.NoError(t, statErr)
}

// --- Registered stages through the default pipeline definitions ---

func buildAll(t *testing.T, root string) *config.Registry {
	t.Helper()
	reg := config.NewRegistry()
	(&Set{Log: zaptest.NewLogger(t), Root: root}).Register(reg)
	return reg
}

func TestDefaultPipelines_EndToEnd(t *testing.T) {
	trainPath, testPath := writeRaw(t)
	root := filepath.Join(t.TempDir(), "data")
	reg := buildAll(t, root)

	defs := config.DefaultPipelines()
	pipelines, err := config.BuildAllPipelines(reg, defs)
	require.NoError(t, err)
	seqs, err := config.BuildAllSequences(defs, pipelines)
	require.NoError(t, err)

	params := &config.Params{TrainPath: trainPath, TestPath: testPath, Root: root}
	results, err := seqs["all"].Run(context.Background(), params, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, filepath.Join(root, ProcessedDir), results[0].(*Written).Dir)

	processed, err := Load(filepath.Join(root, ProcessedDir, TrainFile), filepath.Join(root, ProcessedDir, TestFile))
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Age", "Cabin", "Embarked", "Fare"}, processed.Train.Names())
	assert.Equal(t, []string{"Name", "Age", "Cabin", "Embarked", "Fare"}, processed.Test.Names())

	interim, err := Load(filepath.Join(root, InterimDir, TrainFile), filepath.Join(root, InterimDir, TestFile))
	require.NoError(t, err)
	assert.Equal(t, []string{"PassengerId", "Survived", "surname", "Name", "Age", "Embarked", "Fare"}, interim.Train.Names())
	assert.Equal(t, []string{"PassengerId", "Name", "surname", "Age", "Embarked", "Fare"}, interim.Test.Names())
	assert.Equal(t, 2, interim.Train.Index("surname"))
	assert.Equal(t, 2, interim.Test.Index("surname"))

	// train Age mean of 22, 38, 35; test Age mean of 34.5, 47
	assert.Equal(t, s("31.666666666666668"), cells(t, interim.Train, "Age")[2])
	assert.Equal(t, s("40.75"), cells(t, interim.Test, "Age")[2])
	assert.Equal(t, s("S"), cells(t, interim.Train, "Embarked")[3])
	assert.Equal(t, s("8.5"), cells(t, interim.Test, "Fare")[1])
	assert.Equal(t, s("Braund"), cells(t, interim.Train, "surname")[0])
	assert.Equal(t, s(" Mr. Owen Harris"), cells(t, interim.Train, "Name")[0])
}

func TestPipeline_StopsAtFirstFailure(t *testing.T) {
	trainPath, _ := writeRaw(t)
	root := filepath.Join(t.TempDir(), "data")
	reg := buildAll(t, root)
	pipelines, err := config.BuildAllPipelines(reg, config.DefaultPipelines())
	require.NoError(t, err)

	params := &config.Params{TrainPath: trainPath, TestPath: filepath.Join(t.TempDir(), "missing.csv"), Root: root}
	_, err = pipelines["ingest"].RunWithInput(context.Background(), params, nil)
	assert.Equal(t, errs.CodeNotFound, errs.Code(err))
	_, statErr := os.Stat(root)
	assert.True(t, os.IsNotExist(statErr), "persist must not run after a failed load")
}
