package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBundledDataset(t *testing.T) {
	dataset, err := LoadDataset("", "data/blocks_population.csv", "data/problem_config.json")
	require.NoError(t, err)

	assert.Equal(t, "blocks_population", dataset.Name)
	assert.Equal(t, 8, dataset.Rows())
	assert.Equal(t, 8, dataset.Cols())
	assert.Equal(t, int64(120), dataset.Grid[0][0])
	assert.Len(t, dataset.Problem.UserSatisfactionLevels, 5)
}

func TestLoadDatasetInvalidGrid(t *testing.T) {
	dir := t.TempDir()
	gridFile := filepath.Join(dir, "grid.csv")
	require.NoError(t, os.WriteFile(gridFile, []byte("1,2\n3\n"), 0o644))

	_, err := LoadDataset("bad", gridFile, "data/problem_config.json")
	assert.Error(t, err)
}

func TestLoadDatasetMissingFile(t *testing.T) {
	_, err := LoadDataset("missing", filepath.Join(t.TempDir(), "none.csv"), "data/problem_config.json")
	assert.Error(t, err)
}
