package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
)

func TestWriteResultToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	res := result{
		BestRun: 2,
		Trend:   domain.FitnessTrend{Average: []float64{1, 2}},
	}

	require.NoError(t, writeResult(path, res))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded result
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 2, decoded.BestRun)
	assert.Equal(t, []float64{1, 2}, decoded.Trend.Average)
}

func TestWriteResultMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "result.json")

	assert.Error(t, writeResult(path, result{}))
}
