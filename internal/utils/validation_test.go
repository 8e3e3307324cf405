package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
)

func TestParsePopulationGrid(t *testing.T) {
	input := "# 第一行是注释\n10, 20, 30\n0,5 , 7\n"

	grid, err := ParsePopulationGrid(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{10, 20, 30}, {0, 5, 7}}, grid)
}

func TestParsePopulationGridErrors(t *testing.T) {
	cases := []struct {
		Name  string
		Input string
	}{
		{Name: "empty", Input: ""},
		{Name: "not a number", Input: "1,2\n3,x\n"},
		{Name: "ragged", Input: "1,2\n3\n"},
		{Name: "negative", Input: "1,-2\n"},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			_, err := ParsePopulationGrid(strings.NewReader(c.Input))
			assert.Error(t, err)
		})
	}
}

func TestParseProblemConfig(t *testing.T) {
	input := `{
		"tower_construction_cost": 10,
		"tower_maintenance_cost": 2.5,
		"user_satisfaction_levels": [10, 20],
		"user_satisfaction_scores": [100, 200]
	}`

	cfg, err := ParseProblemConfig(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 10.0, cfg.TowerConstructionCost)
	assert.Equal(t, 2.5, cfg.TowerMaintenanceCost)
	assert.Equal(t, []float64{10, 20}, cfg.UserSatisfactionLevels)
	assert.Equal(t, []float64{100, 200}, cfg.UserSatisfactionScores)
}

func TestParseProblemConfigErrors(t *testing.T) {
	cases := []struct {
		Name  string
		Input string
	}{
		{Name: "unknown field", Input: `{"tower_cost": 1, "user_satisfaction_levels": [1], "user_satisfaction_scores": [1]}`},
		{Name: "length mismatch", Input: `{"user_satisfaction_levels": [1, 2], "user_satisfaction_scores": [1]}`},
		{Name: "not ascending", Input: `{"user_satisfaction_levels": [2, 2], "user_satisfaction_scores": [1, 2]}`},
		{Name: "no levels", Input: `{"user_satisfaction_levels": [], "user_satisfaction_scores": []}`},
		{Name: "negative cost", Input: `{"tower_construction_cost": -1, "user_satisfaction_levels": [1], "user_satisfaction_scores": [1]}`},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			_, err := ParseProblemConfig(strings.NewReader(c.Input))
			assert.Error(t, err)
		})
	}
}

func TestValidatePlanningParameters(t *testing.T) {
	grid := [][]int64{{1, 2}, {3, 4}}
	valid := func() *domain.PlanningParameters {
		return &domain.PlanningParameters{
			BandwidthMin: 1,
			BandwidthMax: 10,
			TowersMin:    1,
			TowersMax:    4,
			Covariance:   [4]float64{8, 0, 0, 8},
		}
	}

	require.NoError(t, ValidatePlanningParameters(valid(), grid))

	cases := []struct {
		Name   string
		Modify func(*domain.PlanningParameters)
	}{
		{Name: "bandwidth", Modify: func(p *domain.PlanningParameters) { p.BandwidthMax = 0.5 }},
		{Name: "too many towers", Modify: func(p *domain.PlanningParameters) { p.TowersMax = 5 }},
		{Name: "towers range", Modify: func(p *domain.PlanningParameters) { p.TowersMin = 3; p.TowersMax = 2 }},
		{Name: "singular covariance", Modify: func(p *domain.PlanningParameters) { p.Covariance = [4]float64{1, 2, 2, 4} }},
		{Name: "negative definite covariance", Modify: func(p *domain.PlanningParameters) { p.Covariance = [4]float64{-8, 0, 0, -8} }},
		{Name: "indefinite covariance", Modify: func(p *domain.PlanningParameters) { p.Covariance = [4]float64{1, 2, 2, 1} }},
		{Name: "asymmetric covariance", Modify: func(p *domain.PlanningParameters) { p.Covariance = [4]float64{8, 1, 0, 8} }},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			params := valid()
			c.Modify(params)
			assert.Error(t, ValidatePlanningParameters(params, grid))
		})
	}
}

func TestGenerateRandomDataset(t *testing.T) {
	for i := 0; i < 20; i++ {
		dataset := GenerateRandomDataset()

		require.NoError(t, ValidatePopulationGrid(dataset.Grid))
		require.NoError(t, ValidateProblemConfig(&dataset.Problem))
		assert.NotEmpty(t, dataset.Name)
	}
}

func TestGenerateUsernameFromChineseName(t *testing.T) {
	for i := 0; i < 20; i++ {
		username := GenerateUsernameFromChineseName("张伟")
		// 拼音前缀加上 1 到 3 位数字
		assert.Regexp(t, `^z(h(a(ng?)?)?)?w(ei?)?[0-9]{1,3}$`, username)
	}
}
