package planner

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
)

func testProblemConfig() domain.ProblemConfig {
	return domain.ProblemConfig{
		TowerConstructionCost:  10,
		TowerMaintenanceCost:   10,
		UserSatisfactionLevels: []float64{10, 20, 30},
		UserSatisfactionScores: []float64{100, 200, 300},
	}
}

// 城市 (0,0) (0,1) (1,0) (1,1)，人口 10 20 30 40
func testProblem(t *testing.T) *Problem {
	t.Helper()

	problem, err := NewProblem([][]int64{{10, 20}, {30, 40}}, testProblemConfig())
	require.NoError(t, err)
	return problem
}

func testCalculator(t *testing.T, problem *Problem, params *domain.PlanningParameters) *FitnessCalculator {
	t.Helper()

	calc, err := NewFitnessCalculator(problem, params)
	require.NoError(t, err)
	return calc
}

// 基站 A 服务城市 0 和 2，基站 B 服务城市 1 和 3
func twoTowerChromosome(t *testing.T) *Chromosome {
	t.Helper()

	ch, err := NewChromosome([]Tower{
		{X: 0.5, Y: 0.75, Bandwidth: 1000},
		{X: 0.4, Y: 0.8, Bandwidth: 3000},
	}, []int{0, 1, 0, 1})
	require.NoError(t, err)
	return ch
}

func TestFitnessWeightedScenario(t *testing.T) {
	problem := testProblem(t)
	calc := testCalculator(t, problem, &domain.PlanningParameters{
		SatisfactionRatio: 100,
		CostRatio:         1,
		Blend:             domain.BlendWeighted,
	})

	ev := calc.Evaluate(twoTowerChromosome(t))

	// 城市 0: 23.76 -> 200，城市 1: 49.38 -> 300，城市 2: 23.76 -> 200，城市 3: 48.77 -> 300
	assert.Equal(t, 2, ev.TowerCount)
	assert.Equal(t, 40020.0, ev.TotalCost)
	assert.Equal(t, 26000.0, ev.TotalSatisfaction)
	assert.Equal(t, 2559980.0, ev.Fitness)

	expectedLevels := []float64{23.762164168235586, 49.37889002469407, 23.762164168235586, 48.76549560141664}
	for i, ce := range ev.Cities {
		assert.InDelta(t, expectedLevels[i], ce.Level, 1e-9, "city %d", i)
	}
}

func TestFitnessRatioBlend(t *testing.T) {
	problem := testProblem(t)
	calc := testCalculator(t, problem, &domain.PlanningParameters{Blend: domain.BlendRatio})

	assert.InDelta(t, 26000.0/40020.0, calc.Fitness(twoTowerChromosome(t)), 1e-12)
}

func TestFitnessRatioBlendZeroCost(t *testing.T) {
	cfg := testProblemConfig()
	cfg.TowerConstructionCost = 0
	cfg.TowerMaintenanceCost = 0
	problem, err := NewProblem([][]int64{{10, 20}, {30, 40}}, cfg)
	require.NoError(t, err)

	calc := testCalculator(t, problem, &domain.PlanningParameters{Blend: domain.BlendRatio})
	ev := calc.Evaluate(twoTowerChromosome(t))

	assert.Equal(t, 0.0, ev.TotalCost)
	assert.Equal(t, ev.TotalSatisfaction, ev.Fitness)
}

func TestCoverage(t *testing.T) {
	calc := testCalculator(t, testProblem(t), &domain.PlanningParameters{})

	assert.Equal(t, 1.0, calc.Coverage(1, 2, 1, 2))
	assert.InDelta(t, math.Exp(-0.5*(9.0+16.0)/8), calc.Coverage(0, 0, 3, 4), 1e-12)
	assert.Greater(t, calc.Coverage(0, 0, 1, 0), calc.Coverage(0, 0, 2, 0))
}

func TestCoverageCustomCovariance(t *testing.T) {
	calc := testCalculator(t, testProblem(t), &domain.PlanningParameters{Covariance: [4]float64{2, 0, 0, 4}})

	assert.InDelta(t, math.Exp(-0.5*(1.0/2+4.0/4)), calc.Coverage(0, 0, 1, 2), 1e-12)
}

func TestInvalidCovariance(t *testing.T) {
	cases := []struct {
		Name       string
		Covariance [4]float64
	}{
		{Name: "singular", Covariance: [4]float64{1, 1, 1, 1}},
		{Name: "negative definite", Covariance: [4]float64{-8, 0, 0, -8}},
		{Name: "indefinite", Covariance: [4]float64{1, 2, 2, 1}},
		{Name: "asymmetric", Covariance: [4]float64{8, 1, 0, 8}},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			_, err := NewFitnessCalculator(testProblem(t), &domain.PlanningParameters{Covariance: c.Covariance})
			assert.ErrorIs(t, err, ErrInvalidCovariance)
		})
	}
}

func TestCoverageDecaysWithDistance(t *testing.T) {
	calc := testCalculator(t, testProblem(t), &domain.PlanningParameters{Covariance: [4]float64{4, 1, 1, 3}})

	for _, dir := range [][2]float64{{1, 0}, {0, 1}, {1, 1}, {1, -1}} {
		prev := calc.Coverage(0, 0, 0, 0)
		assert.Equal(t, 1.0, prev)
		for step := 1.0; step <= 5; step++ {
			coverage := calc.Coverage(0, 0, dir[0]*step, dir[1]*step)
			assert.Less(t, coverage, prev)
			prev = coverage
		}
	}
}

func TestSatisfactionScoreBoundary(t *testing.T) {
	cases := []struct {
		Name     string
		Boundary domain.SatisfactionBoundary
		Level    float64
		Expected float64
	}{
		{Name: "below lowest", Boundary: domain.BoundaryInclusive, Level: 9.99, Expected: 0},
		{Name: "inclusive at threshold", Boundary: domain.BoundaryInclusive, Level: 10, Expected: 100},
		{Name: "inclusive between", Boundary: domain.BoundaryInclusive, Level: 25, Expected: 200},
		{Name: "inclusive at highest", Boundary: domain.BoundaryInclusive, Level: 30, Expected: 300},
		{Name: "inclusive above highest", Boundary: domain.BoundaryInclusive, Level: 1e9, Expected: 300},
		{Name: "exclusive at lowest", Boundary: domain.BoundaryExclusive, Level: 10, Expected: 0},
		{Name: "exclusive at middle", Boundary: domain.BoundaryExclusive, Level: 20, Expected: 100},
		{Name: "exclusive above highest", Boundary: domain.BoundaryExclusive, Level: 30.5, Expected: 300},
	}

	problem := testProblem(t)
	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			calc := testCalculator(t, problem, &domain.PlanningParameters{Boundary: c.Boundary})
			assert.Equal(t, c.Expected, calc.SatisfactionScore(c.Level))
		})
	}
}

func TestFitnessZeroPopulationTower(t *testing.T) {
	problem, err := NewProblem([][]int64{{0, 0}, {30, 40}}, testProblemConfig())
	require.NoError(t, err)

	calc := testCalculator(t, problem, &domain.PlanningParameters{SatisfactionRatio: 1, CostRatio: 1})

	// 基站 0 只服务人口为 0 的城市
	ch, err := NewChromosome([]Tower{
		{X: 0, Y: 0, Bandwidth: 100},
		{X: 1, Y: 0.5, Bandwidth: 5000},
	}, []int{0, 0, 1, 1})
	require.NoError(t, err)

	ev := calc.Evaluate(ch)
	assert.False(t, math.IsNaN(ev.Fitness))
	assert.Equal(t, 0.0, ev.Cities[0].Bandwidth)
	assert.Equal(t, 0.0, ev.Cities[1].Score)
	assert.Equal(t, 2, ev.TowerCount)
}

func TestReport(t *testing.T) {
	problem := testProblem(t)
	calc := testCalculator(t, problem, &domain.PlanningParameters{SatisfactionRatio: 100, CostRatio: 1})

	report := calc.Report(twoTowerChromosome(t))

	assert.Equal(t, 2559980.0, report.Fitness)
	assert.Equal(t, 2, report.TowerCount)
	require.Len(t, report.Towers, 2)

	assert.Equal(t, 1000.0, report.Towers[0].Bandwidth)
	require.Len(t, report.Towers[0].Cities, 2)
	assert.Equal(t, 0, report.Towers[0].Cities[0].CityIndex)
	assert.Equal(t, 2, report.Towers[0].Cities[1].CityIndex)
	assert.Equal(t, 1, report.Towers[0].Cities[1].Row)
	assert.Equal(t, 0, report.Towers[0].Cities[1].Col)

	assert.Equal(t, 3000.0, report.Towers[1].Bandwidth)
	assert.Equal(t, 300.0, report.Towers[1].Cities[1].SatisfactionScore)
}

func TestNewProblemErrors(t *testing.T) {
	cfg := testProblemConfig()

	_, err := NewProblem(nil, cfg)
	assert.ErrorIs(t, err, ErrInvalidProblem)

	_, err = NewProblem([][]int64{{1, 2}, {3}}, cfg)
	assert.ErrorIs(t, err, ErrInvalidProblem)

	_, err = NewProblem([][]int64{{1, -2}}, cfg)
	assert.ErrorIs(t, err, ErrInvalidProblem)

	unsorted := testProblemConfig()
	unsorted.UserSatisfactionLevels = []float64{10, 5, 30}
	_, err = NewProblem([][]int64{{1}}, unsorted)
	assert.ErrorIs(t, err, ErrInvalidProblem)

	duplicated := testProblemConfig()
	duplicated.UserSatisfactionLevels = []float64{10, 20, 20}
	_, err = NewProblem([][]int64{{1}}, duplicated)
	assert.ErrorIs(t, err, ErrInvalidProblem)

	mismatch := testProblemConfig()
	mismatch.UserSatisfactionScores = []float64{100}
	_, err = NewProblem([][]int64{{1}}, mismatch)
	assert.ErrorIs(t, err, ErrInvalidProblem)
}
