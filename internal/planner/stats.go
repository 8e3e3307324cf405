package planner

import (
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// aggregateTrend 汇总多次运行中每一代的平均适应度
// 提前停止的运行比其他运行短，某一代只统计到达该代的运行
func aggregateTrend(histories [][]GenerationStats) domain.FitnessTrend {
	generations := 0
	for _, history := range histories {
		generations = max(generations, len(history))
	}

	trend := domain.FitnessTrend{
		Average:    make([]float64, generations),
		MinAverage: make([]float64, generations),
		MaxAverage: make([]float64, generations),
	}

	averages := make([]float64, 0, len(histories))
	for g := 0; g < generations; g++ {
		averages = averages[:0]
		for _, history := range histories {
			if g < len(history) {
				averages = append(averages, history[g].Average)
			}
		}

		trend.Average[g] = stat.Mean(averages, nil)
		trend.MinAverage[g] = floats.Min(averages)
		trend.MaxAverage[g] = floats.Max(averages)
	}

	return trend
}
