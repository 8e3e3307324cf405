package planner

import (
	"errors"
	"fmt"

	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
)

var ErrInvalidProblem = errors.New("无效的问题数据")

// Problem 是一次规划过程中只读的数据：城市的位置、人口以及成本和满意度的配置
type Problem struct {
	Cities             []City
	Rows               int
	Cols               int
	ConstructionCost   float64
	MaintenanceCost    float64
	SatisfactionLevels []float64
	SatisfactionScores []float64
}

// NewProblem 将人口网格按行优先展开为城市，第 i 行第 j 列的城市位于 (i, j)
func NewProblem(grid [][]int64, cfg domain.ProblemConfig) (*Problem, error) {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return nil, fmt.Errorf("%w: 人口网格为空", ErrInvalidProblem)
	}

	cols := len(grid[0])
	cities := make([]City, 0, len(grid)*cols)
	for i, row := range grid {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: 第 %d 行有 %d 列，应为 %d 列", ErrInvalidProblem, i+1, len(row), cols)
		}
		for j, population := range row {
			if population < 0 {
				return nil, fmt.Errorf("%w: 第 %d 行第 %d 列的人口为负数", ErrInvalidProblem, i+1, j+1)
			}
			cities = append(cities, City{
				Row:        i,
				Col:        j,
				X:          float64(i),
				Y:          float64(j),
				Population: float64(population),
			})
		}
	}

	levels := cfg.UserSatisfactionLevels
	scores := cfg.UserSatisfactionScores
	if len(levels) == 0 {
		return nil, fmt.Errorf("%w: 满意度阈值为空", ErrInvalidProblem)
	}
	if len(levels) != len(scores) {
		return nil, fmt.Errorf("%w: 满意度阈值有 %d 个，分数有 %d 个", ErrInvalidProblem, len(levels), len(scores))
	}
	for i := 1; i < len(levels); i++ {
		if levels[i] <= levels[i-1] {
			return nil, fmt.Errorf("%w: 满意度阈值必须严格递增", ErrInvalidProblem)
		}
	}
	if cfg.TowerConstructionCost < 0 || cfg.TowerMaintenanceCost < 0 {
		return nil, fmt.Errorf("%w: 成本不能为负数", ErrInvalidProblem)
	}

	return &Problem{
		Cities:             cities,
		Rows:               len(grid),
		Cols:               cols,
		ConstructionCost:   cfg.TowerConstructionCost,
		MaintenanceCost:    cfg.TowerMaintenanceCost,
		SatisfactionLevels: append([]float64(nil), levels...),
		SatisfactionScores: append([]float64(nil), scores...),
	}, nil
}

// Bounds 返回基站位置和带宽的取值范围，位置范围为 [0, 行数] x [0, 列数]
func (p *Problem) Bounds(params *domain.PlanningParameters) Bounds {
	return Bounds{
		MinX:         0,
		MaxX:         float64(p.Rows),
		MinY:         0,
		MaxY:         float64(p.Cols),
		BandwidthMin: params.BandwidthMin,
		BandwidthMax: params.BandwidthMax,
	}
}
