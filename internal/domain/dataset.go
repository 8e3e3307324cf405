package domain

import "time"

// ProblemConfig 对应问题配置文件中的字段
type ProblemConfig struct {
	TowerConstructionCost  float64   `json:"tower_construction_cost" validate:"min=0"`
	TowerMaintenanceCost   float64   `json:"tower_maintenance_cost" validate:"min=0"`
	UserSatisfactionLevels []float64 `json:"user_satisfaction_levels" validate:"required,min=1,dive,min=0"`
	UserSatisfactionScores []float64 `json:"user_satisfaction_scores" validate:"required,min=1,eqfield=UserSatisfactionLevels"`
}

// Dataset 表示一个街区人口网格以及对应的问题配置
type Dataset struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Grid        [][]int64     `json:"grid"`
	Problem     ProblemConfig `json:"problem"`
	CreatedAt   time.Time     `json:"createdAt"`
	Version     int32         `json:"-"`
}

func (d *Dataset) Rows() int {
	return len(d.Grid)
}

func (d *Dataset) Cols() int {
	if len(d.Grid) == 0 {
		return 0
	}
	return len(d.Grid[0])
}

// DatasetSummary 是不带人口网格的数据集信息
type DatasetSummary struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Rows        int       `json:"rows"`
	Cols        int       `json:"cols"`
	CreatedAt   time.Time `json:"createdAt"`
}
