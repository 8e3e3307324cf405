package domain

import "time"

// CityService 描述某个城市从其所连接的基站获得的服务
type CityService struct {
	CityIndex         int     `json:"cityIndex"`
	Row               int     `json:"row"`
	Col               int     `json:"col"`
	Population        float64 `json:"population"`
	Coverage          float64 `json:"coverage"`
	Bandwidth         float64 `json:"bandwidth"`
	SatisfactionLevel float64 `json:"satisfactionLevel"`
	SatisfactionScore float64 `json:"satisfactionScore"`
}

type TowerReport struct {
	X         float64       `json:"x"`
	Y         float64       `json:"y"`
	Bandwidth float64       `json:"bandwidth"`
	Cities    []CityService `json:"cities"`
}

// PlanningReport 是一次运行得到的最优解
type PlanningReport struct {
	ID                int64         `json:"id"`
	JobID             int64         `json:"jobID"`
	Run               int           `json:"run"`
	Fitness           float64       `json:"fitness"`
	TotalCost         float64       `json:"totalCost"`
	TotalSatisfaction float64       `json:"totalSatisfaction"`
	TowerCount        int           `json:"towerCount"`
	Towers            []TowerReport `json:"towers"`
	CreatedAt         time.Time     `json:"createdAt"`
}

// FitnessTrend 是多次运行下每一代平均适应度的统计
type FitnessTrend struct {
	Average    []float64 `json:"average"`
	MinAverage []float64 `json:"minAverage"`
	MaxAverage []float64 `json:"maxAverage"`
}
