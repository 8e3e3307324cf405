package planner

import "math"

// Tower 即基因：一座基站的位置和带宽
type Tower struct {
	X         float64
	Y         float64
	Bandwidth float64
}

// Chromosome: 一种完整的基站部署方案
//
// towers 是染色体私有的基站池，基站的身份就是它在池中的下标。
// genes[city] 为该城市所连接的基站下标，多个城市连接同一个下标即表示共用同一座基站。
type Chromosome struct {
	towers    []Tower
	genes     []int
	fitness   float64
	evaluated bool
}

// City 为人口网格中的一个单元
type City struct {
	Row        int
	Col        int
	X          float64
	Y          float64
	Population float64
}

// Bounds 为基站位置和带宽的取值范围
type Bounds struct {
	MinX         float64
	MaxX         float64
	MinY         float64
	MaxY         float64
	BandwidthMin float64
	BandwidthMax float64
}

func (b Bounds) clampX(x float64) float64 {
	return math.Min(math.Max(x, b.MinX), b.MaxX)
}

func (b Bounds) clampY(y float64) float64 {
	return math.Min(math.Max(y, b.MinY), b.MaxY)
}

func (b Bounds) clampBandwidth(bw float64) float64 {
	return math.Min(math.Max(bw, b.BandwidthMin), b.BandwidthMax)
}

// GenerationStats 为一代种群适应度的统计
type GenerationStats struct {
	Generation int     `json:"generation"`
	Average    float64 `json:"average"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
}

type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateEvolving
	StateConverged
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateEvolving:
		return "evolving"
	case StateConverged:
		return "converged"
	default:
		return "unknown"
	}
}
