package planner

import (
	"errors"
	"fmt"
	"math"

	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
	"gonum.org/v1/gonum/mat"
)

var ErrInvalidCovariance = errors.New("无效的协方差矩阵")

// DefaultCovariance 为覆盖率使用的默认协方差矩阵 diag(8, 8)
var DefaultCovariance = [4]float64{8, 0, 0, 8}

// FitnessCalculator 根据只读的问题数据计算染色体的适应度，本身不保存任何可变状态
type FitnessCalculator struct {
	problem           *Problem
	sigmaInv          *mat.SymDense
	satisfactionRatio float64
	costRatio         float64
	blend             domain.FitnessBlend
	boundary          domain.SatisfactionBoundary
}

// CityEvaluation 是某个城市在当前方案下的服务情况
type CityEvaluation struct {
	Tower     int
	Coverage  float64
	Bandwidth float64
	Level     float64
	Score     float64
}

// Evaluation 是对一个方案的完整评估
type Evaluation struct {
	Fitness           float64
	TotalCost         float64
	TotalSatisfaction float64
	TowerCount        int
	Cities            []CityEvaluation
}

func NewFitnessCalculator(problem *Problem, params *domain.PlanningParameters) (*FitnessCalculator, error) {
	sigmaInv, err := CovarianceInverse(params.Covariance)
	if err != nil {
		return nil, err
	}

	blend := params.Blend
	if blend == "" {
		blend = domain.BlendWeighted
	}
	boundary := params.Boundary
	if boundary == "" {
		boundary = domain.BoundaryInclusive
	}

	return &FitnessCalculator{
		problem:           problem,
		sigmaInv:          sigmaInv,
		satisfactionRatio: params.SatisfactionRatio,
		costRatio:         params.CostRatio,
		blend:             blend,
		boundary:          boundary,
	}, nil
}

// CovarianceInverse 要求协方差矩阵对称正定并返回它的逆矩阵，全零时使用 DefaultCovariance
// 非正定的矩阵会让覆盖率随距离增大而超过 1
func CovarianceInverse(covariance [4]float64) (*mat.SymDense, error) {
	if covariance == [4]float64{} {
		covariance = DefaultCovariance
	}
	if covariance[1] != covariance[2] {
		return nil, fmt.Errorf("%w: 协方差矩阵必须对称", ErrInvalidCovariance)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(mat.NewSymDense(2, covariance[:])); !ok {
		return nil, fmt.Errorf("%w: 协方差矩阵必须正定", ErrInvalidCovariance)
	}

	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCovariance, err)
	}

	return &inv, nil
}

// Coverage 计算位于 (tx, ty) 的基站对位于 (cx, cy) 的城市的覆盖率
// coverage = exp(-0.5 * d^T * Σ^-1 * d)，d = 城市 - 基站
func (c *FitnessCalculator) Coverage(tx, ty, cx, cy float64) float64 {
	d := mat.NewVecDense(2, []float64{cx - tx, cy - ty})
	return math.Exp(-0.5 * mat.Inner(d, c.sigmaInv, d))
}

// SatisfactionScore 返回不超过 level 的最高阈值对应的分数，低于最低阈值时为 0
func (c *FitnessCalculator) SatisfactionScore(level float64) float64 {
	score := 0.0
	for i, threshold := range c.problem.SatisfactionLevels {
		reached := level >= threshold
		if c.boundary == domain.BoundaryExclusive {
			reached = level > threshold
		}
		if !reached {
			break
		}
		score = c.problem.SatisfactionScores[i]
	}
	return score
}

// Fitness 计算染色体的适应度
func (c *FitnessCalculator) Fitness(ch *Chromosome) float64 {
	return c.evaluate(ch, false).Fitness
}

// Evaluate 计算染色体的适应度，并给出每个城市的服务情况
func (c *FitnessCalculator) Evaluate(ch *Chromosome) *Evaluation {
	return c.evaluate(ch, true)
}

func (c *FitnessCalculator) evaluate(ch *Chromosome, detailed bool) *Evaluation {
	cities := c.problem.Cities

	// 按基站对城市分组，统计每个基站所服务的总人口
	assigned := make([]float64, len(ch.towers))
	used := make([]bool, len(ch.towers))
	for city, idx := range ch.genes {
		assigned[idx] += cities[city].Population
		used[idx] = true
	}

	// 计算总成本
	ev := &Evaluation{}
	for idx, tower := range ch.towers {
		if !used[idx] {
			continue
		}
		ev.TowerCount++
		ev.TotalCost += c.problem.ConstructionCost + c.problem.MaintenanceCost*tower.Bandwidth
	}

	// 计算总满意度
	if detailed {
		ev.Cities = make([]CityEvaluation, len(ch.genes))
	}
	for i, idx := range ch.genes {
		city := cities[i]
		tower := ch.towers[idx]

		share := 0.0
		if assigned[idx] > 0 {
			share = city.Population / assigned[idx]
		}
		coverage := c.Coverage(tower.X, tower.Y, city.X, city.Y)
		bandwidth := coverage * share * tower.Bandwidth

		// 人口为 0 的城市对总满意度没有贡献
		level, score := 0.0, 0.0
		if city.Population > 0 {
			level = bandwidth / city.Population
			score = c.SatisfactionScore(level)
			ev.TotalSatisfaction += score * city.Population
		}

		if detailed {
			ev.Cities[i] = CityEvaluation{
				Tower:     idx,
				Coverage:  coverage,
				Bandwidth: bandwidth,
				Level:     level,
				Score:     score,
			}
		}
	}

	ev.Fitness = c.blendFitness(ev.TotalSatisfaction, ev.TotalCost)
	return ev
}

func (c *FitnessCalculator) blendFitness(satisfaction, cost float64) float64 {
	switch c.blend {
	case domain.BlendRatio:
		if cost == 0 {
			return satisfaction
		}
		return satisfaction / cost
	default:
		return c.satisfactionRatio*satisfaction - c.costRatio*cost
	}
}
