package planner

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Population 为一代的种群
type Population struct {
	chromosomes []*Chromosome
}

func (p *Population) Len() int {
	return len(p.chromosomes)
}

// Chromosomes 返回种群中的染色体，调用方不应修改返回的染色体
func (p *Population) Chromosomes() []*Chromosome {
	return append([]*Chromosome(nil), p.chromosomes...)
}

// Best 返回适应度最高的染色体，种群为空时返回 nil
func (p *Population) Best() *Chromosome {
	var best *Chromosome
	for _, ch := range p.chromosomes {
		if best == nil || ch.fitness > best.fitness {
			best = ch
		}
	}
	return best
}

func (p *Population) fitnesses() []float64 {
	values := make([]float64, len(p.chromosomes))
	for i, ch := range p.chromosomes {
		values[i] = ch.fitness
	}
	return values
}

// Stats 统计当前种群适应度的平均值、最小值和最大值
func (p *Population) Stats(generation int) GenerationStats {
	stats := GenerationStats{Generation: generation}
	if len(p.chromosomes) == 0 {
		return stats
	}

	values := p.fitnesses()
	stats.Average = stat.Mean(values, nil)
	stats.Min = floats.Min(values)
	stats.Max = floats.Max(values)
	return stats
}
