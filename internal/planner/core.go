package planner

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// randomTower 在取值范围内随机生成一座基站
func randomTower(rng *rand.Rand, b Bounds) Tower {
	return Tower{
		X:         b.MinX + rng.Float64()*(b.MaxX-b.MinX),
		Y:         b.MinY + rng.Float64()*(b.MaxY-b.MinY),
		Bandwidth: b.BandwidthMin + rng.Float64()*(b.BandwidthMax-b.BandwidthMin),
	}
}

// randomChromosome 随机初始化一个染色体
// 先随机决定基站数量并生成基站池，再为每个城市随机选择一座基站
func randomChromosome(rng *rand.Rand, b Bounds, cities, towersMin, towersMax int) *Chromosome {
	n := towersMin + rng.IntN(towersMax-towersMin+1)

	ch := &Chromosome{
		towers: make([]Tower, n),
		genes:  make([]int, cities),
	}
	for i := range ch.towers {
		ch.towers[i] = randomTower(rng, b)
	}
	for i := range ch.genes {
		ch.genes[i] = rng.IntN(n)
	}

	// 丢弃没有被任何城市选中的基站
	return ch.Clone()
}

// selectionWeights 计算每个染色体被选中的权重
// 适应度可能为负（加权差的组合方式），此时整体平移使最小值为 0；若权重全为 0 则退化为均匀分布
func selectionWeights(pop []*Chromosome) []float64 {
	weights := make([]float64, len(pop))
	for i, ch := range pop {
		weights[i] = ch.fitness
	}

	if minFit := floats.Min(weights); minFit < 0 {
		floats.AddConst(-minFit, weights)
	}

	if floats.Sum(weights) <= 0 {
		for i := range weights {
			weights[i] = 1
		}
	}

	return weights
}

// selectByRoulette 使用轮盘赌有放回地选出 k 个染色体
func selectByRoulette(rng *rand.Rand, pop []*Chromosome, k int) []*Chromosome {
	if len(pop) == 0 || k <= 0 {
		return nil
	}

	weights := selectionWeights(pop)
	cumulative := floats.CumSum(make([]float64, len(weights)), weights)
	total := cumulative[len(cumulative)-1]

	selected := make([]*Chromosome, k)
	for i := range selected {
		pick := rng.Float64() * total
		idx := sort.Search(len(cumulative), func(j int) bool {
			return cumulative[j] > pick
		})
		if idx == len(cumulative) {
			// 浮点误差导致没有找到时取最后一个
			idx = len(cumulative) - 1
		}
		selected[i] = pop[idx]
	}

	return selected
}

// twoPointCrossover 两点交叉
// 以 1 - rate 的概率直接复制两个父本；否则交换两个切点之间的片段
func twoPointCrossover(rng *rand.Rand, p1, p2 *Chromosome, rate float64) (*Chromosome, *Chromosome) {
	if len(p1.genes) != len(p2.genes) {
		// 按理来说两个染色体的长度应该能保证是相等的
		// 这里只是以防万一
		return p1.Clone(), p2.Clone()
	}

	if rng.Float64() >= rate {
		return p1.Clone(), p2.Clone()
	}

	length := len(p1.genes)
	a, b := rng.IntN(length+1), rng.IntN(length+1)
	if a > b {
		a, b = b, a
	}

	return recombine(p1, p2, a, b), recombine(p2, p1, a, b)
}

// recombine 以 outer 的 [0, a) 和 [b, end) 以及 inner 的 [a, b) 拼出新的染色体
// 对每个来源染色体分别维护 旧下标 -> 新下标 的映射，保证每座基站只被复制一次，
// 并且子代和父本、兄弟之间不会共用同一座基站
func recombine(outer, inner *Chromosome, a, b int) *Chromosome {
	child := &Chromosome{
		towers: make([]Tower, 0, len(outer.towers)),
		genes:  make([]int, len(outer.genes)),
	}

	outerMap := make(map[int]int)
	innerMap := make(map[int]int)

	for i := range child.genes {
		src, remap := outer, outerMap
		if i >= a && i < b {
			src, remap = inner, innerMap
		}

		old := src.genes[i]
		idx, exists := remap[old]
		if !exists {
			idx = len(child.towers)
			child.towers = append(child.towers, src.towers[old])
			remap[old] = idx
		}
		child.genes[i] = idx
	}

	return child
}

// mutate 变异
// 1. 每座基站以 rate 的概率对位置和带宽施加高斯扰动，并截断到取值范围内
// 2. 以 rate 的概率交换两个城市所连接的基站
func mutate(rng *rand.Rand, ch *Chromosome, b Bounds, rate, locationStd, bandwidthStd float64) {
	changed := false

	for i := range ch.towers {
		if rng.Float64() >= rate {
			continue
		}

		t := &ch.towers[i]
		t.X = b.clampX(t.X + rng.NormFloat64()*locationStd)
		t.Y = b.clampY(t.Y + rng.NormFloat64()*locationStd)
		t.Bandwidth = b.clampBandwidth(t.Bandwidth + rng.NormFloat64()*bandwidthStd)
		changed = true
	}

	if rng.Float64() < rate {
		i := rng.IntN(len(ch.genes))
		j := rng.IntN(len(ch.genes))
		ch.genes[i], ch.genes[j] = ch.genes[j], ch.genes[i]
		changed = true
	}

	if changed {
		ch.invalidate()
	}
}

// muPlusLambda 合并父代和子代，按适应度从高到低排序后保留前 len(parents) 个
func muPlusLambda(parents, offspring []*Chromosome) []*Chromosome {
	combined := make([]*Chromosome, 0, len(parents)+len(offspring))
	combined = append(combined, parents...)
	combined = append(combined, offspring...)

	slices.SortStableFunc(combined, func(x, y *Chromosome) int {
		return cmp.Compare(y.fitness, x.fitness)
	})

	return combined[:len(parents)]
}
