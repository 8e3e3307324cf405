package planner

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(42, 1024))
}

func testBounds() Bounds {
	return Bounds{MinX: 0, MaxX: 10, MinY: 0, MaxY: 20, BandwidthMin: 1, BandwidthMax: 5000}
}

func withFitness(values ...float64) []*Chromosome {
	pop := make([]*Chromosome, len(values))
	for i, v := range values {
		pop[i] = &Chromosome{
			towers:    []Tower{{X: float64(i)}},
			genes:     []int{0},
			fitness:   v,
			evaluated: true,
		}
	}
	return pop
}

// 检查染色体之间没有共用同一个基站池
func assertDisjointTowers(t *testing.T, a, b *Chromosome) {
	t.Helper()
	if len(a.towers) == 0 || len(b.towers) == 0 {
		return
	}
	assert.NotSame(t, &a.towers[0], &b.towers[0])
}

func TestRandomChromosomeInvariants(t *testing.T) {
	rng := testRand()
	b := testBounds()

	for i := 0; i < 200; i++ {
		ch := randomChromosome(rng, b, 12, 1, 12)
		require.NoError(t, ch.validate(12))
		assert.Equal(t, len(ch.towers), ch.TowerCount(), "基站池中不应有未被引用的基站")
		for _, tower := range ch.towers {
			assert.True(t, tower.X >= b.MinX && tower.X <= b.MaxX)
			assert.True(t, tower.Y >= b.MinY && tower.Y <= b.MaxY)
			assert.True(t, tower.Bandwidth >= b.BandwidthMin && tower.Bandwidth <= b.BandwidthMax)
		}
	}
}

func TestSelectionWeights(t *testing.T) {
	cases := []struct {
		Name     string
		Fitness  []float64
		Expected []float64
	}{
		{Name: "positive", Fitness: []float64{1, 2, 3}, Expected: []float64{1, 2, 3}},
		{Name: "negative shifted", Fitness: []float64{-5, -1, 3}, Expected: []float64{0, 4, 8}},
		{Name: "all zero uniform", Fitness: []float64{0, 0, 0}, Expected: []float64{1, 1, 1}},
		{Name: "all equal negative uniform", Fitness: []float64{-2, -2}, Expected: []float64{1, 1}},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			assert.Equal(t, c.Expected, selectionWeights(withFitness(c.Fitness...)))
		})
	}
}

func TestSelectByRouletteDistribution(t *testing.T) {
	rng := testRand()
	pop := withFitness(1, 2, 3, 4)

	const draws = 100000
	counts := make(map[*Chromosome]int)
	for _, ch := range selectByRoulette(rng, pop, draws) {
		counts[ch]++
	}

	for i, ch := range pop {
		expected := ch.fitness / 10
		actual := float64(counts[ch]) / draws
		assert.InDelta(t, expected, actual, 0.01, "chromosome %d", i)
	}
}

func TestSelectByRouletteNeverPicksZeroWeight(t *testing.T) {
	rng := testRand()
	// 平移后第一个染色体的权重为 0
	pop := withFitness(-10, 5, 7)

	for _, ch := range selectByRoulette(rng, pop, 10000) {
		assert.NotSame(t, pop[0], ch)
	}
}

func TestTwoPointCrossoverSegments(t *testing.T) {
	p1, err := NewChromosome([]Tower{{X: 1}, {X: 2}}, []int{0, 0, 1, 1, 0, 1})
	require.NoError(t, err)
	p2, err := NewChromosome([]Tower{{X: 10}, {X: 20}, {X: 30}}, []int{0, 1, 2, 0, 1, 2})
	require.NoError(t, err)

	c1 := recombine(p1, p2, 2, 4)
	c2 := recombine(p2, p1, 2, 4)

	xs := func(ch *Chromosome) []float64 {
		values := make([]float64, ch.Len())
		for i := range values {
			values[i] = ch.Tower(ch.TowerOf(i)).X
		}
		return values
	}

	assert.Equal(t, []float64{1, 1, 30, 10, 1, 2}, xs(c1))
	assert.Equal(t, []float64{10, 20, 2, 2, 20, 30}, xs(c2))

	// 同一来源中共用的基站在子代中仍然共用
	assert.Equal(t, c1.TowerOf(0), c1.TowerOf(1))
	assert.Equal(t, c1.TowerOf(0), c1.TowerOf(4))
	assert.Equal(t, c2.TowerOf(2), c2.TowerOf(3))
	// 来源不同的基站即使原下标相同也不会被合并
	assert.NotEqual(t, c1.TowerOf(3), c1.TowerOf(0))
	assert.Equal(t, 4, c1.TowerCount())
}

func TestTwoPointCrossoverAliasingIndependence(t *testing.T) {
	rng := testRand()
	b := testBounds()

	for i := 0; i < 100; i++ {
		p1 := randomChromosome(rng, b, 10, 1, 4)
		p2 := randomChromosome(rng, b, 10, 1, 4)
		p1Before := p1.Towers()
		p2Before := p2.Towers()

		c1, c2 := twoPointCrossover(rng, p1, p2, 1)
		c2Before := c2.Towers()

		for j := range c1.towers {
			c1.towers[j].X = -100
			c1.towers[j].Bandwidth = -100
		}

		assert.Equal(t, p1Before, p1.Towers())
		assert.Equal(t, p2Before, p2.Towers())
		assert.Equal(t, c2Before, c2.Towers())
		assertDisjointTowers(t, c1, p1)
		assertDisjointTowers(t, c1, p2)
		assertDisjointTowers(t, c1, c2)
	}
}

func TestTwoPointCrossoverPassThrough(t *testing.T) {
	rng := testRand()
	p1 := twoTowerChromosome(t)
	p2, err := NewChromosome([]Tower{{X: 3, Y: 3, Bandwidth: 7}}, []int{0, 0, 0, 0})
	require.NoError(t, err)

	c1, c2 := twoPointCrossover(rng, p1, p2, 0)

	assert.Equal(t, p1.Genes(), c1.Genes())
	assert.Equal(t, p1.Towers(), c1.Towers())
	assert.Equal(t, p2.Genes(), c2.Genes())
	assertDisjointTowers(t, c1, p1)
	assertDisjointTowers(t, c2, p2)
}

func TestMutateClampsToBounds(t *testing.T) {
	rng := testRand()
	b := testBounds()

	for i := 0; i < 200; i++ {
		ch := randomChromosome(rng, b, 8, 1, 8)
		mutate(rng, ch, b, 1, 1e6, 1e9)

		require.NoError(t, ch.validate(8))
		for _, tower := range ch.towers {
			assert.True(t, tower.X >= b.MinX && tower.X <= b.MaxX, "x = %f", tower.X)
			assert.True(t, tower.Y >= b.MinY && tower.Y <= b.MaxY, "y = %f", tower.Y)
			assert.True(t, tower.Bandwidth >= b.BandwidthMin && tower.Bandwidth <= b.BandwidthMax, "bw = %f", tower.Bandwidth)
		}
	}
}

func TestMutateSharedTowerMovesAllCities(t *testing.T) {
	rng := testRand()
	ch := twoTowerChromosome(t)

	mutate(rng, ch, testBounds(), 1, 0.5, 10)

	// 共用同一基站的城市看到的是同一座基站
	for city := range ch.genes {
		for other := range ch.genes {
			if ch.TowerOf(city) == ch.TowerOf(other) {
				assert.Equal(t, ch.Tower(ch.TowerOf(city)), ch.Tower(ch.TowerOf(other)))
			}
		}
	}
	_, evaluated := ch.Fitness()
	assert.False(t, evaluated)
}

func TestMutateZeroRateKeepsChromosome(t *testing.T) {
	rng := testRand()
	ch := twoTowerChromosome(t)
	ch.fitness, ch.evaluated = 12, true
	before := ch.Clone()

	mutate(rng, ch, testBounds(), 0, 1, 1)

	assert.Equal(t, before.Genes(), ch.Genes())
	assert.Equal(t, before.Towers(), ch.Towers())
	fitness, evaluated := ch.Fitness()
	assert.True(t, evaluated)
	assert.Equal(t, 12.0, fitness)
}

func TestMutateSwapKeepsTowerSet(t *testing.T) {
	rng := testRand()
	ch := twoTowerChromosome(t)
	towers := ch.Towers()

	for i := 0; i < 50; i++ {
		mutate(rng, ch, testBounds(), 1, 0, 0)
	}

	// 标准差为 0 时只有交换会生效
	assert.Equal(t, towers, ch.Towers())
	counts := map[int]int{}
	for _, idx := range ch.genes {
		counts[idx]++
	}
	assert.Equal(t, map[int]int{0: 2, 1: 2}, counts)
}

func TestMuPlusLambda(t *testing.T) {
	parents := withFitness(5, 1, 3)
	offspring := withFitness(4, 0, 6)

	next := muPlusLambda(parents, offspring)

	require.Len(t, next, 3)
	assert.Same(t, offspring[2], next[0])
	assert.Same(t, parents[0], next[1])
	assert.Same(t, offspring[0], next[2])
}

func TestMuPlusLambdaStableTies(t *testing.T) {
	parents := withFitness(1, 1)
	offspring := withFitness(1, 1)

	next := muPlusLambda(parents, offspring)

	assert.Same(t, parents[0], next[0])
	assert.Same(t, parents[1], next[1])
}

func TestCloneKeepsSharing(t *testing.T) {
	ch, err := NewChromosome([]Tower{{X: 1}, {X: 2}, {X: 3}}, []int{2, 2, 0, 2})
	require.NoError(t, err)

	// 未被引用的基站被丢弃，下标按第一次出现的顺序重排
	assert.Equal(t, []int{0, 0, 1, 0}, ch.Genes())
	assert.Equal(t, []Tower{{X: 3}, {X: 1}}, ch.Towers())

	clone := ch.Clone()
	clone.towers[0].X = math.Pi
	assert.Equal(t, 3.0, ch.Tower(0).X)
	assert.Equal(t, math.Pi, clone.Tower(clone.TowerOf(3)).X)
}

func TestNewChromosomeInvalid(t *testing.T) {
	_, err := NewChromosome([]Tower{{}}, []int{0, 1})
	assert.ErrorIs(t, err, ErrInvalidChromosome)

	_, err = NewChromosome([]Tower{{}}, nil)
	assert.ErrorIs(t, err, ErrInvalidChromosome)
}
