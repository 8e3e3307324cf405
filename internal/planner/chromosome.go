package planner

import (
	"errors"
	"fmt"
)

var ErrInvalidChromosome = errors.New("无效的染色体")

// NewChromosome 根据基站池和城市到基站的分配构建染色体，未被任何城市引用的基站会被丢弃
func NewChromosome(towers []Tower, genes []int) (*Chromosome, error) {
	if len(genes) == 0 {
		return nil, fmt.Errorf("%w: 城市数量为 0", ErrInvalidChromosome)
	}
	for city, idx := range genes {
		if idx < 0 || idx >= len(towers) {
			return nil, fmt.Errorf("%w: 城市 %d 引用了不存在的基站 %d", ErrInvalidChromosome, city, idx)
		}
	}

	src := &Chromosome{towers: towers, genes: genes}
	return src.Clone(), nil
}

// Len 返回染色体的长度，即城市数量
func (ch *Chromosome) Len() int {
	return len(ch.genes)
}

// TowerCount 返回染色体中实际被引用的基站数量
func (ch *Chromosome) TowerCount() int {
	seen := make([]bool, len(ch.towers))
	cnt := 0
	for _, idx := range ch.genes {
		if !seen[idx] {
			seen[idx] = true
			cnt++
		}
	}
	return cnt
}

// Tower 返回基站池中下标为 idx 的基站
func (ch *Chromosome) Tower(idx int) Tower {
	return ch.towers[idx]
}

// TowerOf 返回城市 city 所连接的基站下标
func (ch *Chromosome) TowerOf(city int) int {
	return ch.genes[city]
}

// Towers 返回基站池的副本
func (ch *Chromosome) Towers() []Tower {
	return append([]Tower(nil), ch.towers...)
}

// Genes 返回城市到基站下标的分配的副本
func (ch *Chromosome) Genes() []int {
	return append([]int(nil), ch.genes...)
}

// Fitness 返回缓存的适应度，第二个返回值表示是否已经计算过
func (ch *Chromosome) Fitness() (float64, bool) {
	return ch.fitness, ch.evaluated
}

// Clone 深拷贝染色体
// 每个被引用的基站只会被复制一次，原来共用同一座基站的城市在副本中仍然共用同一个新基站
func (ch *Chromosome) Clone() *Chromosome {
	clone := &Chromosome{
		towers:    make([]Tower, 0, len(ch.towers)),
		genes:     make([]int, len(ch.genes)),
		fitness:   ch.fitness,
		evaluated: ch.evaluated,
	}

	remap := make(map[int]int, len(ch.towers))
	for city, idx := range ch.genes {
		newIdx, exists := remap[idx]
		if !exists {
			newIdx = len(clone.towers)
			clone.towers = append(clone.towers, ch.towers[idx])
			remap[idx] = newIdx
		}
		clone.genes[city] = newIdx
	}

	return clone
}

// validate 检查染色体的不变式：长度等于城市数量，每个位置都引用了合法的基站
func (ch *Chromosome) validate(cities int) error {
	if len(ch.genes) != cities {
		return fmt.Errorf("%w: 长度为 %d，城市数量为 %d", ErrInvalidChromosome, len(ch.genes), cities)
	}
	for city, idx := range ch.genes {
		if idx < 0 || idx >= len(ch.towers) {
			return fmt.Errorf("%w: 城市 %d 引用了不存在的基站 %d", ErrInvalidChromosome, city, idx)
		}
	}
	return nil
}

func (ch *Chromosome) invalidate() {
	ch.evaluated = false
	ch.fitness = 0
}
