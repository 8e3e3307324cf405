package planner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidParameters = errors.New("无效的遗传算法参数")
	ErrEmptyPopulation   = errors.New("种群大小必须大于 0")
	ErrNotInitialized    = errors.New("种群尚未初始化")
	ErrConverged         = errors.New("演化已经结束")
)

// Observer 在每一代演化结束后被调用
type Observer func(run int, stats GenerationStats)

type Option func(*Planner)

// WithRand 指定随机数源，所有随机选择都从这个源中取值
func WithRand(rng *rand.Rand) Option {
	return func(p *Planner) {
		p.rng = rng
	}
}

func WithObserver(observer Observer) Option {
	return func(p *Planner) {
		p.observer = observer
	}
}

// Planner 即演化算法的外层循环
type Planner struct {
	parameters *domain.PlanningParameters
	problem    *Problem
	calculator *FitnessCalculator
	bounds     Bounds
	towersMin  int
	towersMax  int
	workers    int
	rng        *rand.Rand
	observer   Observer

	state       State
	run         int
	generation  int
	population  *Population
	history     []GenerationStats
	bestFitness float64
	stagnation  int
}

// RunResult 为一次独立运行的结果
type RunResult struct {
	Run        int
	Best       *Chromosome
	Evaluation *Evaluation
	History    []GenerationStats
}

// Outcome 为多次独立运行的结果
type Outcome struct {
	Runs  []RunResult
	Trend domain.FitnessTrend
}

// BestRun 返回所有运行中最优解适应度最高的一次
func (o *Outcome) BestRun() *RunResult {
	var best *RunResult
	for i := range o.Runs {
		if best == nil || o.Runs[i].Evaluation.Fitness > best.Evaluation.Fitness {
			best = &o.Runs[i]
		}
	}
	return best
}

func New(parameters *domain.PlanningParameters, problem *Problem, opts ...Option) (*Planner, error) {
	if err := validateParameters(parameters); err != nil {
		return nil, err
	}

	calculator, err := NewFitnessCalculator(problem, parameters)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParameters, err)
	}

	cities := len(problem.Cities)
	towersMax := parameters.TowersMax
	if towersMax <= 0 || towersMax > cities {
		towersMax = cities
	}
	towersMin := min(max(parameters.TowersMin, 1), towersMax)

	workers := parameters.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	p := &Planner{
		parameters: parameters,
		problem:    problem,
		calculator: calculator,
		bounds:     problem.Bounds(parameters),
		towersMin:  towersMin,
		towersMax:  towersMax,
		workers:    workers,
		state:      StateUninitialized,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewPCG(parameters.Seed, parameters.Seed^0x9e3779b97f4a7c15))
	}

	return p, nil
}

func validateParameters(params *domain.PlanningParameters) error {
	switch {
	case params.CrossoverRate < 0 || params.CrossoverRate > 1:
		return fmt.Errorf("%w: 交叉概率必须在 [0, 1] 之间", ErrInvalidParameters)
	case params.MutationRate < 0 || params.MutationRate > 1:
		return fmt.Errorf("%w: 变异概率必须在 [0, 1] 之间", ErrInvalidParameters)
	case params.LocationMutationStd < 0 || params.BandwidthMutationStd < 0:
		return fmt.Errorf("%w: 变异的标准差不能为负数", ErrInvalidParameters)
	case params.BandwidthMin > params.BandwidthMax:
		return fmt.Errorf("%w: 带宽下界不能大于上界", ErrInvalidParameters)
	case params.MaxGenerations < 0:
		return fmt.Errorf("%w: 最大迭代次数不能为负数", ErrInvalidParameters)
	}
	return nil
}

func (p *Planner) State() State {
	return p.state
}

func (p *Planner) Generation() int {
	return p.generation
}

func (p *Planner) Problem() *Problem {
	return p.problem
}

func (p *Planner) Calculator() *FitnessCalculator {
	return p.calculator
}

// Population 返回当前种群，尚未初始化时返回 nil
func (p *Planner) Population() *Population {
	return p.population
}

// History 返回当前运行中每一代的统计，下标 0 为初始种群
func (p *Planner) History() []GenerationStats {
	return append([]GenerationStats(nil), p.history...)
}

// Best 返回当前种群中适应度最高的染色体
func (p *Planner) Best() *Chromosome {
	if p.population == nil {
		return nil
	}
	return p.population.Best()
}

// Initialize 生成初始种群并计算适应度
func (p *Planner) Initialize(ctx context.Context) error {
	if p.parameters.PopulationSize <= 0 {
		return ErrEmptyPopulation
	}

	chromosomes := make([]*Chromosome, p.parameters.PopulationSize)
	for i := range chromosomes {
		chromosomes[i] = randomChromosome(p.rng, p.bounds, len(p.problem.Cities), p.towersMin, p.towersMax)
	}
	if err := p.evaluate(ctx, chromosomes); err != nil {
		return err
	}

	p.population = &Population{chromosomes: chromosomes}
	p.generation = 0
	p.stagnation = 0

	stats := p.population.Stats(0)
	p.history = []GenerationStats{stats}
	p.bestFitness = stats.Max
	p.state = StateInitialized

	return nil
}

// Step 演化一代：选择 -> 交叉 -> 变异 -> 计算适应度 -> (μ+λ) 替换
// 如果 ctx 被取消，本代的子代会被丢弃，种群保持不变
func (p *Planner) Step(ctx context.Context) error {
	switch p.state {
	case StateUninitialized:
		return ErrNotInitialized
	case StateConverged:
		return ErrConverged
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.state = StateEvolving

	parents := p.population.chromosomes
	mu := len(parents)

	// 选择
	selected := selectByRoulette(p.rng, parents, mu)

	// 两两交叉
	offspring := make([]*Chromosome, 0, mu)
	for i := 0; i < mu; i += 2 {
		c1, c2 := twoPointCrossover(p.rng, selected[i], selected[(i+1)%mu], p.parameters.CrossoverRate)
		offspring = append(offspring, c1)
		if len(offspring) < mu {
			offspring = append(offspring, c2)
		}
	}

	// 变异
	for _, ch := range offspring {
		mutate(p.rng, ch, p.bounds, p.parameters.MutationRate, p.parameters.LocationMutationStd, p.parameters.BandwidthMutationStd)
	}

	if err := p.evaluate(ctx, offspring); err != nil {
		return err
	}

	// 替换
	p.population = &Population{chromosomes: muPlusLambda(parents, offspring)}
	p.generation++

	stats := p.population.Stats(p.generation)
	p.history = append(p.history, stats)
	if stats.Max > p.bestFitness {
		p.bestFitness = stats.Max
		p.stagnation = 0
	} else {
		p.stagnation++
	}

	if p.observer != nil {
		p.observer(p.run, stats)
	}

	if p.generation >= p.parameters.MaxGenerations ||
		(p.parameters.StopAfterStagnation > 0 && p.stagnation >= p.parameters.StopAfterStagnation) {
		p.state = StateConverged
	}

	return nil
}

// Evolve 初始化种群（如有必要）并一直演化到结束，返回最终种群中的最优解
func (p *Planner) Evolve(ctx context.Context) (*Chromosome, error) {
	if p.state == StateUninitialized {
		if err := p.Initialize(ctx); err != nil {
			return nil, err
		}
	}

	for p.state != StateConverged {
		if p.generation >= p.parameters.MaxGenerations {
			p.state = StateConverged
			break
		}
		if err := p.Step(ctx); err != nil {
			return nil, err
		}
	}

	return p.Best(), nil
}

// Run 从全新的随机种群开始独立运行 EvolutionTimes 次
func (p *Planner) Run(ctx context.Context) (*Outcome, error) {
	times := max(p.parameters.EvolutionTimes, 1)

	outcome := &Outcome{
		Runs: make([]RunResult, 0, times),
	}
	histories := make([][]GenerationStats, 0, times)

	for run := 0; run < times; run++ {
		p.reset(run)

		best, err := p.Evolve(ctx)
		if err != nil {
			return nil, err
		}

		history := p.History()
		histories = append(histories, history)
		outcome.Runs = append(outcome.Runs, RunResult{
			Run:        run,
			Best:       best.Clone(),
			Evaluation: p.calculator.Evaluate(best),
			History:    history,
		})
	}

	outcome.Trend = aggregateTrend(histories)
	return outcome, nil
}

func (p *Planner) reset(run int) {
	p.state = StateUninitialized
	p.run = run
	p.generation = 0
	p.population = nil
	p.history = nil
	p.bestFitness = math.Inf(-1)
	p.stagnation = 0
}

// evaluate 并行计算尚未计算过适应度的染色体
// 各个染色体之间互不依赖，所有 goroutine 结束后才返回
func (p *Planner) evaluate(ctx context.Context, chromosomes []*Chromosome) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for _, ch := range chromosomes {
		if ch.evaluated {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ch.fitness = p.calculator.Fitness(ch)
			ch.evaluated = true
			return nil
		})
	}

	return g.Wait()
}
