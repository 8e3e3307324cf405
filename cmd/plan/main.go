package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/planner"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/seed"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/utils"
)

// result 是命令行输出的 JSON 结构
type result struct {
	Parameters domain.PlanningParameters `json:"parameters"`
	BestRun    int                       `json:"bestRun"`
	Reports    []*domain.PlanningReport  `json:"reports"`
	Trend      domain.FitnessTrend       `json:"trend"`
}

func main() {
	var gridFile string
	var problemFile string
	var outFile string
	var seedValue uint64
	var runs int
	var verbose bool

	flag.StringVar(&gridFile, "grid", seed.DefaultGridFile, "人口网格 CSV 文件")
	flag.StringVar(&problemFile, "config", seed.DefaultProblemFile, "问题配置 JSON 文件")
	flag.StringVar(&outFile, "out", "", "结果输出文件，为空时输出到标准输出")
	flag.Uint64Var(&seedValue, "seed", 0, "随机数种子，为 0 时使用当前时间")
	flag.IntVar(&runs, "runs", 0, "独立运行的次数，为 0 时使用 PLANNER_EVOLUTION_TIMES")
	flag.BoolVar(&verbose, "v", false, "输出每一代的统计信息")
	flag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	// 日志输出到标准错误，标准输出留给结果
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	pc, err := config.LoadPlannerConfig()
	if err != nil {
		logger.Error("无法读取配置", "error", err)
		os.Exit(1)
	}

	dataset, err := seed.LoadDataset("", gridFile, problemFile)
	if err != nil {
		logger.Error("无法读取数据集", "error", err)
		os.Exit(1)
	}

	params := pc.PlanningParameters()
	if runs > 0 {
		params.EvolutionTimes = runs
	}
	params.Seed = seedValue
	if params.Seed == 0 {
		params.Seed = uint64(time.Now().UnixNano())
	}
	if err := utils.ValidatePlanningParameters(&params, dataset.Grid); err != nil {
		logger.Error("参数不合法", "error", err)
		os.Exit(1)
	}

	problem, err := planner.NewProblem(dataset.Grid, dataset.Problem)
	if err != nil {
		logger.Error("问题配置不合法", "error", err)
		os.Exit(1)
	}

	observer := func(run int, stats planner.GenerationStats) {
		logger.Debug("完成一代演化", "run", run, "generation", stats.Generation, "average", stats.Average, "min", stats.Min, "max", stats.Max)
		if stats.Generation == params.MaxGenerations {
			logger.Info("完成一次运行", "run", run, "best_fitness", stats.Max)
		}
	}

	p, err := planner.New(&params, problem, planner.WithObserver(observer))
	if err != nil {
		logger.Error("无法创建规划器", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("开始规划", "rows", dataset.Rows(), "cols", dataset.Cols(), "runs", params.EvolutionTimes, "seed", params.Seed)
	start := time.Now()

	outcome, err := p.Run(ctx)
	if err != nil {
		logger.Error("规划失败", "error", err)
		stop()
		os.Exit(1)
	}

	best := outcome.BestRun()
	logger.Info("规划完成", "duration", time.Since(start), "best_run", best.Run, "best_fitness", best.Evaluation.Fitness, "towers", best.Evaluation.TowerCount)

	res := result{
		Parameters: params,
		BestRun:    best.Run,
		Reports:    outcome.Reports(p.Calculator()),
		Trend:      outcome.Trend,
	}
	if err := writeResult(outFile, res); err != nil {
		logger.Error("无法输出结果", "error", err)
		stop()
		os.Exit(1)
	}
}

// writeResult 将结果写到 path，path 为空时写到标准输出，写入文件时关闭失败也视为写入失败
func writeResult(path string, res result) (err error) {
	if path == "" {
		return encodeResult(os.Stdout, res)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	return encodeResult(f, res)
}

func encodeResult(w io.Writer, res result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
