package seed

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/repository"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/utils"
)

const (
	DefaultGridFile    = "./internal/seed/data/blocks_population.csv"
	DefaultProblemFile = "./internal/seed/data/problem_config.json"
)

// LoadDataset 从人口网格 CSV 和问题配置 JSON 中读取数据集，name 为空时使用网格文件名
func LoadDataset(name, gridFile, problemFile string) (*domain.Dataset, error) {
	gf, err := os.Open(gridFile)
	if err != nil {
		return nil, err
	}
	defer gf.Close()

	grid, err := utils.ParsePopulationGrid(gf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", gridFile, err)
	}

	pf, err := os.Open(problemFile)
	if err != nil {
		return nil, err
	}
	defer pf.Close()

	problem, err := utils.ParseProblemConfig(pf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", problemFile, err)
	}

	if name == "" {
		name = strings.TrimSuffix(filepath.Base(gridFile), filepath.Ext(gridFile))
	}

	return &domain.Dataset{
		Name:        name,
		Description: fmt.Sprintf("由 %s 导入", filepath.Base(gridFile)),
		Grid:        grid,
		Problem:     *problem,
	}, nil
}

func SeedRealData(r *repository.Repository, name, gridFile, problemFile string) {
	dataset, err := LoadDataset(name, gridFile, problemFile)
	if err != nil {
		slog.Error("读取数据集失败", "error", err)
		return
	}

	if err := r.CreateDataset(dataset); err != nil {
		slog.Error("插入数据集失败", "error", err)
		return
	}

	slog.Info("插入数据集成功", "id", dataset.ID, "name", dataset.Name, "rows", dataset.Rows(), "cols", dataset.Cols())
}
