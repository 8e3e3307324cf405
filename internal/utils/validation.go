package utils

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/planner"
)

// ParsePopulationGrid 从 CSV 中读取人口网格，每一行对应网格的一行，每个单元格是该街区的人口数
func ParsePopulationGrid(r io.Reader) ([][]int64, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("读取人口网格失败: %w", err)
	}

	grid := make([][]int64, 0, len(records))
	for i, record := range records {
		row := make([]int64, len(record))
		for j, cell := range record {
			value, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("第 %d 行第 %d 列不是整数", i+1, j+1)
			}
			row[j] = value
		}
		grid = append(grid, row)
	}

	if err := ValidatePopulationGrid(grid); err != nil {
		return nil, err
	}

	return grid, nil
}

func ValidatePopulationGrid(grid [][]int64) error {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return errors.New("人口网格不能为空")
	}

	cols := len(grid[0])
	for i, row := range grid {
		if len(row) != cols {
			return fmt.Errorf("第 %d 行的列数为 %d，与第一行的 %d 列不一致", i+1, len(row), cols)
		}
		for j, value := range row {
			if value < 0 {
				return fmt.Errorf("第 %d 行第 %d 列的人口数不能为负数", i+1, j+1)
			}
		}
	}

	return nil
}

// ParseProblemConfig 从 JSON 中读取问题配置
func ParseProblemConfig(r io.Reader) (*domain.ProblemConfig, error) {
	var cfg domain.ProblemConfig

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("读取问题配置失败: %w", err)
	}

	if err := ValidateProblemConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ValidateProblemConfig 检查 validator 标签无法表达的约束
func ValidateProblemConfig(cfg *domain.ProblemConfig) error {
	if len(cfg.UserSatisfactionLevels) == 0 {
		return errors.New("满意度阈值不能为空")
	}

	if len(cfg.UserSatisfactionLevels) != len(cfg.UserSatisfactionScores) {
		return errors.New("满意度阈值和满意度得分的数量不一致")
	}

	for i := 1; i < len(cfg.UserSatisfactionLevels); i++ {
		if cfg.UserSatisfactionLevels[i] <= cfg.UserSatisfactionLevels[i-1] {
			return fmt.Errorf("满意度阈值必须严格递增，第 %d 个阈值不大于前一个", i+1)
		}
	}

	if cfg.TowerConstructionCost < 0 || cfg.TowerMaintenanceCost < 0 {
		return errors.New("基站的建造成本和维护成本不能为负数")
	}

	return nil
}

// ValidatePlanningParameters 检查参数之间的约束，grid 为规划所用的人口网格
func ValidatePlanningParameters(params *domain.PlanningParameters, grid [][]int64) error {
	if params.BandwidthMax < params.BandwidthMin {
		return errors.New("最大带宽不能小于最小带宽")
	}

	cities := 0
	for _, row := range grid {
		cities += len(row)
	}

	if params.TowersMax > cities {
		return fmt.Errorf("基站数量上限 %d 不能超过城市数量 %d", params.TowersMax, cities)
	}

	if params.TowersMax > 0 && params.TowersMin > params.TowersMax {
		return errors.New("基站数量下限不能大于上限")
	}

	if _, err := planner.CovarianceInverse(params.Covariance); err != nil {
		return err
	}

	return nil
}
