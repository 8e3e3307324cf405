package planner

import "github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"

// Report 根据染色体生成最优解报告，基站按照第一次被城市引用的顺序排列
func (c *FitnessCalculator) Report(ch *Chromosome) *domain.PlanningReport {
	ev := c.Evaluate(ch)

	report := &domain.PlanningReport{
		Fitness:           ev.Fitness,
		TotalCost:         ev.TotalCost,
		TotalSatisfaction: ev.TotalSatisfaction,
		TowerCount:        ev.TowerCount,
		Towers:            make([]domain.TowerReport, 0, ev.TowerCount),
	}

	// 基站下标 -> 报告中的位置
	positions := make(map[int]int, ev.TowerCount)
	for city, ce := range ev.Cities {
		pos, exists := positions[ce.Tower]
		if !exists {
			tower := ch.towers[ce.Tower]
			pos = len(report.Towers)
			positions[ce.Tower] = pos
			report.Towers = append(report.Towers, domain.TowerReport{
				X:         tower.X,
				Y:         tower.Y,
				Bandwidth: tower.Bandwidth,
				Cities:    make([]domain.CityService, 0),
			})
		}

		info := c.problem.Cities[city]
		report.Towers[pos].Cities = append(report.Towers[pos].Cities, domain.CityService{
			CityIndex:         city,
			Row:               info.Row,
			Col:               info.Col,
			Population:        info.Population,
			Coverage:          ce.Coverage,
			Bandwidth:         ce.Bandwidth,
			SatisfactionLevel: ce.Level,
			SatisfactionScore: ce.Score,
		})
	}

	return report
}

// Reports 为每次运行的最优解生成报告，顺序与运行序号一致
func (o *Outcome) Reports(c *FitnessCalculator) []*domain.PlanningReport {
	reports := make([]*domain.PlanningReport, 0, len(o.Runs))
	for _, run := range o.Runs {
		report := c.Report(run.Best)
		report.Run = run.Run
		reports = append(reports, report)
	}
	return reports
}
