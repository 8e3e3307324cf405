package repository

import (
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
)

// InsertPlanningResults 在一个事务中写入任务每次运行的最优解以及适应度趋势，之前的结果会被覆盖
func (r *Repository) InsertPlanningResults(jobID int64, reports []*domain.PlanningReport, trend *domain.FitnessTrend) error {
	ctx, cancel := r.txContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 先将之前的结果删除，基站和城市会被级联删除
	query := `DELETE FROM planning_reports WHERE job_id = $1`
	if _, err := tx.ExecContext(ctx, query, jobID); err != nil {
		return err
	}
	query = `DELETE FROM planning_trends WHERE job_id = $1`
	if _, err := tx.ExecContext(ctx, query, jobID); err != nil {
		return err
	}

	for _, report := range reports {
		report.JobID = jobID

		query := `
			INSERT INTO planning_reports (job_id, run, fitness, total_cost, total_satisfaction, tower_count)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at
		`

		args := []any{jobID, report.Run, report.Fitness, report.TotalCost, report.TotalSatisfaction, report.TowerCount}
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&report.ID, &report.CreatedAt); err != nil {
			return err
		}

		for position, tower := range report.Towers {
			query := `
				INSERT INTO planning_report_towers (report_id, position, x, y, bandwidth)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id
			`

			var towerID int64
			if err := tx.QueryRowContext(ctx, query, report.ID, position, tower.X, tower.Y, tower.Bandwidth).Scan(&towerID); err != nil {
				return err
			}

			for _, city := range tower.Cities {
				query := `
					INSERT INTO planning_report_tower_cities (
						tower_id, city_index, row, col, population, coverage, bandwidth, satisfaction_level, satisfaction_score
					)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				`

				args := []any{towerID, city.CityIndex, city.Row, city.Col, city.Population, city.Coverage, city.Bandwidth, city.SatisfactionLevel, city.SatisfactionScore}
				if _, err := tx.ExecContext(ctx, query, args...); err != nil {
					return err
				}
			}
		}
	}

	if trend != nil {
		for generation := range trend.Average {
			query := `
				INSERT INTO planning_trends (job_id, generation, average, min_average, max_average)
				VALUES ($1, $2, $3, $4, $5)
			`

			args := []any{jobID, generation, trend.Average[generation], trend.MinAverage[generation], trend.MaxAverage[generation]}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// GetPlanningReportsByJobID 按运行序号返回任务的所有最优解
func (r *Repository) GetPlanningReportsByJobID(jobID int64) ([]*domain.PlanningReport, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		SELECT
			pr.id,
			pr.run,
			pr.fitness,
			pr.total_cost,
			pr.total_satisfaction,
			pr.tower_count,
			pr.created_at,
			prt.id,
			prt.x,
			prt.y,
			prt.bandwidth,
			prtc.city_index,
			prtc.row,
			prtc.col,
			prtc.population,
			prtc.coverage,
			prtc.bandwidth,
			prtc.satisfaction_level,
			prtc.satisfaction_score
		FROM planning_reports pr
		LEFT JOIN planning_report_towers prt ON pr.id = prt.report_id
		LEFT JOIN planning_report_tower_cities prtc ON prt.id = prtc.tower_id
		WHERE pr.job_id = $1
		ORDER BY pr.run, prt.position, prtc.city_index
	`

	rows, err := r.dbpool.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := make([]*domain.PlanningReport, 0)
	reportsMap := make(map[int64]*domain.PlanningReport) // reportID -> report
	towersMap := make(map[int64]int)                     // towerID -> 在 report.Towers 中的下标

	for rows.Next() {
		var row struct {
			ReportID          int64
			Run               int
			Fitness           float64
			TotalCost         float64
			TotalSatisfaction float64
			TowerCount        int
			CreatedAt         time.Time

			TowerID        sql.NullInt64
			X              sql.NullFloat64
			Y              sql.NullFloat64
			TowerBandwidth sql.NullFloat64

			CityIndex         sql.NullInt64
			Row               sql.NullInt64
			Col               sql.NullInt64
			Population        sql.NullFloat64
			Coverage          sql.NullFloat64
			CityBandwidth     sql.NullFloat64
			SatisfactionLevel sql.NullFloat64
			SatisfactionScore sql.NullFloat64
		}

		dst := []any{
			&row.ReportID,
			&row.Run,
			&row.Fitness,
			&row.TotalCost,
			&row.TotalSatisfaction,
			&row.TowerCount,
			&row.CreatedAt,
			&row.TowerID,
			&row.X,
			&row.Y,
			&row.TowerBandwidth,
			&row.CityIndex,
			&row.Row,
			&row.Col,
			&row.Population,
			&row.Coverage,
			&row.CityBandwidth,
			&row.SatisfactionLevel,
			&row.SatisfactionScore,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		report, exists := reportsMap[row.ReportID]
		if !exists {
			report = &domain.PlanningReport{
				ID:                row.ReportID,
				JobID:             jobID,
				Run:               row.Run,
				Fitness:           row.Fitness,
				TotalCost:         row.TotalCost,
				TotalSatisfaction: row.TotalSatisfaction,
				TowerCount:        row.TowerCount,
				Towers:            make([]domain.TowerReport, 0, row.TowerCount),
				CreatedAt:         row.CreatedAt,
			}
			reportsMap[row.ReportID] = report
			reports = append(reports, report)
		}

		if !row.TowerID.Valid {
			continue
		}

		idx, exists := towersMap[row.TowerID.Int64]
		if !exists {
			report.Towers = append(report.Towers, domain.TowerReport{
				X:         row.X.Float64,
				Y:         row.Y.Float64,
				Bandwidth: row.TowerBandwidth.Float64,
				Cities:    make([]domain.CityService, 0),
			})
			idx = len(report.Towers) - 1
			towersMap[row.TowerID.Int64] = idx
		}

		if !row.CityIndex.Valid {
			continue
		}

		report.Towers[idx].Cities = append(report.Towers[idx].Cities, domain.CityService{
			CityIndex:         int(row.CityIndex.Int64),
			Row:               int(row.Row.Int64),
			Col:               int(row.Col.Int64),
			Population:        row.Population.Float64,
			Coverage:          row.Coverage.Float64,
			Bandwidth:         row.CityBandwidth.Float64,
			SatisfactionLevel: row.SatisfactionLevel.Float64,
			SatisfactionScore: row.SatisfactionScore.Float64,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reports, nil
}

func (r *Repository) GetFitnessTrendByJobID(jobID int64) (*domain.FitnessTrend, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		SELECT average, min_average, max_average
		FROM planning_trends WHERE job_id = $1
		ORDER BY generation
	`

	rows, err := r.dbpool.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trend := &domain.FitnessTrend{
		Average:    make([]float64, 0),
		MinAverage: make([]float64, 0),
		MaxAverage: make([]float64, 0),
	}
	for rows.Next() {
		var average, minAverage, maxAverage float64
		if err := rows.Scan(&average, &minAverage, &maxAverage); err != nil {
			return nil, err
		}
		trend.Average = append(trend.Average, average)
		trend.MinAverage = append(trend.MinAverage, minAverage)
		trend.MaxAverage = append(trend.MaxAverage, maxAverage)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return trend, nil
}
