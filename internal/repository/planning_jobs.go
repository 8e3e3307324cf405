package repository

import (
	"database/sql"
	"encoding/json"

	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
)

func (r *Repository) CreatePlanningJob(job *domain.PlanningJob) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	parameters, err := json.Marshal(job.Parameters)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO planning_jobs (dataset_id, creator_id, parameters, status, notify_email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, version
	`

	args := []any{job.DatasetID, job.CreatorID, parameters, job.Status, job.NotifyEmail}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&job.ID, &job.CreatedAt, &job.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetPlanningJobByID(id int64) (*domain.PlanningJob, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		SELECT dataset_id, creator_id, parameters, status, message, notify_email, created_at, finished_at, version
		FROM planning_jobs WHERE id = $1
	`

	job := &domain.PlanningJob{
		ID: id,
	}

	var parameters []byte
	var finishedAt sql.NullTime
	dst := []any{&job.DatasetID, &job.CreatorID, &parameters, &job.Status, &job.Message, &job.NotifyEmail, &job.CreatedAt, &finishedAt, &job.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(parameters, &job.Parameters); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		job.FinishedAt = &finishedAt.Time
	}

	return job, nil
}

func (r *Repository) GetPlanningJobsByDatasetID(datasetID int64) ([]*domain.PlanningJob, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		SELECT id, creator_id, parameters, status, message, notify_email, created_at, finished_at, version
		FROM planning_jobs WHERE dataset_id = $1
		ORDER BY id DESC
	`

	rows, err := r.dbpool.QueryContext(ctx, query, datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]*domain.PlanningJob, 0)
	for rows.Next() {
		job := &domain.PlanningJob{
			DatasetID: datasetID,
		}

		var parameters []byte
		var finishedAt sql.NullTime
		dst := []any{&job.ID, &job.CreatorID, &parameters, &job.Status, &job.Message, &job.NotifyEmail, &job.CreatedAt, &finishedAt, &job.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		if err := json.Unmarshal(parameters, &job.Parameters); err != nil {
			return nil, err
		}
		if finishedAt.Valid {
			job.FinishedAt = &finishedAt.Time
		}

		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return jobs, nil
}

// UpdatePlanningJobStatus 更新任务状态，任务结束时同时记录结束时间
func (r *Repository) UpdatePlanningJobStatus(job *domain.PlanningJob) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		UPDATE planning_jobs
		SET
			status = $1,
			message = $2,
			finished_at = CASE WHEN $5 THEN NOW() ELSE NULL END,
			version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING finished_at, version
	`

	var finishedAt sql.NullTime
	done := job.Status == domain.JobStatusFinished || job.Status == domain.JobStatusFailed
	args := []any{job.Status, job.Message, job.ID, job.Version, done}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&finishedAt, &job.Version); err != nil {
		return err
	}

	job.FinishedAt = nil
	if finishedAt.Valid {
		job.FinishedAt = &finishedAt.Time
	}

	return nil
}
