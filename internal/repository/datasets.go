package repository

import (
	"encoding/json"

	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
)

func (r *Repository) CreateDataset(dataset *domain.Dataset) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	grid, err := json.Marshal(dataset.Grid)
	if err != nil {
		return err
	}
	problem, err := json.Marshal(dataset.Problem)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO datasets (name, description, rows, cols, grid, problem)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, version
	`

	args := []any{dataset.Name, dataset.Description, dataset.Rows(), dataset.Cols(), grid, problem}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&dataset.ID, &dataset.CreatedAt, &dataset.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetDatasetByID(id int64) (*domain.Dataset, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		SELECT name, description, grid, problem, created_at, version
		FROM datasets WHERE id = $1
	`

	dataset := &domain.Dataset{
		ID: id,
	}

	var grid, problem []byte
	dst := []any{&dataset.Name, &dataset.Description, &grid, &problem, &dataset.CreatedAt, &dataset.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(grid, &dataset.Grid); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(problem, &dataset.Problem); err != nil {
		return nil, err
	}

	return dataset, nil
}

// GetAllDatasets 不返回人口网格，列表页只需要网格的尺寸
func (r *Repository) GetAllDatasets() ([]*domain.DatasetSummary, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		SELECT id, name, description, rows, cols, created_at FROM datasets ORDER BY id
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	datasets := make([]*domain.DatasetSummary, 0)
	for rows.Next() {
		dataset := &domain.DatasetSummary{}
		dst := []any{&dataset.ID, &dataset.Name, &dataset.Description, &dataset.Rows, &dataset.Cols, &dataset.CreatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		datasets = append(datasets, dataset)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return datasets, nil
}

func (r *Repository) UpdateDataset(dataset *domain.Dataset) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		UPDATE datasets
		SET
			name = $1,
			description = $2,
			version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING version
	`

	args := []any{dataset.Name, dataset.Description, dataset.ID, dataset.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&dataset.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteDataset(id int64) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		DELETE FROM datasets WHERE id = $1
	`

	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}
