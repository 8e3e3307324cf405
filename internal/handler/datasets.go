package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/utils"
)

func (h *Handler) CreateDataset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string               `json:"name" validate:"required,max=100"`
		Description string               `json:"description"`
		Grid        [][]int64            `json:"grid" validate:"required,min=1"`
		Problem     domain.ProblemConfig `json:"problem"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.config.Server.MaxUploadSize)
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	dataset := &domain.Dataset{
		Name:        req.Name,
		Description: req.Description,
		Grid:        req.Grid,
		Problem:     req.Problem,
	}

	h.insertDataset(w, r, dataset)
}

// UploadDataset 通过表单上传数据集，grid 为人口网格的 CSV 文件，problem 为问题配置的 JSON 文件
func (h *Handler) UploadDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.Server.MaxUploadSize)
	if err := r.ParseMultipartForm(h.config.Server.MaxUploadSize); err != nil {
		h.errorResponse(w, r, "上传的文件过大或格式错误")
		return
	}

	name := r.FormValue("name")
	if name == "" {
		h.errorResponse(w, r, "数据集名称不能为空")
		return
	}

	gridFile, _, err := r.FormFile("grid")
	if err != nil {
		h.errorResponse(w, r, "缺少人口网格文件")
		return
	}
	defer gridFile.Close()

	grid, err := utils.ParsePopulationGrid(gridFile)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	problemFile, _, err := r.FormFile("problem")
	if err != nil {
		h.errorResponse(w, r, "缺少问题配置文件")
		return
	}
	defer problemFile.Close()

	problem, err := utils.ParseProblemConfig(problemFile)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	dataset := &domain.Dataset{
		Name:        name,
		Description: r.FormValue("description"),
		Grid:        grid,
		Problem:     *problem,
	}

	h.insertDataset(w, r, dataset)
}

func (h *Handler) insertDataset(w http.ResponseWriter, r *http.Request, dataset *domain.Dataset) {
	if err := h.validate.Struct(dataset.Problem); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidatePopulationGrid(dataset.Grid); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateProblemConfig(&dataset.Problem); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.CreateDataset(dataset); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "datasets_name_key":
			h.errorResponse(w, r, "数据集名称已存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "创建数据集成功", dataset)
}

func (h *Handler) GetAllDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.repository.GetAllDatasets()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取数据集列表成功", datasets)
}

func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	dataset := r.Context().Value(DatasetCtx).(*domain.Dataset)
	h.successResponse(w, r, "获取数据集成功", dataset)
}

// UpdateDataset 只允许修改名称和描述，网格和配置被已有的规划任务引用
func (h *Handler) UpdateDataset(w http.ResponseWriter, r *http.Request) {
	dataset := r.Context().Value(DatasetCtx).(*domain.Dataset)

	var req struct {
		Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
		Description *string `json:"description"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.Name != nil {
		dataset.Name = *req.Name
	}
	if req.Description != nil {
		dataset.Description = *req.Description
	}

	if err := h.repository.UpdateDataset(dataset); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "datasets_name_key":
			h.errorResponse(w, r, "数据集名称已存在")
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新数据集失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新数据集成功", dataset)
}

func (h *Handler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	dataset := r.Context().Value(DatasetCtx).(*domain.Dataset)

	if err := h.repository.DeleteDataset(dataset.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除数据集成功", nil)
}
