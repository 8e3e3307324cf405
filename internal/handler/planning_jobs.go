package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/queue"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/utils"
)

// planningParametersRequest 中未提供的参数使用配置中的默认值
type planningParametersRequest struct {
	PopulationSize       *int        `json:"populationSize"`
	MaxGenerations       *int        `json:"maxGenerations"`
	EvolutionTimes       *int        `json:"evolutionTimes"`
	CrossoverRate        *float64    `json:"crossoverRate"`
	MutationRate         *float64    `json:"mutationRate"`
	LocationMutationStd  *float64    `json:"locationMutationStd"`
	BandwidthMutationStd *float64    `json:"bandwidthMutationStd"`
	BandwidthMin         *float64    `json:"bandwidthMin"`
	BandwidthMax         *float64    `json:"bandwidthMax"`
	TowersMin            *int        `json:"towersMin"`
	TowersMax            *int        `json:"towersMax"`
	SatisfactionRatio    *float64    `json:"satisfactionRatio"`
	CostRatio            *float64    `json:"costRatio"`
	Blend                *string     `json:"blend"`
	Boundary             *string     `json:"boundary"`
	Covariance           *[4]float64 `json:"covariance"`
	StopAfterStagnation  *int        `json:"stopAfterStagnation"`
	Seed                 *uint64     `json:"seed"`
	Workers              *int        `json:"workers"`
}

func (req *planningParametersRequest) merge(params *domain.PlanningParameters) {
	if req.PopulationSize != nil {
		params.PopulationSize = *req.PopulationSize
	}
	if req.MaxGenerations != nil {
		params.MaxGenerations = *req.MaxGenerations
	}
	if req.EvolutionTimes != nil {
		params.EvolutionTimes = *req.EvolutionTimes
	}
	if req.CrossoverRate != nil {
		params.CrossoverRate = *req.CrossoverRate
	}
	if req.MutationRate != nil {
		params.MutationRate = *req.MutationRate
	}
	if req.LocationMutationStd != nil {
		params.LocationMutationStd = *req.LocationMutationStd
	}
	if req.BandwidthMutationStd != nil {
		params.BandwidthMutationStd = *req.BandwidthMutationStd
	}
	if req.BandwidthMin != nil {
		params.BandwidthMin = *req.BandwidthMin
	}
	if req.BandwidthMax != nil {
		params.BandwidthMax = *req.BandwidthMax
	}
	if req.TowersMin != nil {
		params.TowersMin = *req.TowersMin
	}
	if req.TowersMax != nil {
		params.TowersMax = *req.TowersMax
	}
	if req.SatisfactionRatio != nil {
		params.SatisfactionRatio = *req.SatisfactionRatio
	}
	if req.CostRatio != nil {
		params.CostRatio = *req.CostRatio
	}
	if req.Blend != nil {
		params.Blend = domain.FitnessBlend(*req.Blend)
	}
	if req.Boundary != nil {
		params.Boundary = domain.SatisfactionBoundary(*req.Boundary)
	}
	if req.Covariance != nil {
		params.Covariance = *req.Covariance
	}
	if req.StopAfterStagnation != nil {
		params.StopAfterStagnation = *req.StopAfterStagnation
	}
	if req.Seed != nil {
		params.Seed = *req.Seed
	}
	if req.Workers != nil {
		params.Workers = *req.Workers
	}
}

// buildPlanningParameters 合并默认参数并校验，种子为 0 时使用当前时间
func (h *Handler) buildPlanningParameters(req *planningParametersRequest, dataset *domain.Dataset) (*domain.PlanningParameters, error) {
	params := h.config.Planner.PlanningParameters()
	req.merge(&params)

	if params.Seed == 0 {
		params.Seed = uint64(time.Now().UnixNano())
	}

	if err := h.validate.Struct(params); err != nil {
		return nil, err
	}
	if err := utils.ValidatePlanningParameters(&params, dataset.Grid); err != nil {
		return nil, err
	}

	return &params, nil
}

func (h *Handler) CreatePlanningJob(w http.ResponseWriter, r *http.Request) {
	dataset := r.Context().Value(DatasetCtx).(*domain.Dataset)
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		Parameters planningParametersRequest `json:"parameters"`
		Notify     bool                      `json:"notify"` // 任务结束后是否发送邮件通知
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	params, err := h.buildPlanningParameters(&req.Parameters, dataset)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	job := &domain.PlanningJob{
		DatasetID:  dataset.ID,
		CreatorID:  myInfo.ID,
		Parameters: *params,
		Status:     domain.JobStatusQueued,
	}
	if req.Notify {
		job.NotifyEmail = myInfo.Email
	}

	if err := h.repository.CreatePlanningJob(job); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.progress.Set(job.ID, &domain.PlanningProgress{Status: domain.JobStatusQueued}); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.publish(queue.PlanningQueue, domain.PlanningJobMessage{JobID: job.ID}); err != nil {
		// 投递失败时任务不会被执行，标记为失败
		job.Status = domain.JobStatusFailed
		job.Message = "任务投递失败"
		if updateErr := h.repository.UpdatePlanningJobStatus(job); updateErr != nil {
			err = errors.Join(err, updateErr)
		}
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "创建规划任务成功", job)
}

func (h *Handler) GetDatasetPlanningJobs(w http.ResponseWriter, r *http.Request) {
	dataset := r.Context().Value(DatasetCtx).(*domain.Dataset)

	jobs, err := h.repository.GetPlanningJobsByDatasetID(dataset.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取规划任务列表成功", jobs)
}

// GetPlanningJob 返回任务信息以及 worker 写入 redis 的实时进度
func (h *Handler) GetPlanningJob(w http.ResponseWriter, r *http.Request) {
	job := r.Context().Value(PlanningJobCtx).(*domain.PlanningJob)

	progress, err := h.progress.Get(job.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取规划任务成功", struct {
		*domain.PlanningJob
		Progress *domain.PlanningProgress `json:"progress"`
	}{job, progress})
}

func (h *Handler) GetPlanningResults(w http.ResponseWriter, r *http.Request) {
	job := r.Context().Value(PlanningJobCtx).(*domain.PlanningJob)

	if job.Status != domain.JobStatusFinished {
		h.errorResponse(w, r, "规划任务尚未完成")
		return
	}

	reports, err := h.repository.GetPlanningReportsByJobID(job.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取规划结果成功", reports)
}

func (h *Handler) GetFitnessTrend(w http.ResponseWriter, r *http.Request) {
	job := r.Context().Value(PlanningJobCtx).(*domain.PlanningJob)

	if job.Status != domain.JobStatusFinished {
		h.errorResponse(w, r, "规划任务尚未完成")
		return
	}

	trend, err := h.repository.GetFitnessTrendByJobID(job.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取适应度趋势成功", trend)
}
