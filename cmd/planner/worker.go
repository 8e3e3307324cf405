package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/planner"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/progress"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/queue"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/repository"
)

// errRetry 表示任务因为外部服务的问题没有完成，消息需要重新入队
var errRetry = errors.New("任务需要重试")

type worker struct {
	cfg      *config.Config
	repo     *repository.Repository
	progress *progress.Store
	channel  *amqp.Channel
	logger   *slog.Logger
}

// handle 处理一条 planning_queue 中的消息
func (w *worker) handle(ctx context.Context, body []byte) error {
	var msg domain.PlanningJobMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("消息反序列化失败: %w", err)
	}

	job, err := w.repo.GetPlanningJobByID(msg.JobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("规划任务 %d 不存在", msg.JobID)
		}
		return errors.Join(errRetry, err)
	}

	// 消息被重复投递时跳过已结束的任务
	if job.Status == domain.JobStatusFinished || job.Status == domain.JobStatusFailed {
		w.logger.Info("跳过已结束的规划任务", "job_id", job.ID, "status", job.Status)
		return nil
	}

	dataset, err := w.repo.GetDatasetByID(job.DatasetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return w.finish(job, nil, nil, errors.New("数据集不存在"))
		}
		return errors.Join(errRetry, err)
	}

	job.Status = domain.JobStatusRunning
	job.Message = ""
	if err := w.repo.UpdatePlanningJobStatus(job); err != nil {
		return errors.Join(errRetry, err)
	}
	w.setProgress(job.ID, &domain.PlanningProgress{Status: domain.JobStatusRunning})

	w.logger.Info("开始执行规划任务", "job_id", job.ID, "dataset_id", dataset.ID, "rows", dataset.Rows(), "cols", dataset.Cols())
	start := time.Now()

	outcome, calc, err := w.plan(ctx, job, dataset)
	if err != nil {
		if ctx.Err() != nil {
			// worker 正在退出，任务交给其他 worker 重新执行
			return errors.Join(errRetry, err)
		}
		return w.finish(job, dataset, nil, err)
	}

	reports := outcome.Reports(calc)
	if err := w.repo.InsertPlanningResults(job.ID, reports, &outcome.Trend); err != nil {
		return errors.Join(errRetry, err)
	}

	w.logger.Info("规划任务已完成", "job_id", job.ID, "duration", time.Since(start), "best_fitness", outcome.BestRun().Evaluation.Fitness)

	return w.finish(job, dataset, outcome, nil)
}

func (w *worker) plan(ctx context.Context, job *domain.PlanningJob, dataset *domain.Dataset) (*planner.Outcome, *planner.FitnessCalculator, error) {
	problem, err := planner.NewProblem(dataset.Grid, dataset.Problem)
	if err != nil {
		return nil, nil, err
	}

	throttle := progress.NewThrottle(time.Second)
	last := job.Parameters.MaxGenerations
	observer := func(run int, stats planner.GenerationStats) {
		if !throttle.Allow(stats.Generation == last) {
			return
		}
		w.setProgress(job.ID, &domain.PlanningProgress{
			Status:      domain.JobStatusRunning,
			Run:         run,
			Generation:  stats.Generation,
			BestFitness: stats.Max,
		})
	}

	p, err := planner.New(&job.Parameters, problem, planner.WithObserver(observer))
	if err != nil {
		return nil, nil, err
	}

	outcome, err := p.Run(ctx)
	if err != nil {
		return nil, nil, err
	}

	return outcome, p.Calculator(), nil
}

// finish 记录任务的最终状态并按需发送通知邮件，runErr 不为空表示任务失败
func (w *worker) finish(job *domain.PlanningJob, dataset *domain.Dataset, outcome *planner.Outcome, runErr error) error {
	final := &domain.PlanningProgress{}
	if runErr != nil {
		w.logger.Error("规划任务失败", "job_id", job.ID, "error", runErr)
		job.Status = domain.JobStatusFailed
		job.Message = runErr.Error()
	} else {
		best := outcome.BestRun()
		job.Status = domain.JobStatusFinished
		job.Message = fmt.Sprintf("共 %d 次运行，最优适应度为 %.4f", len(outcome.Runs), best.Evaluation.Fitness)
		final.Run = best.Run
		final.Generation = len(best.History) - 1
		final.BestFitness = best.Evaluation.Fitness
	}
	final.Status = job.Status

	if err := w.repo.UpdatePlanningJobStatus(job); err != nil {
		return errors.Join(errRetry, err)
	}
	w.setProgress(job.ID, final)

	if job.NotifyEmail == "" {
		return nil
	}

	creator, err := w.repo.GetUserByID(job.CreatorID)
	if err != nil {
		// 任务本身已经完成，邮件发送失败不影响结果
		w.logger.Error("无法获取任务创建者", "job_id", job.ID, "error", err)
		return nil
	}

	mail := finishedMail(job, dataset, creator, outcome)
	if err := queue.Publish(w.channel, time.Duration(w.cfg.RabbitMQ.PublishTimeout)*time.Second, queue.EmailQueue, mail); err != nil {
		w.logger.Error("无法投递通知邮件", "job_id", job.ID, "error", err)
	}

	return nil
}

func (w *worker) setProgress(jobID int64, p *domain.PlanningProgress) {
	if err := w.progress.Set(jobID, p); err != nil {
		w.logger.Warn("无法更新任务进度", "job_id", jobID, "error", err)
	}
}

func finishedMail(job *domain.PlanningJob, dataset *domain.Dataset, creator *domain.User, outcome *planner.Outcome) domain.MailMessage {
	data := domain.PlanningFinishedMailData{
		FullName: creator.FullName,
		JobID:    job.ID,
		Status:   string(job.Status),
		Message:  job.Message,
	}
	if dataset != nil {
		data.DatasetName = dataset.Name
	}
	if outcome != nil {
		best := outcome.BestRun()
		data.BestFitness = best.Evaluation.Fitness
		data.TowerCount = best.Evaluation.TowerCount
	}

	return domain.MailMessage{
		Type: domain.MailTypePlanningFinished,
		To:   job.NotifyEmail,
		Data: data,
	}
}
