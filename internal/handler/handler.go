package handler

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/progress"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/queue"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/repository"
)

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	repository *repository.Repository
	translator ut.Translator
	channel    *amqp.Channel
	progress   *progress.Store

	Mux *chi.Mux
}

// publish 将消息投递到指定队列
func (h *Handler) publish(name string, v any) error {
	return queue.Publish(h.channel, time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second, name, v)
}

func NewHandler(cfg *config.Config, repo *repository.Repository, ch *amqp.Channel, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		repository: repo,
		translator: trans,
		channel:    ch,
		progress:   progress.NewStore(rdb, time.Duration(cfg.Redis.OperationExpiration)*time.Second, time.Duration(cfg.Redis.ProgressExpiration)*time.Second),

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	adminOnly := h.RequiredRole([]domain.Role{domain.RoleAdmin})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/my-info", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(adminOnly).Post("/", h.CreateUser)
			r.Get("/", h.GetAllUserInfo)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Get("/", h.GetUserInfo)
				r.With(h.preventOperateInitialAdmin).With(adminOnly).Patch("/", h.UpdateUser)
				r.With(h.preventOperateInitialAdmin).With(adminOnly).Delete("/", h.DeleteUser)
				r.With(adminOnly).Patch("/password", h.UpdateUserPassword)
			})
		})

		// 停用的账号只能查看数据，不能创建或修改数据集和规划任务
		activeOnly := chi.Chain(h.myInfo, h.preventInactiveUser)

		r.Route("/datasets", func(r chi.Router) {
			r.With(activeOnly...).Post("/", h.CreateDataset)
			r.With(activeOnly...).Post("/upload", h.UploadDataset)
			r.Get("/", h.GetAllDatasets)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.dataset)
				r.Get("/", h.GetDataset)
				r.With(activeOnly...).Patch("/", h.UpdateDataset)
				r.With(adminOnly).Delete("/", h.DeleteDataset)
				r.Route("/planning-jobs", func(r chi.Router) {
					r.With(activeOnly...).Post("/", h.CreatePlanningJob)
					r.Get("/", h.GetDatasetPlanningJobs)
				})
			})
		})

		r.Route("/planning-jobs/{id}", func(r chi.Router) {
			r.Use(h.planningJob)
			r.Get("/", h.GetPlanningJob)
			r.Get("/results", h.GetPlanningResults)
			r.Get("/trend", h.GetFitnessTrend)
		})
	})
}
