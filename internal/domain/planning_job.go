package domain

import (
	"fmt"
	"time"
)

type FitnessBlend string

const (
	// BlendWeighted: satisfactionRatio * 总满意度 - costRatio * 总成本
	BlendWeighted FitnessBlend = "weighted"
	// BlendRatio: 总满意度 / 总成本
	BlendRatio FitnessBlend = "ratio"
)

type SatisfactionBoundary string

const (
	// BoundaryInclusive 表示满意度恰好等于某个阈值时即可获得该阈值对应的分数
	BoundaryInclusive SatisfactionBoundary = "inclusive"
	// BoundaryExclusive 表示满意度必须严格大于阈值
	BoundaryExclusive SatisfactionBoundary = "exclusive"
)

// PlanningParameters 遗传算法参数
type PlanningParameters struct {
	PopulationSize       int                  `json:"populationSize" validate:"min=1"`                 // 种群大小
	MaxGenerations       int                  `json:"maxGenerations" validate:"min=0"`                 // 最大迭代次数
	EvolutionTimes       int                  `json:"evolutionTimes" validate:"min=1"`                 // 独立重复运行的次数
	CrossoverRate        float64              `json:"crossoverRate" validate:"min=0,max=1"`            // 交叉概率
	MutationRate         float64              `json:"mutationRate" validate:"min=0,max=1"`             // 变异概率
	LocationMutationStd  float64              `json:"locationMutationStd" validate:"min=0"`            // 位置高斯变异的标准差
	BandwidthMutationStd float64              `json:"bandwidthMutationStd" validate:"min=0"`           // 带宽高斯变异的标准差
	BandwidthMin         float64              `json:"bandwidthMin" validate:"min=0"`                   // 带宽下界
	BandwidthMax         float64              `json:"bandwidthMax" validate:"gtefield=BandwidthMin"`   // 带宽上界
	TowersMin            int                  `json:"towersMin" validate:"min=1"`                      // 初始化时基站数量的下界
	TowersMax            int                  `json:"towersMax" validate:"min=0"`                      // 初始化时基站数量的上界，0 表示城市数量
	SatisfactionRatio    float64              `json:"satisfactionRatio"`                               // 满意度权重
	CostRatio            float64              `json:"costRatio"`                                       // 成本权重
	Blend                FitnessBlend         `json:"blend" validate:"oneof=weighted ratio"`           // 适应度的组合方式
	Boundary             SatisfactionBoundary `json:"boundary" validate:"oneof=inclusive exclusive"`   // 满意度阈值的边界约定
	Covariance           [4]float64           `json:"covariance"`                                      // 覆盖率的协方差矩阵（行优先）
	StopAfterStagnation  int                  `json:"stopAfterStagnation" validate:"min=0"`            // 最优适应度连续多少代没有提升就提前停止，0 表示不启用
	Seed                 uint64               `json:"seed"`                                            // 随机数种子
	Workers              int                  `json:"workers" validate:"min=0"`                        // 并行计算适应度的 goroutine 数量，0 表示 CPU 数量
}

type PlanningJobStatus string

const (
	JobStatusQueued   PlanningJobStatus = "queued"
	JobStatusRunning  PlanningJobStatus = "running"
	JobStatusFinished PlanningJobStatus = "finished"
	JobStatusFailed   PlanningJobStatus = "failed"
)

type PlanningJob struct {
	ID          int64              `json:"id"`
	DatasetID   int64              `json:"datasetID"`
	CreatorID   int64              `json:"creatorID"`
	Parameters  PlanningParameters `json:"parameters"`
	Status      PlanningJobStatus  `json:"status"`
	Message     string             `json:"message"`
	NotifyEmail string             `json:"notifyEmail"`
	CreatedAt   time.Time          `json:"createdAt"`
	FinishedAt  *time.Time         `json:"finishedAt"`
	Version     int32              `json:"-"`
}

// PlanningJobMessage 是投递到 planning_queue 中的消息
type PlanningJobMessage struct {
	JobID int64 `json:"jobID"`
}

// PlanningProgress 是 worker 写到 redis 中的实时进度
type PlanningProgress struct {
	Status      PlanningJobStatus `json:"status"`
	Run         int               `json:"run"`
	Generation  int               `json:"generation"`
	BestFitness float64           `json:"bestFitness"`
}

// PlanningProgressKey 返回任务实时进度在 redis 中的键
func PlanningProgressKey(jobID int64) string {
	return fmt.Sprintf("planning_job_%d_progress", jobID)
}
