package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
		MaxUploadSize   int64  `env:"MAX_UPLOAD_SIZE" envDefault:"8388608"` // 8 MiB
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	InitialAdmin struct {
		Username string `env:"USERNAME" envDefault:"admin"`
		Password string `env:"PASSWORD,required"`
		FullName string `env:"FULL_NAME" envDefault:"管理员"`
		Email    string `env:"EMAIL,required"`
	} `envPrefix:"INITIAL_ADMIN_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"336"` // 14 天，单位为小时
		Secret     string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	Seed struct {
		User struct {
			Password string `env:"PASSWORD,required"`
		} `envPrefix:"USER_"`
	} `envPrefix:"SEED_"`
	Email struct {
		UserDomain string `env:"USER_DOMAIN,required"`
		SMTP       struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host                string `env:"HOST" envDefault:"localhost"`
		Port                int    `env:"PORT" envDefault:"6379"`
		Password            string `env:"PASSWORD,required"`
		ConnectTimeout      int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationExpiration int    `env:"OPERATION_EXPIRATION" envDefault:"10"`
		ProgressExpiration  int    `env:"PROGRESS_EXPIRATION" envDefault:"86400"` // 1 天
	} `envPrefix:"REDIS_"`
	NewUser struct {
		PasswordLength int `env:"PASSWORD_LENGTH" envDefault:"12"`
	} `envPrefix:"NEW_USER_"`
	Planner PlannerConfig `envPrefix:"PLANNER_"`
}

// PlannerConfig 为遗传算法参数的默认值，创建规划任务时未指定的参数使用这里的值
type PlannerConfig struct {
	PopulationSize       int     `env:"POPULATION_SIZE" envDefault:"50"`
	MaxGenerations       int     `env:"MAX_GENERATIONS" envDefault:"200"`
	EvolutionTimes       int     `env:"EVOLUTION_TIMES" envDefault:"10"`
	CrossoverRate        float64 `env:"CROSSOVER_RATE" envDefault:"0.9"`
	MutationRate         float64 `env:"MUTATION_RATE" envDefault:"0.1"`
	LocationMutationStd  float64 `env:"LOCATION_MUTATION_STD" envDefault:"1.0"`
	BandwidthMutationStd float64 `env:"BANDWIDTH_MUTATION_STD" envDefault:"500.0"`
	BandwidthMin         float64 `env:"BANDWIDTH_MIN" envDefault:"1"`
	BandwidthMax         float64 `env:"BANDWIDTH_MAX" envDefault:"5000"`
	TowersMin            int     `env:"TOWERS_MIN" envDefault:"1"`
	TowersMax            int     `env:"TOWERS_MAX" envDefault:"0"` // 0 表示城市数量
	SatisfactionRatio    float64 `env:"TOTAL_SATISFACTION_RATIO" envDefault:"0.2"`
	CostRatio            float64 `env:"TOTAL_COST_RATIO" envDefault:"0.1"`
	Blend                string  `env:"BLEND" envDefault:"weighted"`
	Boundary             string  `env:"BOUNDARY" envDefault:"inclusive"`
	Sigma                float64 `env:"SIGMA" envDefault:"8"`
	StopAfterStagnation  int     `env:"STOP_AFTER_STAGNATION" envDefault:"0"`
	Workers              int     `env:"WORKERS" envDefault:"0"`
}

// PlanningParameters 根据配置生成默认的遗传算法参数
func (pc PlannerConfig) PlanningParameters() domain.PlanningParameters {
	return domain.PlanningParameters{
		PopulationSize:       pc.PopulationSize,
		MaxGenerations:       pc.MaxGenerations,
		EvolutionTimes:       pc.EvolutionTimes,
		CrossoverRate:        pc.CrossoverRate,
		MutationRate:         pc.MutationRate,
		LocationMutationStd:  pc.LocationMutationStd,
		BandwidthMutationStd: pc.BandwidthMutationStd,
		BandwidthMin:         pc.BandwidthMin,
		BandwidthMax:         pc.BandwidthMax,
		TowersMin:            pc.TowersMin,
		TowersMax:            pc.TowersMax,
		SatisfactionRatio:    pc.SatisfactionRatio,
		CostRatio:            pc.CostRatio,
		Blend:                domain.FitnessBlend(pc.Blend),
		Boundary:             domain.SatisfactionBoundary(pc.Boundary),
		Covariance:           [4]float64{pc.Sigma, 0, 0, pc.Sigma},
		StopAfterStagnation:  pc.StopAfterStagnation,
		Workers:              pc.Workers,
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	return cfg, nil
}

// LoadPlannerConfig 只读取遗传算法相关的配置，供不需要连接数据库等外部服务的命令行工具使用
func LoadPlannerConfig() (*PlannerConfig, error) {
	pc := &PlannerConfig{}
	if err := env.ParseWithOptions(pc, env.Options{Prefix: "PLANNER_"}); err != nil {
		return nil, err
	}

	return pc, nil
}
