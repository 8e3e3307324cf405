package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/progress"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/queue"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/repository"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancelPing()

	if err := dbpool.PingContext(pingCtx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 连接 redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer rdb.Close()

	/**********************************************
	 * 连接 RabbitMQ
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer ch.Close()

	if err := queue.Declare(ch); err != nil {
		logger.Error("无法声明队列", slog.String("error", err.Error()))
		return
	}

	// 一个 worker 同时只执行一个规划任务
	if err := ch.Qos(1, 0, false); err != nil {
		logger.Error("无法设置预取数量", slog.String("error", err.Error()))
		return
	}

	msgs, err := ch.Consume(
		queue.PlanningQueue, // 队列
		"",                  // 消费者标识，由 RabbitMQ 自动分配
		false,               // 是否自动确认消息
		false,               // 是否独占队列
		false,               // 是否禁止消费者接受自己发送的消息
		false,               // 是否不等待
		nil,                 // 额外参数
	)
	if err != nil {
		logger.Error("无法消费消息", slog.String("error", err.Error()))
		return
	}

	w := &worker{
		cfg:      cfg,
		repo:     repo,
		progress: progress.NewStore(rdb, time.Duration(cfg.Redis.OperationExpiration)*time.Second, time.Duration(cfg.Redis.ProgressExpiration)*time.Second),
		channel:  ch,
		logger:   logger,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// 用于关闭 goroutine 以及中断正在执行的演化
	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Error("消息通道已关闭")
					return
				}
				logger.Info("收到规划任务", slog.String("message", string(msg.Body)))

				err := w.handle(ctx, msg.Body)
				switch {
				case err == nil:
					_ = msg.Ack(false)
				case errors.Is(err, errRetry):
					logger.Error("规划任务需要重试", slog.String("error", err.Error()))
					_ = msg.Nack(false, true)
				default:
					logger.Error("无法处理规划任务", slog.String("error", err.Error()))
					_ = msg.Nack(false, false)
				}
			}
		}
	}()

	logger.Info("等待规划任务...（按 CTRL+C 退出）")
	<-sigChan

	slog.Info("正在关闭 planner worker...")
	cancel()
	wg.Wait()
	slog.Info("planner worker 已成功关闭")
}
