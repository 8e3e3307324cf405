package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EmailQueue    = "email_queue"
	PlanningQueue = "planning_queue"
)

// Declare 声明所有持久化队列，生产者和消费者启动时都会调用
func Declare(ch *amqp.Channel) error {
	for _, name := range []string{EmailQueue, PlanningQueue} {
		if _, err := ch.QueueDeclare(
			name,  // 队列名称
			true,  // 是否持久化
			false, // 是否自动删除
			false, // 是否独占
			false, // 是否不等待
			nil,   // 额外参数
		); err != nil {
			return err
		}
	}

	return nil
}

// Publish 将 v 序列化为 JSON 后投递到指定队列
func Publish(ch *amqp.Channel, timeout time.Duration, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return ch.PublishWithContext(
		ctx,
		"",
		queue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
