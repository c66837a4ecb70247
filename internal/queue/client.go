package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/reportportal/internal/config"
)

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(RedisOpt(cfg)),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueReportUpdated schedules one notification mail for processAt.
func (c *Client) EnqueueReportUpdated(ctx context.Context, payload ReportUpdatedPayload, processAt time.Time) error {
	return c.enqueue(ctx, TypeReportUpdatedMail, payload,
		asynq.Queue(QueueDefault),
		asynq.ProcessAt(processAt),
		asynq.MaxRetry(3),
		asynq.Timeout(time.Minute),
	)
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	_, err = c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
