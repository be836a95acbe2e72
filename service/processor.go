package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Processor 队列消费者，从 asynq 取会话任务交给编排器执行。
type Processor struct {
	orch   *Orchestrator
	logger *zap.Logger
}

func NewProcessor(orch *Orchestrator, logger *zap.Logger) *Processor {
	return &Processor{
		orch:   orch,
		logger: logger.Named("Processor"),
	}
}

// StartProcessor 启动消费者。并发固定为 1：
// 会话内部本来就是严格顺序处理，跨会话也不向生成协作方叠加压力。
func (p *Processor) StartProcessor(redisAddr, redisPassword string) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisAddr,
			Password: redisPassword,
		},
		asynq.Config{
			Concurrency: 1,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeGenerateSession, p.HandleGenerateSession)

	p.logger.Info("Task Processor 已启动")
	go func() {
		if err := srv.Run(mux); err != nil {
			p.logger.Fatal("could not run asynq server", zap.Error(err))
		}
	}()
}

func (p *Processor) HandleGenerateSession(ctx context.Context, t *asynq.Task) error {
	var job SessionJob
	if err := json.Unmarshal(t.Payload(), &job); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	p.logger.Info("Processing session",
		zap.String("sessionID", job.Session.ID),
		zap.Int("images", len(job.Session.Images)),
	)
	if _, err := p.orch.Run(ctx, job.Input, job.Session); err != nil {
		// 持久化失败才会走到这里；单张生成失败已记录在图上，不算任务失败
		p.logger.Error("会话执行失败", zap.String("sessionID", job.Session.ID), zap.Error(err))
		return err
	}
	return nil
}
