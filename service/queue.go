package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"PatternStudio-server/models"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeGenerateSession = "session:generate"

// SessionJob asynq 载荷：会话快照 + 组装好的输入。
// 历史在循环结束后才落库，所以任务自带全部数据，Worker 不回查。
type SessionJob struct {
	Input   GenerationInput          `json:"input"`
	Session models.GenerationSession `json:"session"`
}

// Dispatcher 把会话派发给执行方：配置了 Redis 时走 asynq 队列，
// 降级模式下直接起协程跑编排循环。
type Dispatcher struct {
	client *asynq.Client // 为 nil 时表示降级模式
	orch   *Orchestrator
	logger *zap.Logger
}

func NewDispatcher(client *asynq.Client, orch *Orchestrator, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		client: client,
		orch:   orch,
		logger: logger.Named("Dispatcher"),
	}
}

func (d *Dispatcher) Dispatch(job SessionJob) error {
	if d.client == nil {
		go func() {
			if _, err := d.orch.Run(context.Background(), job.Input, job.Session); err != nil {
				d.logger.Error("会话执行失败", zap.String("sessionID", job.Session.ID), zap.Error(err))
			}
		}()
		return nil
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}
	// 不重试：重跑整个会话会重复写历史，部分失败本来就是受支持的结果
	task := asynq.NewTask(TypeGenerateSession, payload,
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Minute),
		asynq.Retention(24*time.Hour),
	)
	info, err := d.client.Enqueue(task)
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}
	d.logger.Info("会话已入队",
		zap.String("sessionID", job.Session.ID),
		zap.String("taskID", info.ID),
	)
	return nil
}
