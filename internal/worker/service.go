package worker

import (
	"context"
	"errors"
	"time"

	"github.com/coursepay-next/internal/config"
	"github.com/coursepay-next/internal/logger"
	"github.com/coursepay-next/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	orderSweepInterval  = time.Minute
	orderSweepBatchSize = 100
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.Container != nil && s.consumer.OrderService != nil {
		go s.runOrderSweepLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runOrderSweepLoop 周期兜底取消过期未支付订单，补偿延迟任务丢失的情况
func (s *Service) runOrderSweepLoop(ctx context.Context) {
	runOnce := func() {
		cancelled, err := s.consumer.OrderService.SweepExpired(orderSweepBatchSize)
		if err != nil {
			logger.Warnw("worker_order_sweep_failed", "error", err)
			return
		}
		if cancelled > 0 {
			logger.Infow("worker_order_sweep_done", "cancelled", cancelled)
		}
	}
	runOnce()

	ticker := time.NewTicker(orderSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
