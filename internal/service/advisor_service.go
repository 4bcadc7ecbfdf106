package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"coldchain-advisor/internal/config"
	"coldchain-advisor/internal/consumer"
	"coldchain-advisor/internal/evaluator"
	"coldchain-advisor/internal/mqtt"
	"coldchain-advisor/internal/repository"
	"coldchain-advisor/internal/simulation"
	"coldchain-advisor/internal/state"
)

// AdvisorService 调度顾问服务（整合各层，管理外部连接生命周期）
type AdvisorService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqtt.Client
	logger      *zap.Logger

	// 各层组件
	advisor           *Advisor
	cacheManager      *consumer.CacheManager
	telemetryConsumer *consumer.TelemetryConsumer
	auditRepo         *repository.AdvisoryEventsRepository
}

// NewAdvisorService 创建调度顾问服务
func NewAdvisorService(cfg *config.Config, logger *zap.Logger) (*AdvisorService, error) {
	// 1. 连接数据库
	db, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 测试数据库连接
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 2. 连接 Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// 测试 Redis 连接
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 3. 创建 Repository 层
	auditRepo := repository.NewAdvisoryEventsRepository(db, logger)

	// 4. 创建 Evaluator 层（外部评分 + 本地确定性规则回退）
	riskModel := evaluator.NewRiskModel()
	scorer := evaluator.NewScorerClient(
		cfg.Scorer.BaseURL,
		time.Duration(cfg.Scorer.TimeoutSec)*time.Second,
		cfg.Scorer.RetryCount,
		riskModel,
		logger,
	)

	// 5. 创建状态容器
	batches := state.NewBatchRegistry(riskModel, scorer, logger)
	zones := state.NewZoneMap(logger)
	metrics := state.NewMetricsState(logger)
	queue := state.NewRecommendationQueue(metrics, logger)

	// 6. 创建模拟器
	driver := simulation.NewDriver(
		zones,
		batches,
		queue,
		metrics,
		time.Duration(cfg.Advisor.SimulationCooldown)*time.Second,
		logger,
	)

	// 7. 创建 Consumer 层
	cacheManager := consumer.NewCacheManager(cfg, redisClient, logger)
	telemetryConsumer := consumer.NewTelemetryConsumer(cfg, cacheManager, logger)

	// 8. 创建顾问核心
	advisor := NewAdvisor(cfg, batches, zones, queue, metrics, driver, cacheManager, auditRepo, logger)

	s := &AdvisorService{
		config:            cfg,
		db:                db,
		redisClient:       redisClient,
		logger:            logger,
		advisor:           advisor,
		cacheManager:      cacheManager,
		telemetryConsumer: telemetryConsumer,
		auditRepo:         auditRepo,
	}

	// 9. 可选的 MQTT 遥测接入
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.NewClient(&cfg.MQTT, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create mqtt client: %w", err)
		}
		s.mqttClient = mqttClient

		subscriber := mqtt.NewTelemetrySubscriber(mqttClient, &cfg.MQTT, cacheManager, logger)
		if err := subscriber.Start(); err != nil {
			return nil, fmt.Errorf("failed to start telemetry subscriber: %w", err)
		}
	}

	return s, nil
}

// Advisor 返回顾问核心（HTTP 层使用）
func (s *AdvisorService) Advisor() *Advisor {
	return s.advisor
}

// Start 启动服务（加载种子数据，启动遥测消费者，阻塞直至 ctx 取消）
func (s *AdvisorService) Start(ctx context.Context) error {
	s.logger.Info("Starting advisor service")

	if err := s.advisor.Seed(ctx); err != nil {
		return fmt.Errorf("failed to seed advisor: %w", err)
	}

	// 启动遥测消费者（轮询模式）
	if err := s.telemetryConsumer.Start(ctx, s.advisor); err != nil {
		return fmt.Errorf("failed to start telemetry consumer: %w", err)
	}

	return nil
}

// Stop 停止服务
func (s *AdvisorService) Stop() error {
	s.logger.Info("Stopping advisor service")

	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}

	// 关闭数据库连接
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database",
			zap.Error(err),
		)
	}

	// 关闭 Redis 连接
	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("Failed to close redis",
			zap.Error(err),
		)
	}

	return nil
}
