package di

import (
	"context"
	"fmt"
	"time"

	"tradingcore/internal/domain/repository"
	dservice "tradingcore/internal/domain/service"
	"tradingcore/internal/forecast"
	"tradingcore/internal/handler/api"
	"tradingcore/internal/market"
	internalrepo "tradingcore/internal/repository"
	"tradingcore/internal/risk"
	"tradingcore/internal/service/cache"
	"tradingcore/internal/service/feed"
	"tradingcore/internal/services/adjudicator"
	"tradingcore/internal/services/gateway"
	"tradingcore/internal/strategy"
	"tradingcore/internal/usecase"
	"tradingcore/internal/validator"
	pkgch "tradingcore/pkg/clickhouse"
	"tradingcore/pkg/config"
	pkgkafka "tradingcore/pkg/kafka"
	"tradingcore/pkg/logger"
	"tradingcore/pkg/metrics"
	"tradingcore/pkg/server"
)

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// kafkaLogPublisher adapts the producer to the log collector.
type kafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

func (p kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

// ProvideLogger creates the application logger. With Kafka enabled,
// error logs are aggregated and shipped to the log topic.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Kafka.Enabled && producer != nil {
		l.AddCollector(&logger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      kafkaLogPublisher{producer: producer},
		})
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client with the audit
// schema initialized, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.AuditSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideAuditSink composes the enabled audit backends; with none
// enabled the sink is a no-op.
func ProvideAuditSink(
	cfg *config.Config,
	log *logger.Logger,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
) repository.AuditSink {
	var sinks []repository.AuditSink
	if chClient != nil {
		sinks = append(sinks, internalrepo.NewClickHouseAuditStore(chClient.DB(), cfg.ClickHouse.Database))
	}
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaDecisionPublisher(producer, cfg.Kafka.Topic))
	}
	if len(sinks) == 0 {
		return internalrepo.NopAuditSink{}
	}
	return internalrepo.NewCompositeAuditSink(log, sinks...)
}

// ProvideMarketState creates the shared market state.
func ProvideMarketState(cfg *config.Config) *market.MarketState {
	return market.NewMarketState(
		cfg.Feed.Symbol,
		cfg.Engine.CandleCapacity,
		cfg.Engine.TradeCapacity,
		market.BookConfig{
			TopN:           cfg.Book.TopN,
			WallMultiplier: cfg.Book.WallMultiplier,
			SpoofDistance:  cfg.Book.SpoofDistance,
		},
	)
}

// ProvideReconstructor creates the candle reconstructor.
func ProvideReconstructor() *market.CandleReconstructor {
	return market.NewCandleReconstructor()
}

// ProvideFeedStream creates the market-data WebSocket stream.
func ProvideFeedStream(cfg *config.Config, log *logger.Logger) repository.MarketStream {
	return feed.New(
		cfg.Feed.WebSocketURL,
		cfg.Feed.APIKey,
		cfg.Feed.Symbol,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
		log,
	)
}

// ProvideIngestor creates the feed ingestion use case.
func ProvideIngestor(
	stream repository.MarketStream,
	state *market.MarketState,
	recon *market.CandleReconstructor,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.Ingestor {
	return usecase.NewIngestor(stream, state, recon, m, log)
}

// ProvideVerdictCache picks Redis when enabled, an in-process TTL cache
// otherwise.
func ProvideVerdictCache(cfg *config.Config) cache.BytesCache {
	if cfg.Adjudicator.Redis.Enabled {
		return cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Adjudicator.Redis.Addr,
			Password: cfg.Adjudicator.Redis.Password,
			DB:       cfg.Adjudicator.Redis.DB,
		})
	}
	return cache.NewTTLCache()
}

// ProvideAdjudicator creates the adjudication service client.
func ProvideAdjudicator(cfg *config.Config, verdicts cache.BytesCache, log *logger.Logger) dservice.Adjudicator {
	return adjudicator.New(
		cfg.Adjudicator.URL,
		cfg.Adjudicator.APIKey,
		cfg.Adjudicator.Timeout,
		verdicts,
		cfg.Adjudicator.CacheTTL,
		log,
	)
}

// ProvideGateway creates the exchange gateway client.
func ProvideGateway(cfg *config.Config, log *logger.Logger) dservice.Gateway {
	return gateway.New(
		cfg.Gateway.URL,
		cfg.Gateway.APIKey,
		cfg.Gateway.Timeout,
		cfg.Trading.DryRun,
		cfg.Trading.DryRunBalance,
		log,
	)
}

// ProvideValidatorGate assembles the two validator stages.
func ProvideValidatorGate(
	cfg *config.Config,
	state *market.MarketState,
	sink repository.AuditSink,
	log *logger.Logger,
) usecase.ValidatorGate {
	primary := []validator.Validator{
		&validator.TimeOfDayFilter{StartHour: cfg.Filters.TradeWindowStart, EndHour: cfg.Filters.TradeWindowEnd},
		&validator.DataFreshnessFilter{StaleAfter: cfg.Filters.StaleAfter},
		&validator.CompressionTrapFilter{Window: cfg.Filters.CompressionWindow, Threshold: cfg.Filters.CompressionTrap},
	}
	postSignal := []validator.Validator{
		&validator.RetestFilter{Band: cfg.Filters.RetestBand},
		&validator.SpoofFilter{BlockRate: cfg.Filters.SpoofBlockRate},
		&validator.LowVolumeGuard{Window: 10, MinRatio: cfg.Filters.LowVolumeRatio},
		&validator.CompressionDetector{Window: cfg.Filters.CompressionWindow},
		&validator.BreakoutOriginFilter{Window: 10},
		&validator.SentimentDivergenceFilter{Window: 5},
		&validator.ReversalZoneFilter{MaxDistance: cfg.Filters.ReversalZoneDist},
	}
	return validator.NewStack(primary, postSignal, state, sink, log)
}

// ProvideSignalSource creates the strategy router with its modules.
func ProvideSignalSource(cfg *config.Config, log *logger.Logger) usecase.SignalSource {
	scalpel := strategy.NewScalpel(100, cfg.Filters.RetestBand, 1.5)
	trapx := strategy.NewTrapX(cfg.Book.TrapRangeMultiple, cfg.Book.WickBodyMultiple, cfg.Book.SpoofThinTrigger)
	return strategy.NewRouter(strategy.RouterConfig{
		Forced:         cfg.Trading.ForcedStrategy,
		RetestWeak:     cfg.Filters.RetestWeak,
		CompressionLow: 1 - cfg.Filters.CompressionTrap,
		BreakoutStrong: cfg.Filters.BreakoutStrong,
	}, scalpel, trapx, log)
}

// ProvideForecastSource creates the forecaster.
func ProvideForecastSource(cfg *config.Config) usecase.ForecastSource {
	return forecast.New(cfg.Forecast.Window, forecast.Weights{
		Earliness:  cfg.Forecast.WeightEarliness,
		Divergence: cfg.Forecast.WeightDivergence,
		Imbalance:  cfg.Forecast.WeightImbalance,
		Proximity:  cfg.Forecast.WeightProximity,
	})
}

// ProvideRiskAssessor creates the entry risk simulator.
func ProvideRiskAssessor(cfg *config.Config) usecase.RiskAssessor {
	return risk.New(risk.Config{
		WeightForecast: cfg.Risk.WeightForecast,
		WeightHistory:  cfg.Risk.WeightHistory,
		WeightATR:      cfg.Risk.WeightATR,
		ATRMultiple:    cfg.Risk.ATRMultiple,
		ATRCapMultiple: cfg.Risk.ATRCapMultiple,
		AbsoluteCap:    cfg.Risk.AbsoluteCap,
		Budget:         cfg.Risk.Budget,
	})
}

// ProvideDecider creates the decision orchestrator.
func ProvideDecider(
	gate usecase.ValidatorGate,
	signals usecase.SignalSource,
	forecaster usecase.ForecastSource,
	riskAssessor usecase.RiskAssessor,
	adj dservice.Adjudicator,
	sink repository.AuditSink,
	m repository.Metrics,
	cfg *config.Config,
	log *logger.Logger,
) usecase.Decider {
	return usecase.NewDecisionOrchestrator(
		gate, signals, forecaster, riskAssessor, adj, sink, m,
		cfg.Trading.AIConfidenceThreshold, log,
	)
}

// ProvideLifecycle creates the trade lifecycle manager.
func ProvideLifecycle(
	state *market.MarketState,
	gw dservice.Gateway,
	adj dservice.Adjudicator,
	sink repository.AuditSink,
	m repository.Metrics,
	cfg *config.Config,
	log *logger.Logger,
) *usecase.TradeLifecycleManager {
	return usecase.NewTradeLifecycleManager(state, gw, adj, sink, m, usecase.LifecycleConfig{
		Leverage:        cfg.Trading.Leverage,
		RiskCapPercent:  cfg.Trading.RiskCapPercent,
		MonitorInterval: cfg.Trading.MonitorInterval,
		MaxROILimit:     cfg.Trading.MaxROILimit,
		DynamicExit:     cfg.Trading.DynamicExit,
		DryRun:          cfg.Trading.DryRun,
	}, log)
}

// ProvideEngine creates the top-level scheduler.
func ProvideEngine(
	state *market.MarketState,
	decider usecase.Decider,
	lifecycle *usecase.TradeLifecycleManager,
	ingestor *usecase.Ingestor,
	m repository.Metrics,
	cfg *config.Config,
	log *logger.Logger,
) *usecase.Engine {
	return usecase.NewEngine(state, decider, lifecycle, ingestor, m, usecase.EngineConfig{
		CycleInterval:     cfg.Engine.CycleInterval,
		TelemetryInterval: cfg.Engine.TelemetryInterval,
	}, log)
}

// ProvideStatusHandler creates the HTTP status handler.
func ProvideStatusHandler(
	log *logger.Logger,
	state *market.MarketState,
	lifecycle *usecase.TradeLifecycleManager,
) *api.StatusHandler {
	return api.NewStatusHandler(log, state, lifecycle)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	engine *usecase.Engine,
	handler *api.StatusHandler,
	chClient *pkgch.Client,
	sink repository.AuditSink,
) *server.App {
	app := server.New(cfg, log, engine, handler, chClient)
	app.AddCloser(sink.Close)
	return app
}
