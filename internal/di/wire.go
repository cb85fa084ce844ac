//go:build wireinject
// +build wireinject

package di

import (
	"tradingcore/pkg/config"
	"tradingcore/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Metrics and logging
		ProvideMetrics,
		ProvideLogger,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideAuditSink,
		ProvideVerdictCache,

		// Market data
		ProvideMarketState,
		ProvideReconstructor,
		ProvideFeedStream,
		ProvideIngestor,

		// External services
		ProvideAdjudicator,
		ProvideGateway,

		// Decision pipeline
		ProvideValidatorGate,
		ProvideSignalSource,
		ProvideForecastSource,
		ProvideRiskAssessor,
		ProvideDecider,
		ProvideLifecycle,
		ProvideEngine,

		// Application server
		ProvideStatusHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
