//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"FinSignal/pkg/config"
	"FinSignal/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// The returned cleanup closes shared clients in reverse order of creation.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideClickHouseClient,
		ProvideDatabase,
		ProvideCache,

		// Ingestion
		ProvideMarketData,
		ProvideCalendar,
		ProvideLiveStore,
		ProvideBarPublisher,
		ProvideWarehouse,
		ProvideBarProcessor,
		ProvidePipeline,
		ProvideLiveFetcher,
		ProvideStreamCollector,
		ProvideKafkaConsumer,
		ProvideKafkaBarsHandler,

		// Indicators and outputs
		ProvideBarLoader,
		ProvideEngine,
		ProvideReportStore,
		ProvideReportSinks,
		ProvideIndicatorsJob,
		ProvideHistoryJob,
		ProvideConvertJob,

		// Serving
		ProvideReportsUseCase,
		ProvideHTTPServer,

		// Application
		wire.Struct(new(server.Components), "*"),
		ProvideApp,
	)
	return nil, nil, nil
}
