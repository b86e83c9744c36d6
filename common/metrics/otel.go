package metrics

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdk "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/ceramicnetwork/go-mint"
	"github.com/ceramicnetwork/go-mint/common"
	"github.com/ceramicnetwork/go-mint/models"
)

var _ models.MetricService = &OtelMetricService{}

const exportInterval = 30 * time.Second

type OtelMetricService struct {
	meterProvider *sdk.MeterProvider
	meter         metric.Meter
	logger        models.Logger

	mu         sync.Mutex
	counters   map[models.MetricName]metric.Int64Counter
	histograms map[models.MetricName]metric.Int64Histogram
}

// NewOtelMetricService exports to the OTLP HTTP collector named by OTEL_EXPORTER_OTLP_METRICS_ENDPOINT, or to stdout
// when no collector is configured.
func NewOtelMetricService(ctx context.Context, logger models.Logger) (*OtelMetricService, error) {
	var exporter sdk.Exporter
	var err error
	if endpoint, found := os.LookupEnv(common.Env_MetricsEndpoint); found && len(endpoint) > 0 {
		// The exporter picks the endpoint up from the environment
		exporter, err = otlpmetrichttp.New(ctx)
		logger.Infof("metrics: exporting to %s", endpoint)
	} else {
		exporter, err = stdoutmetric.New()
		logger.Infof("metrics: exporting to stdout")
	}
	if err != nil {
		return nil, fmt.Errorf("metrics: error creating exporter: %w", err)
	}
	return NewOtelMetricServiceWithReader(logger, sdk.NewPeriodicReader(exporter, sdk.WithInterval(exportInterval))), nil
}

func NewOtelMetricServiceWithReader(logger models.Logger, reader sdk.Reader) *OtelMetricService {
	res := resource.NewSchemaless(
		attribute.String("service.name", common.ServiceName),
		attribute.String("deployment.environment", os.Getenv(mint.Env_Env)),
	)
	meterProvider := sdk.NewMeterProvider(sdk.WithReader(reader), sdk.WithResource(res))
	return &OtelMetricService{
		meterProvider: meterProvider,
		meter:         meterProvider.Meter(models.MetricsCallerName),
		logger:        logger,
		counters:      make(map[models.MetricName]metric.Int64Counter),
		histograms:    make(map[models.MetricName]metric.Int64Histogram),
	}
}

func (o *OtelMetricService) Count(ctx context.Context, name models.MetricName, val int) error {
	if counter, err := o.counter(name); err != nil {
		return err
	} else {
		counter.Add(ctx, int64(val))
		return nil
	}
}

func (o *OtelMetricService) Distribution(ctx context.Context, name models.MetricName, val int) error {
	if histogram, err := o.histogram(name); err != nil {
		return err
	} else {
		histogram.Record(ctx, int64(val))
		return nil
	}
}

func (o *OtelMetricService) Shutdown(ctx context.Context) {
	if err := o.meterProvider.Shutdown(ctx); err != nil {
		o.logger.Errorf("metrics: error shutting down meter provider: %v", err)
	}
}

func (o *OtelMetricService) counter(name models.MetricName) (metric.Int64Counter, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if counter, found := o.counters[name]; found {
		return counter, nil
	}
	counter, err := o.meter.Int64Counter(string(name))
	if err != nil {
		return nil, err
	}
	o.counters[name] = counter
	return counter, nil
}

func (o *OtelMetricService) histogram(name models.MetricName) (metric.Int64Histogram, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if histogram, found := o.histograms[name]; found {
		return histogram, nil
	}
	histogram, err := o.meter.Int64Histogram(string(name))
	if err != nil {
		return nil, err
	}
	o.histograms[name] = histogram
	return histogram, nil
}
