package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	relationMutations metric.Int64Counter
	snapshotRefreshes metric.Int64Counter
	remoteRequests    metric.Int64Counter
	memberQueries     metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "orgmesh"
	}
	meter := provider.Meter(name)

	relationMutations, err := meter.Int64Counter("orgmesh_relation_mutations_total")
	if err != nil {
		return nil, err
	}
	snapshotRefreshes, err := meter.Int64Counter("orgmesh_snapshot_refreshes_total")
	if err != nil {
		return nil, err
	}
	remoteRequests, err := meter.Int64Counter("orgmesh_remote_requests_total")
	if err != nil {
		return nil, err
	}
	memberQueries, err := meter.Int64Counter("orgmesh_member_queries_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		relationMutations: relationMutations,
		snapshotRefreshes: snapshotRefreshes,
		remoteRequests:    remoteRequests,
		memberQueries:     memberQueries,
	}, nil
}

// RecordRelationMutation increments mutation counts per action and outcome.
func (m *Metrics) RecordRelationMutation(ctx context.Context, action, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("action", strings.TrimSpace(action)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.relationMutations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSnapshotRefresh increments refresh counts per replaced slice.
func (m *Metrics) RecordSnapshotRefresh(ctx context.Context, slice string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("slice", strings.TrimSpace(slice)))
	m.snapshotRefreshes.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRemoteRequest increments remote call counts per operation and outcome.
func (m *Metrics) RecordRemoteRequest(ctx context.Context, operation, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.remoteRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordMemberQuery increments network member query counts.
func (m *Metrics) RecordMemberQuery(ctx context.Context, filtered bool) {
	if m == nil {
		return
	}
	outcome := "unfiltered"
	if filtered {
		outcome = "filtered"
	}
	attrs := FilterAttributes(attribute.String("outcome", outcome))
	m.memberQueries.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"action":      {},
	"outcome":     {},
	"slice":       {},
	"operation":   {},
	"endpoint":    {},
	"status_code": {},
	"org_kind":    {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
