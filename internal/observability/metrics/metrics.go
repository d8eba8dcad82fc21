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

// Metrics exposes billing instruments. A nil *Metrics is valid and records
// nothing, so services can run without observability wiring in tests.
type Metrics struct {
	billsCreated     metric.Int64Counter
	billAmount       metric.Int64Counter
	paymentsRecorded metric.Int64Counter
	paymentAmount    metric.Int64Counter
	reconcileFixes   metric.Int64Counter
	bulkCustomers    metric.Int64Counter
	importRows       metric.Int64Counter
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
		name = "tirta"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.billsCreated, "tirta_bills_created_total", "Bills created, by source."},
		{&m.billAmount, "tirta_billed_amount_total", "Billed rupiah, by source."},
		{&m.paymentsRecorded, "tirta_payments_recorded_total", "Payments recorded, by kind."},
		{&m.paymentAmount, "tirta_payment_amount_total", "Rupiah received, by kind."},
		{&m.reconcileFixes, "tirta_reconcile_corrections_total", "Customers corrected by reconciliation."},
		{&m.bulkCustomers, "tirta_bulk_customers_total", "Customers visited by bulk generation, by outcome."},
		{&m.importRows, "tirta_import_rows_total", "Imported rows, by outcome."},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}
	return m, nil
}

// RecordBillCreated counts a new bill and its amount. source is one of
// manual, bulk, import.
func (m *Metrics) RecordBillCreated(ctx context.Context, source string, amount int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("source", source))...)
	m.billsCreated.Add(ctx, 1, attrs)
	m.billAmount.Add(ctx, amount, attrs)
}

// Payment kinds label RecordPayment by the entry point that took the cash.
const (
	PaymentKindBill       = "bill"
	PaymentKindAllocation = "allocation"
)

// RecordPayment counts a cash receipt. kind is PaymentKindBill or
// PaymentKindAllocation.
func (m *Metrics) RecordPayment(ctx context.Context, kind string, amount int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("kind", kind))...)
	m.paymentsRecorded.Add(ctx, 1, attrs)
	m.paymentAmount.Add(ctx, amount, attrs)
}

func (m *Metrics) RecordReconcileCorrections(ctx context.Context, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.reconcileFixes.Add(ctx, int64(count))
}

// RecordBulkOutcome counts one customer of a bulk run. outcome is created or a
// skip reason.
func (m *Metrics) RecordBulkOutcome(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.bulkCustomers.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("outcome", outcome))...))
}

func (m *Metrics) RecordImportRow(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.importRows.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("outcome", outcome))...))
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
	"source":  {},
	"kind":    {},
	"outcome": {},
	"route":   {},
	"status":  {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
// Customer and bill identifiers never become labels.
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
