package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFilterAttributesDropsIdentifiers(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("source", "bulk"),
		attribute.String("customer_id", "456"),
		attribute.String("outcome", "created"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		assert.NotEqual(t, attribute.Key("customer_id"), attr.Key)
	}
}

func TestRecordBillCreated(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := New(Config{ServiceName: "tirta-test"}, provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordBillCreated(ctx, "bulk", 75000)
	m.RecordBillCreated(ctx, "bulk", 25000)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			sum, ok := metric.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[metric.Name] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), totals["tirta_bills_created_total"])
	assert.Equal(t, int64(100000), totals["tirta_billed_amount_total"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordBillCreated(ctx, "manual", 1)
	m.RecordPayment(ctx, PaymentKindAllocation, 1)
	m.RecordReconcileCorrections(ctx, 3)
	m.RecordBulkOutcome(ctx, "created")
	m.RecordImportRow(ctx, "imported")
}
