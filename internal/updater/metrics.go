package updater

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"

	"github.com/simplesurance/depupdater/internal/logfields"
	"github.com/simplesurance/depupdater/internal/mergerequest"
)

const metricNamespace = "depupdater"

const (
	dependenciesMetricName    = "dependencies_total"
	mrOperationsMetricName    = "merge_request_operations_total"
	pushGatewayJobName        = "depupdater"
	pushGatewayGroupingLabel  = "project"
	packageManagerLabel       = "package_manager"
	statusLabel               = "status"
	operationLabel            = "operation"
	operationLabelClosedValue = "closed"
)

type metricCollector struct {
	logger       *zap.Logger
	dependencies *prometheus.CounterVec
	mrOps        *prometheus.CounterVec
}

var metrics = newMetricCollector()

func newMetricCollector() *metricCollector {
	return &metricCollector{
		logger: zap.L().Named(loggerName).Named("metrics"),
		dependencies: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      dependenciesMetricName,
				Help:      "count of processed dependencies by result",
			},
			[]string{packageManagerLabel, statusLabel},
		),
		mrOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      mrOperationsMetricName,
				Help:      "count of merge request operations",
			},
			[]string{packageManagerLabel, operationLabel},
		),
	}
}

func (m *metricCollector) logGetMetricFailed(metricName string, err error) {
	m.logger.Warn(
		"could not record metric",
		zap.String("metric", metricName),
		logfields.Event("recording_metric_failed"),
		zap.Error(err),
	)
}

func (m *metricCollector) DependencyProcessed(packageManager string, status Status) {
	cnt, err := m.dependencies.GetMetricWith(prometheus.Labels{
		packageManagerLabel: packageManager,
		statusLabel:         string(status),
	})
	if err != nil {
		m.logGetMetricFailed(dependenciesMetricName, err)
		return
	}

	cnt.Inc()
}

func (m *metricCollector) mergeRequestOpsAdd(packageManager, operation string, val int) {
	if val == 0 {
		return
	}

	cnt, err := m.mrOps.GetMetricWith(prometheus.Labels{
		packageManagerLabel: packageManager,
		operationLabel:      operation,
	})
	if err != nil {
		m.logGetMetricFailed(mrOperationsMetricName, err)
		return
	}

	cnt.Add(float64(val))
}

// MergeRequestReconciled records the operations of a reconciliation.
func (m *metricCollector) MergeRequestReconciled(packageManager string, outcome *mergerequest.Outcome) {
	m.mergeRequestOpsAdd(packageManager, operationLabelClosedValue, len(outcome.Closed))
	m.mergeRequestOpsAdd(packageManager, string(outcome.Action), 1)
}

// PushMetrics pushes all registered metrics to a Prometheus Pushgateway.
// The metrics are grouped by project.
func PushMetrics(ctx context.Context, gatewayURL, project string) error {
	err := push.New(gatewayURL, pushGatewayJobName).
		Gatherer(prometheus.DefaultGatherer).
		Grouping(pushGatewayGroupingLabel, project).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("pushing metrics to %s failed: %w", gatewayURL, err)
	}

	return nil
}
