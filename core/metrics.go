package core

import (
	"context"
	"fmt"
	"strings"
)

const sessionMetricPrefix = "session."

// metricTagFields are the observed fields promoted to metric tags. Anything
// else (generation, attempt ids) is too high-cardinality for a tag.
var metricTagFields = []string{"outcome", "token_source", "refreshed"}

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func operationCounterName(operation string) string {
	return sessionMetricPrefix + operation + ".total"
}

func operationDurationName(operation string) string {
	return sessionMetricPrefix + operation + ".duration_ms"
}

func operationTags(operation string, status string, fields map[string]any) map[string]string {
	tags := map[string]string{
		"operation": operation,
		"status":    status,
	}
	for _, key := range metricTagFields {
		value, ok := fields[key]
		if !ok || value == nil {
			continue
		}
		if text := strings.TrimSpace(fmt.Sprint(value)); text != "" {
			tags[key] = text
		}
	}
	return tags
}

var _ MetricsRecorder = NopMetricsRecorder{}
