package telemetry

import (
	"context"
	"maps"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys
const (
	ProfilingLabelOperation = "operation"
	ProfilingLabelCompanyID = "company_id"
	ProfilingLabelRoute     = "route"
	ProfilingLabelMethod    = "method"
)

// MaxLabelValueLength caps label values to keep cardinality bounded
const MaxLabelValueLength = 128

// highCardinalityLabels are dropped from profiling labels. Do not modify at runtime.
var highCardinalityLabels = map[string]bool{
	"user_id":     true,
	"request_id":  true,
	"document_id": true,
	"payment_id":  true,
	"trace_id":    true,
	"span_id":     true,
}

// WithProfilingLabels runs fn with pprof labels visible to Pyroscope.
// The labels map is copied, so callers may reuse it.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	if len(labels) == 0 {
		fn(ctx)
		return
	}
	labelPairs := sanitizeLabels(maps.Clone(labels))
	if len(labelPairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(labelPairs...), fn)
}

// sanitizeLabels drops empty and high-cardinality labels, truncates long values
// and returns sorted key/value pairs
func sanitizeLabels(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(labels)*2)
	for _, key := range keys {
		value := labels[key]
		if key == "" || value == "" || highCardinalityLabels[key] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		clean := sanitizeLabelKey(key)
		if clean == "" {
			continue
		}
		out = append(out, clean, value)
	}
	return out
}

// sanitizeLabelKey lowercases key and keeps only [a-z0-9_]
func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)
	var b strings.Builder
	for _, c := range key {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_':
			b.WriteRune(c)
		case c == ' ', c == '-':
			b.WriteByte('_')
		}
	}
	return b.String()
}

// OperationLabels builds labels for a named operation plus extras
func OperationLabels(operation string, extra map[string]string) map[string]string {
	labels := make(map[string]string, len(extra)+1)
	maps.Copy(labels, extra)
	labels[ProfilingLabelOperation] = operation
	return labels
}

// SettlementOperationLabels labels a settlement service call with its company
func SettlementOperationLabels(operation, companyID string) map[string]string {
	return OperationLabels(operation, map[string]string{ProfilingLabelCompanyID: companyID})
}

// HTTPRequestLabels labels an HTTP request by route and method
func HTTPRequestLabels(route, method string) map[string]string {
	labels := make(map[string]string, 2)
	if route != "" {
		labels[ProfilingLabelRoute] = route
	}
	if method != "" {
		labels[ProfilingLabelMethod] = method
	}
	return labels
}
