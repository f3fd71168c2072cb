package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(toolExecutions)
}

var toolExecutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tool_executions_total",
		Help: "Count of model-requested tool executions per tool/status.",
	},
	[]string{"tool", "status"},
)

func ToolExecuted(tool string, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	toolExecutions.WithLabelValues(norm(tool), status).Inc()
}
