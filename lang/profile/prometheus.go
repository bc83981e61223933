// Mgmt
// Copyright (C) James Shubin and the project contributors
// Written by James Shubin <james@shubin.ca> and the project contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package profile

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/purpleidea/xqeval/lang/interfaces"
	"github.com/purpleidea/xqeval/lang/types"
	"github.com/purpleidea/xqeval/util"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultPrometheusListen is the default address of the metrics listener.
const DefaultPrometheusListen = "127.0.0.1:9233"

// Prometheus is a profiler which counts the evaluations per node kind and
// keeps their durations. Run Init() on it. The metrics live in their own
// registry, so several instances can exist side by side.
type Prometheus struct {
	Listen string // the listen specification for the net/http server

	// Logf receives the errors of the http server. It may be nil.
	Logf func(format string, v ...interface{})

	registry *prometheus.Registry
	timer    *timer

	evalTotal               *prometheus.CounterVec   // total of node evaluations
	evalSeconds             *prometheus.HistogramVec // evaluation time per node kind
	messagesTotal           *prometheus.CounterVec   // total of optimizer messages
	processStartTimeSeconds prometheus.Gauge         // process start time in seconds since unix epoch
}

// Init some parameters - currently the Listen address - and the metrics.
func (obj *Prometheus) Init() error {
	if len(obj.Listen) == 0 {
		obj.Listen = DefaultPrometheusListen
	}
	obj.registry = prometheus.NewRegistry()
	obj.timer = &timer{}

	obj.evalTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xqeval_eval_total",
			Help: "Number of node evaluations.",
		},
		// kind: node type: ExprFor, ExprCall, ...
		// errorful: did the evaluation fail
		[]string{"kind", "errorful"},
	)
	obj.evalSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "xqeval_eval_seconds",
			Help:    "Evaluation time of the nodes.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 10, 7),
		},
		[]string{"kind"},
	)
	obj.messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xqeval_messages_total",
			Help: "Number of optimizer messages.",
		},
		[]string{"kind", "title"},
	)
	obj.processStartTimeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "xqeval_process_start_time_seconds",
			Help: "Start time of the process since unix epoch in seconds.",
		},
	)
	for _, c := range []prometheus.Collector{obj.evalTotal, obj.evalSeconds, obj.messagesTotal, obj.processStartTimeSeconds} {
		if err := obj.registry.Register(c); err != nil {
			return err
		}
	}
	// directly set the processStartTimeSeconds
	obj.processStartTimeSeconds.SetToCurrentTime()
	return nil
}

// Gatherer returns the registry of the metrics.
func (obj *Prometheus) Gatherer() prometheus.Gatherer { return obj.registry }

// Run serves /metrics as prometheus would expect until the context is
// cancelled.
func (obj *Prometheus) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(obj.registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:    obj.Listen,
		Handler: mux,
	}
	if obj.Logf != nil {
		server.ErrorLog = log.New(&util.LogWriter{Prefix: "prometheus: ", Logf: obj.Logf}, "", 0)
	}
	errch := make(chan error, 1)
	go func() {
		errch <- server.ListenAndServe()
	}()
	select {
	case err := <-errch:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdown)
}

// Enabled returns true.
func (obj *Prometheus) Enabled() bool { return true }

// Start records the start of a node.
func (obj *Prometheus) Start(expr interfaces.Expr, contextSeq types.Sequence) {
	obj.timer.start(expr)
}

// End counts the evaluation and observes its duration.
func (obj *Prometheus) End(expr interfaces.Expr, result types.Sequence) {
	kind := Kind(expr)
	labels := prometheus.Labels{"kind": kind, "errorful": strconv.FormatBool(result == nil)}
	obj.evalTotal.With(labels).Inc()
	if d, ok := obj.timer.end(expr); ok {
		obj.evalSeconds.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// Message counts an optimizer message.
func (obj *Prometheus) Message(expr interfaces.Expr, kind, title, msg string) {
	obj.messagesTotal.WithLabelValues(kind, title).Inc()
}
