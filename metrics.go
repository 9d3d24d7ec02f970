package appchain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "appchain"

var (
	metricTransactionsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "transactions_sent_total",
		Help:      "transactions submitted to the node, by kind",
	}, []string{"kind"})

	metricReceiptPolls = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "receipt_polls_total",
		Help:      "getTransactionReceipt requests issued while waiting on a receipt",
	})

	metricReceiptWait = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "receipt_wait_seconds",
		Help:      "time spent waiting on a receipt, by outcome",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
	}, []string{"outcome"})

	metricRpcErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "rpc_errors_total",
		Help:      "failed json-rpc calls, by method",
	}, []string{"method"})
)

const (
	txKindDeploy   = "deploy"
	txKindStoreAbi = "store_abi"
	txKindOther    = "other"
)
