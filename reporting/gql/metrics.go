package gql

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	graphqlRequestsMetric   = promauto.NewCounter(prometheus.CounterOpts{Name: "graphql_requests", Help: "GraphQL requests served"})
	authorizationDenials    = promauto.NewCounter(prometheus.CounterOpts{Name: "graphql_authorization_denials", Help: "Field resolutions denied by the permission evaluator"})
	invalidPermissionMetric = promauto.NewCounter(prometheus.CounterOpts{Name: "graphql_invalid_permission_errors", Help: "Permission configuration errors surfaced during field resolution"})
	transactionRollbacks    = promauto.NewCounter(prometheus.CounterOpts{Name: "graphql_transaction_rollbacks", Help: "Request transactions rolled back because execution reported errors"})
)
