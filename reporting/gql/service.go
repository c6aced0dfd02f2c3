// Package gql serves the reporting GraphQL API. Every request executes inside
// a single database transaction: if execution reports any error the whole
// transaction rolls back, so partial mutation results never persist.
package gql

import (
	"errors"
	"fmt"
	"net/http"

	"diversity_platform/reporting/auth"
	"diversity_platform/utils"

	"github.com/go-chi/chi/v5"
	"github.com/graphql-go/graphql"
	"gorm.io/gorm"
)

var errExecutionFailed = errors.New("graphql execution reported errors")

type Service struct {
	db       *gorm.DB
	schema   graphql.Schema
	userAuth auth.IdentityProvider
	auditLog auth.AuditLogger
}

func NewService(db *gorm.DB, userAuth auth.IdentityProvider, auditLog auth.AuditLogger) (*Service, error) {
	schema, err := BuildSchema()
	if err != nil {
		return nil, fmt.Errorf("error building graphql schema: %w", err)
	}

	return &Service{db: db, schema: schema, userAuth: userAuth, auditLog: auditLog}, nil
}

func (s *Service) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.OptionalAuthMiddleware()...)
		r.Use(s.auditLog.Middleware)

		r.Post("/", s.Execute)
	})

	return r
}

type graphqlRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// Execute runs one GraphQL document. The response body always carries the
// execution result, including its error list; transport-level failures are the
// only thing reported as a non-200.
func (s *Service) Execute(w http.ResponseWriter, r *http.Request) {
	var req graphqlRequest
	if !utils.ParseRequestBody(w, r, &req) {
		return
	}

	graphqlRequestsMetric.Inc()

	var response *graphql.Result
	err := s.db.Transaction(func(txn *gorm.DB) error {
		response = graphql.Do(graphql.Params{
			Schema:         s.schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        WithTxn(r.Context(), txn),
		})
		if response.HasErrors() {
			return errExecutionFailed
		}
		return nil
	})
	if err != nil {
		transactionRollbacks.Inc()
		if !errors.Is(err, errExecutionFailed) {
			http.Error(w, fmt.Sprintf("error executing request: %v", err), http.StatusInternalServerError)
			return
		}
	}

	utils.WriteJsonResponse(w, response)
}
