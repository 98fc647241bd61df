package main

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// GraphQL executes a GraphQL request against the books schema. Queries are
// accepted over GET and POST. Executed operations always answer 200 with the
// engine response, validation errors included.
//
//	@Summary	Execute a GraphQL query
//	@Accept		json
//	@Produce	json
//	@Param		request	body	GraphQLRequest	true	"GraphQL request"
//	@Success	200
//	@Failure	400	{object}	APIError
//	@Router		/graphql [post]
func (api *APIHandler) GraphQL(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	logger := api.GetLoggerFromContext(r.Context())

	var maxBytes int64
	if api.config != nil {
		maxBytes = api.config.GraphQL.MaxBodyBytes
	}
	req, err := DecodeGraphQLRequest(w, r, maxBytes)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, ErrRequestBodyTooLong):
			status = http.StatusRequestEntityTooLarge
		case errors.Is(err, ErrUnsupportedMethod):
			status = http.StatusMethodNotAllowed
		}
		logger.Error("failed to decode graphql request", zap.Error(err))
		errResp := NewAPIError(requestID, status, err.Error(), EmptyData)
		if err = WriteErrorResponse(r.Context(), w, errResp); err != nil {
			logger.Error("failed to send error response", zap.Error(err))
		}
		return
	}

	summary, ok := SummarizeOperation(req.Query, req.OperationName)
	if ok && r.Method == http.MethodGet && summary.Type != "query" {
		logger.Error("rejected graphql operation over GET", zap.String("graphql.operation", summary.Type))
		errResp := NewAPIError(requestID, http.StatusMethodNotAllowed, ErrMutationOverGET.Error(), EmptyData)
		if err = WriteErrorResponse(r.Context(), w, errResp); err != nil {
			logger.Error("failed to send error response", zap.Error(err))
		}
		return
	}

	resp := api.schema.Exec(r.Context(), req.Query, req.OperationName, req.Variables)
	failed := len(resp.Errors) > 0
	if api.metrics != nil {
		operation := summary.Type
		if !ok {
			operation = "unknown"
		}
		api.metrics.ObserveOperation(operation, failed)
	}

	fields := []zap.Field{
		zap.String("graphql.type", summary.Type),
		zap.String("graphql.name", summary.Name),
		zap.Strings("graphql.fields", summary.Fields),
	}
	if failed {
		logger.Warn("graphql operation returned errors", append(fields, zap.Any("graphql.errors", resp.Errors))...)
	} else {
		logger.Info("graphql operation executed", fields...)
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		logger.Error("failed to encode graphql response", zap.Error(err))
		errResp := NewAPIError(requestID, http.StatusInternalServerError, "failed to encode the response", EmptyData)
		if err = WriteErrorResponse(r.Context(), w, errResp); err != nil {
			logger.Error("failed to send error response", zap.Error(err))
		}
		return
	}

	if err = checkContextDone(r.Context(), w); err != nil {
		logger.Error("failed to send graphql response", zap.Error(err))
		return
	}
	w.Header().Set("Content-Type", JSONContentType)
	w.WriteHeader(http.StatusOK)
	if _, err = w.Write(payload); err != nil {
		logger.Error("failed to send graphql response", zap.Error(err))
	}
}

// GetSchema serves the schema definition language document.
//
//	@Summary	GraphQL schema definition
//	@Produce	plain
//	@Success	200	{string}	string
//	@Router		/v1/schema [get]
func (api *APIHandler) GetSchema(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	if _, err := io.WriteString(w, api.schema.SDL()); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send schema response", zap.Error(err))
	}
}

// Playground serves the interactive GraphQL client targeting the api endpoint.
func (api *APIHandler) Playground() httprouter.Handle {
	h := playground.Handler("Books GraphQL Playground", api.config.GraphQL.Path)
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		h.ServeHTTP(w, r)
	}
}
