package main

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

var (
	ErrMissingQuery       = errors.New("query is required")
	ErrUnsupportedMethod  = errors.New("only GET and POST are supported")
	ErrMutationOverGET    = errors.New("only query operations are allowed over GET")
	ErrRequestBodyTooLong = errors.New("request body too large")
)

// GraphQLRequest is the payload of a GraphQL over HTTP call.
type GraphQLRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// OperationSummary describes the executed operation for logging and metrics.
type OperationSummary struct {
	Type   string
	Name   string
	Fields []string
}

// DecodeGraphQLRequest reads a GraphQL request either from the url query
// parameters (GET) or from the json body (POST). The body is limited to
// maxBytes when it is positive.
func DecodeGraphQLRequest(w http.ResponseWriter, r *http.Request, maxBytes int64) (GraphQLRequest, error) {
	var req GraphQLRequest
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if vars := q.Get("variables"); vars != "" {
			if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
				return req, errors.Wrap(err, "invalid variables parameter")
			}
		}
	case http.MethodPost:
		if r.Body == nil {
			return req, ErrMissingQuery
		}
		body := io.Reader(r.Body)
		if maxBytes > 0 {
			body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		if isGraphQLContentType(r.Header.Get("Content-Type")) {
			data, err := io.ReadAll(body)
			if err != nil {
				return req, wrapBodyError(err)
			}
			req.Query = string(data)
		} else if err := json.NewDecoder(body).Decode(&req); err != nil {
			return req, wrapBodyError(err)
		}
	default:
		return req, ErrUnsupportedMethod
	}

	if strings.TrimSpace(req.Query) == "" {
		return req, ErrMissingQuery
	}
	return req, nil
}

func isGraphQLContentType(value string) bool {
	mediaType, _, err := mime.ParseMediaType(value)
	return err == nil && mediaType == "application/graphql"
}

func wrapBodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return ErrRequestBodyTooLong
	}
	return errors.Wrap(err, "invalid request body")
}

// SummarizeOperation parses the query document and reports the selected
// operation. It returns false when the document cannot be parsed or the
// operation cannot be determined. Validation is left to the engine.
func SummarizeOperation(query, operationName string) (OperationSummary, bool) {
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		return OperationSummary{}, false
	}

	op := selectOperation(doc, operationName)
	if op == nil {
		return OperationSummary{}, false
	}

	summary := OperationSummary{Type: string(op.Operation), Name: op.Name}
	for _, sel := range op.SelectionSet {
		switch s := sel.(type) {
		case *ast.Field:
			summary.Fields = append(summary.Fields, s.Name)
		case *ast.FragmentSpread:
			summary.Fields = append(summary.Fields, "..."+s.Name)
		case *ast.InlineFragment:
			summary.Fields = append(summary.Fields, "...on "+s.TypeCondition)
		}
	}
	return summary, true
}

func selectOperation(doc *ast.QueryDocument, operationName string) *ast.OperationDefinition {
	if operationName != "" {
		return doc.Operations.ForName(operationName)
	}
	if len(doc.Operations) == 1 {
		return doc.Operations[0]
	}
	return nil
}
