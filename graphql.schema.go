package main

import (
	"bytes"
	"context"
	_ "embed"

	"github.com/graph-gophers/graphql-go"
	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"go.uber.org/zap"
)

//go:embed schema.graphql
var schemaSDL string

// GraphQLSchema bundles the executable schema with its canonical
// SDL rendering served to clients.
type GraphQLSchema struct {
	*graphql.Schema
	sdl string
}

// SDL returns the formatted schema definition.
func (s *GraphQLSchema) SDL() string {
	return s.sdl
}

// NewGraphQLSchema checks the schema definition then binds it to the resolver.
// A nil config means no depth limit and the engine default parallelism.
func NewGraphQLSchema(config *Config, logger *zap.Logger, resolver *Resolver) (*GraphQLSchema, error) {
	sdl, err := FormatSDL(schemaSDL)
	if err != nil {
		return nil, err
	}

	opts := []graphql.SchemaOpt{graphql.Logger(&zapPanicLogger{logger})}
	if config != nil {
		if config.GraphQL.MaxDepth > 0 {
			opts = append(opts, graphql.MaxDepth(config.GraphQL.MaxDepth))
		}
		if config.GraphQL.MaxParallelism > 0 {
			opts = append(opts, graphql.MaxParallelism(config.GraphQL.MaxParallelism))
		}
	}

	schema, err := graphql.ParseSchema(schemaSDL, resolver, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to bind schema to resolvers")
	}
	return &GraphQLSchema{Schema: schema, sdl: sdl}, nil
}

// FormatSDL validates a schema document and returns its canonical form.
func FormatSDL(input string) (string, error) {
	doc, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: input})
	if err != nil {
		return "", errors.Wrap(err, "invalid schema definition")
	}
	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatSchema(doc)
	return buf.String(), nil
}

// zapPanicLogger reports resolver panics recovered by the engine.
type zapPanicLogger struct {
	logger *zap.Logger
}

func (l *zapPanicLogger) LogPanic(ctx context.Context, value interface{}) {
	logger := l.logger
	if v, ok := ctx.Value(LoggerContextKey).(*zap.Logger); ok {
		logger = v
	}
	logger.Error("graphql: resolver panic", zap.Any("error", value), zap.Stack("stack"))
}
