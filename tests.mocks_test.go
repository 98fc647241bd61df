package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// This file contains mocks definitions needed to perform unit tests.

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// StepClocker moves forward by one second at each call.
type StepClocker struct {
	current time.Time
}

func (sc *StepClocker) Now() time.Time {
	sc.current = sc.current.Add(time.Second)
	return sc.current
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
	Valid     bool
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string, valid bool) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id, Valid: valid}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// IsValid mocks IsValid behavior by providing configured status.
func (muid *MockUIDHandler) IsValid(_, _ string) bool {
	return muid.Valid
}

// newTestSchema builds the executable schema over the embedded catalog.
func newTestSchema(t *testing.T) *GraphQLSchema {
	t.Helper()
	catalog, err := DefaultCatalog()
	require.NoError(t, err)
	schema, err := NewGraphQLSchema(DefaultConfig(), zap.NewNop(), NewResolver(catalog))
	require.NoError(t, err)
	return schema
}

// newTestAPIHandler provides an api handler with mocked clock and ids.
// A nil config means the default one.
func newTestAPIHandler(t *testing.T, config *Config) *APIHandler {
	t.Helper()
	if config == nil {
		config = DefaultConfig()
	}
	return NewAPIHandler(
		zap.NewNop(),
		config,
		&Statistics{started: NewMockClocker().Now()},
		NewMockClocker(),
		NewMockUIDHandler("abc", true),
		newTestSchema(t),
		NewMetrics("test", "test"),
	)
}

// noMiddlewares returns a map which does not wrap handlers.
func noMiddlewares() *MiddlewareMap {
	return &MiddlewareMap{public: (&Middlewares{}).Chain, ops: (&Middlewares{}).Chain}
}
