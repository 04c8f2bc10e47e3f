// Package mocks provides a testify mock of runner.Runner.
package mocks

import (
	"context"

	"github.com/ZebulonRouseFrantzich/studiosdk/internal/runner"
	"github.com/stretchr/testify/mock"
)

// Runner is a mock implementation of runner.Runner.
type Runner struct {
	mock.Mock
}

// Run records the call. Expectations match on the name followed by each
// argument, e.g. On("Run", mock.Anything, "unzip", "-q", "-d", dir, zip).
func (m *Runner) Run(ctx context.Context, name string, args ...string) (runner.Result, error) {
	callArgs := make([]interface{}, 0, len(args)+2)
	callArgs = append(callArgs, ctx, name)
	for _, a := range args {
		callArgs = append(callArgs, a)
	}
	ret := m.Called(callArgs...)

	var res runner.Result
	if rf, ok := ret.Get(0).(func() runner.Result); ok {
		res = rf()
	} else if ret.Get(0) != nil {
		res = ret.Get(0).(runner.Result)
	}
	return res, ret.Error(1)
}

// Exists records the call.
func (m *Runner) Exists(path string) bool {
	return m.Called(path).Bool(0)
}

var _ runner.Runner = (*Runner)(nil)
