// Package captchatest provides a testify mock of captcha.Solver.
package captchatest

import (
	"context"

	"github.com/mjlescano/playcha/internal/domain/challenge"
	"github.com/mjlescano/playcha/internal/providers/browser"
	"github.com/stretchr/testify/mock"
)

// MockSolver is a mock implementation of captcha.Solver
type MockSolver struct {
	mock.Mock
}

// NewMockSolver returns a mock with no expectations
func NewMockSolver() *MockSolver {
	return &MockSolver{}
}

// AllowLifecycle registers permissive Name, Enter and Exit expectations
func (m *MockSolver) AllowLifecycle() *MockSolver {
	m.On("Name").Return("mock").Maybe()
	m.On("Enter", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("Exit", mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}

func (m *MockSolver) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockSolver) Enter(ctx context.Context, page browser.Page) error {
	args := m.Called(ctx, page)
	return args.Error(0)
}

func (m *MockSolver) Exit(ctx context.Context, page browser.Page) error {
	args := m.Called(ctx, page)
	return args.Error(0)
}

func (m *MockSolver) Solve(ctx context.Context, page browser.Page, kind challenge.Kind) (string, error) {
	args := m.Called(ctx, page, kind)
	return args.String(0), args.Error(1)
}
