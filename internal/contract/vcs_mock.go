package contract

import (
	"context"

	"github.com/huangsam/insight/schema"
	"github.com/stretchr/testify/mock"
)

// MockVCSClient is a mock implementation of VCSClient for testing.
type MockVCSClient struct {
	mock.Mock
}

var _ VCSClient = &MockVCSClient{} // Compile-time check

// Backend implements VCSClient.
func (m *MockVCSClient) Backend() schema.VCSBackend {
	args := m.Called()
	return args.Get(0).(schema.VCSBackend)
}

// Run implements VCSClient.
func (m *MockVCSClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	mockArgs := []any{ctx, repoPath}
	for _, arg := range args {
		mockArgs = append(mockArgs, arg)
	}
	ret := m.Called(mockArgs...)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}

// GetRepoRoot implements VCSClient.
func (m *MockVCSClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	args := m.Called(ctx, contextPath)
	return args.String(0), args.Error(1)
}

// GetHeadRevision implements VCSClient.
func (m *MockVCSClient) GetHeadRevision(ctx context.Context, repoPath string) (string, error) {
	args := m.Called(ctx, repoPath)
	return args.String(0), args.Error(1)
}

// GetServerPrefix implements VCSClient.
func (m *MockVCSClient) GetServerPrefix(ctx context.Context, repoPath string) (string, error) {
	args := m.Called(ctx, repoPath)
	return args.String(0), args.Error(1)
}

// ExportLog implements VCSClient.
func (m *MockVCSClient) ExportLog(ctx context.Context, repoPath string) ([]byte, error) {
	args := m.Called(ctx, repoPath)
	output, _ := args.Get(0).([]byte)
	return output, args.Error(1)
}

// ListTrackedFiles implements VCSClient.
func (m *MockVCSClient) ListTrackedFiles(ctx context.Context, repoPath string) ([]string, error) {
	args := m.Called(ctx, repoPath)
	files, _ := args.Get(0).([]string)
	return files, args.Error(1)
}
