package adapters

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"netstate-agent/internal/domain/interfaces"
)

type MockFileSystemForOSDetector struct {
	mock.Mock
}

func (m *MockFileSystemForOSDetector) ReadFile(path string) ([]byte, error) {
	args := m.Called(path)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockFileSystemForOSDetector) WriteFile(path string, data []byte, perm os.FileMode) error {
	args := m.Called(path, data, perm)
	return args.Error(0)
}

func (m *MockFileSystemForOSDetector) Exists(path string) bool {
	args := m.Called(path)
	return args.Bool(0)
}

func (m *MockFileSystemForOSDetector) MkdirAll(path string, perm os.FileMode) error {
	args := m.Called(path, perm)
	return args.Error(0)
}

func (m *MockFileSystemForOSDetector) Remove(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockFileSystemForOSDetector) ListFiles(path string) ([]string, error) {
	args := m.Called(path)
	return args.Get(0).([]string), args.Error(1)
}

func TestRealOSDetector_DetectOS(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		readError   error
		expectedOS  interfaces.OSType
		expectError bool
	}{
		{
			name:       "ubuntu",
			content:    "NAME=\"Ubuntu\"\nID=ubuntu\nID_LIKE=debian\n",
			expectedOS: interfaces.OSTypeUbuntu,
		},
		{
			name:       "rocky via ID_LIKE",
			content:    "NAME=\"Rocky Linux\"\nID=\"rocky\"\nID_LIKE=\"rhel centos fedora\"\n",
			expectedOS: interfaces.OSTypeRHEL,
		},
		{
			name:       "fedora",
			content:    "ID=fedora\n",
			expectedOS: interfaces.OSTypeRHEL,
		},
		{
			name:       "sles",
			content:    "ID=\"sles\"\nID_LIKE=\"suse\"\n",
			expectedOS: interfaces.OSTypeSUSE,
		},
		{
			name:        "unknown distribution",
			content:     "ID=alpine\n",
			expectError: true,
		},
		{
			name:        "no ID field",
			content:     "NAME=Something\n",
			expectError: true,
		},
		{
			name:        "unreadable file",
			readError:   errors.New("permission denied"),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockFS := new(MockFileSystemForOSDetector)
			mockFS.On("ReadFile", OSReleasePath).Return([]byte(tt.content), tt.readError)

			detector := NewRealOSDetector(mockFS)
			result, err := detector.DetectOS()

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedOS, result)
			}

			mockFS.AssertExpectations(t)
		})
	}
}

func TestRealFileSystem(t *testing.T) {
	dir := t.TempDir()
	fs := NewRealFileSystem()
	path := filepath.Join(dir, "conns", "eth1-802-3-ethernet.nmconnection")

	require.NoError(t, fs.WriteFile(path, []byte("[connection]\n"), 0600))
	assert.True(t, fs.Exists(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := fs.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[connection]\n", string(data))

	files, err := fs.ListFiles(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, []string{"eth1-802-3-ethernet.nmconnection"}, files)

	require.NoError(t, fs.Remove(path))
	assert.False(t, fs.Exists(path))
}
