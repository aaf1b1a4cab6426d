package interfaces

import (
	"context"
	"os"
	"time"
)

// CommandExecutor runs system commands
type CommandExecutor interface {
	// Execute runs a command and returns its standard output
	Execute(ctx context.Context, command string, args ...string) ([]byte, error)

	// ExecuteWithTimeout runs a command bounded by the given timeout
	ExecuteWithTimeout(ctx context.Context, timeout time.Duration, command string, args ...string) ([]byte, error)
}

// FileSystem abstracts file system access
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm os.FileMode) error
	Exists(path string) bool
	MkdirAll(path string, perm os.FileMode) error
	Remove(path string) error
	// ListFiles returns the names of regular files in a directory
	ListFiles(path string) ([]string, error)
}

// Clock abstracts time
type Clock interface {
	Now() time.Time
}

// OSDetector detects the host distribution family
type OSDetector interface {
	DetectOS() (OSType, error)
}

// OSType is a distribution family running NetworkManager
type OSType string

const (
	OSTypeUbuntu OSType = "ubuntu"
	OSTypeRHEL   OSType = "rhel"
	OSTypeSUSE   OSType = "suse"
)
