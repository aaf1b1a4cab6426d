package network

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"netstate-agent/internal/domain/entities"
	domainErrors "netstate-agent/internal/domain/errors"
	"netstate-agent/internal/infrastructure/adapters"
)

func TestFileStateSource_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "desired.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
interfaces:
  - name: br0
    type: linux-bridge
    bridge:
      port:
        - name: eth1
  - name: eth1
    type: ethernet
`), 0644))

	source := NewFileStateSource(adapters.NewRealFileSystem(), path, testLogger())
	state, err := source.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"br0", "eth1"}, state.Interfaces.Names())
	assert.IsType(t, &entities.LinuxBridgeInterface{}, state.Interfaces[0])
}

func TestFileStateSource_Errors(t *testing.T) {
	dir := t.TempDir()
	fs := adapters.NewRealFileSystem()

	_, err := NewFileStateSource(fs, filepath.Join(dir, "missing.yaml"), testLogger()).Load(context.Background())
	require.Error(t, err)
	assert.True(t, domainErrors.IsNotFoundError(err))

	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
interfaces:
  - name: br0
    type: linux-bridge
    bridge:
      unknown-knob: 1
`), 0644))
	_, err = NewFileStateSource(fs, path, testLogger()).Load(context.Background())
	require.Error(t, err)
	assert.True(t, domainErrors.IsInvalidArgumentError(err))
}

func TestNmstatectlStateProvider_CurrentState(t *testing.T) {
	executor := new(MockCommandExecutor)
	executor.On("ExecuteWithTimeout", mock.Anything, mock.Anything, "nmstatectl", "show", "--json").
		Return([]byte(`{
  "hostname": {"running": "node-1"},
  "interfaces": [
    {"name": "lo", "type": "loopback", "state": "up", "mtu": 65536},
    {"name": "eth1", "type": "ethernet", "state": "up", "mtu": 1500, "driver": "virtio_net",
     "controller": "br0"},
    {"name": "br0", "type": "linux-bridge", "state": "up",
     "bridge": {"port": [{"name": "eth1"}]}}
  ],
  "routes": {"running": []}
}`), nil)

	provider := NewNmstatectlStateProvider(executor, 0, testLogger())
	ifaces, err := provider.CurrentState(context.Background())
	require.NoError(t, err)
	require.Len(t, ifaces, 3)
	assert.Equal(t, []string{"lo", "eth1", "br0"}, ifaces.Names())
	assert.IsType(t, &entities.UnknownInterface{}, ifaces[0])
	assert.Equal(t, "br0", ifaces[1].Base().ControllerName())
	executor.AssertExpectations(t)
}

func TestNmstatectlStateProvider_CommandFailure(t *testing.T) {
	executor := new(MockCommandExecutor)
	executor.On("ExecuteWithTimeout", mock.Anything, mock.Anything, "nmstatectl", "show", "--json").
		Return([]byte(nil), errors.New("nmstatectl: command not found"))

	provider := NewNmstatectlStateProvider(executor, 0, testLogger())
	_, err := provider.CurrentState(context.Background())
	require.Error(t, err)
	assert.True(t, domainErrors.IsNetworkError(err))
}

func TestFileStateProvider_CurrentState(t *testing.T) {
	fs := adapters.NewRealFileSystem()

	empty, err := NewFileStateProvider(fs, "").CurrentState(context.Background())
	require.NoError(t, err)
	assert.Empty(t, empty)

	path := filepath.Join(t.TempDir(), "current.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"interfaces":[
		{"name":"eth1","type":"ethernet","state":"up","mtu":1500,"driver":"virtio_net"}
	]}`), 0644))

	ifaces, err := NewFileStateProvider(fs, path).CurrentState(context.Background())
	require.NoError(t, err)
	require.Len(t, ifaces, 1)
	assert.IsType(t, &entities.EthernetInterface{}, ifaces[0])

	_, err = NewFileStateProvider(fs, filepath.Join(t.TempDir(), "missing.json")).CurrentState(context.Background())
	assert.True(t, domainErrors.IsSystemError(err))
}
