package persistence

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netstate-agent/internal/domain/nm"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestRepository(t *testing.T) *SQLProfileRepository {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	repo := NewSQLProfileRepository(db, fixedClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}, logger)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func profile(id, nmType, uuid string, mtu uint64) *nm.Connection {
	return &nm.Connection{
		Connection: &nm.ConnectionSetting{ID: id, UUID: uuid, Type: nmType, InterfaceName: id},
		Wired:      &nm.WiredSetting{MTU: &mtu},
	}
}

func TestSQLProfileRepository_SaveAndList(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	eth1 := profile("eth1", nm.TypeEthernet, "0b6a5a4e-8a3e-4c3c-9a51-2f9f4c1e1d11", 1500)
	br0 := &nm.Connection{
		Connection: &nm.ConnectionSetting{ID: "br0", UUID: "5c1c41a0-3f55-4a43-9d0e-6d1b4a2c9e10", Type: nm.TypeOvsBridge},
		OvsBridge:  &nm.OvsBridgeSetting{FailMode: "secure"},
	}
	br0Port := &nm.Connection{
		Connection: &nm.ConnectionSetting{ID: "br0", UUID: "7d2e6f7a-1b2c-4d5e-8f90-a1b2c3d4e5f6", Type: nm.TypeOvsPort, Controller: "br0"},
		OvsPort:    &nm.OvsPortSetting{VlanMode: "access"},
	}

	require.NoError(t, repo.SaveProfiles(ctx, "node-1", []*nm.Connection{eth1, br0, br0Port}))
	require.NoError(t, repo.SaveProfiles(ctx, "node-2", []*nm.Connection{profile("eth9", nm.TypeEthernet, "1e0f5d9c-2b8a-4c71-9d3e-5f6a7b8c9d0e", 9000)}))

	got, err := repo.ListProfiles(ctx, "node-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, nm.ProfileKey{ID: "br0", Type: nm.TypeOvsBridge}, got[0].Key())
	assert.Equal(t, nm.ProfileKey{ID: "br0", Type: nm.TypeOvsPort}, got[1].Key())
	assert.Equal(t, eth1, got[2])
	assert.Equal(t, "secure", got[0].OvsBridge.FailMode)

	// saving again replaces the row
	require.NoError(t, repo.SaveProfiles(ctx, "node-1", []*nm.Connection{profile("eth1", nm.TypeEthernet, "0b6a5a4e-8a3e-4c3c-9a51-2f9f4c1e1d11", 9000)}))
	got, err = repo.ListProfiles(ctx, "node-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, uint64(9000), *got[2].Wired.MTU)

	other, err := repo.ListProfiles(ctx, "node-2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "eth9", other[0].Connection.ID)
}

func TestSQLProfileRepository_DeleteProfiles(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	require.NoError(t, repo.SaveProfiles(ctx, "node-1", []*nm.Connection{
		profile("eth1", nm.TypeEthernet, "0b6a5a4e-8a3e-4c3c-9a51-2f9f4c1e1d11", 1500),
		profile("eth2", nm.TypeEthernet, "2a3b4c5d-6e7f-4a8b-9c0d-1e2f3a4b5c6d", 1500),
	}))

	require.NoError(t, repo.DeleteProfiles(ctx, "node-1", []nm.ProfileKey{
		{ID: "eth1", Type: nm.TypeEthernet},
		{ID: "missing", Type: nm.TypeDummy},
	}))

	got, err := repo.ListProfiles(ctx, "node-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "eth2", got[0].Connection.ID)
}

func TestSQLProfileRepository_SkipsUndecodableRows(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.db.ExecContext(ctx,
		"INSERT INTO network_profile (node_name, profile_id, profile_type, uuid, content, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		"node-1", "bad", nm.TypeDummy, "", "connection: [", "now")
	require.NoError(t, err)
	require.NoError(t, repo.SaveProfiles(ctx, "node-1", []*nm.Connection{profile("eth1", nm.TypeEthernet, "0b6a5a4e-8a3e-4c3c-9a51-2f9f4c1e1d11", 1500)}))

	got, err := repo.ListProfiles(ctx, "node-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "eth1", got[0].Connection.ID)
}

func TestSQLProfileRepository_EmptyInputIsNoop(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	assert.NoError(t, repo.SaveProfiles(ctx, "node-1", nil))
	assert.NoError(t, repo.DeleteProfiles(ctx, "node-1", nil))

	got, err := repo.ListProfiles(ctx, "node-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}
