package usecases

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"netstate-agent/internal/domain/entities"
	domainErrors "netstate-agent/internal/domain/errors"
	"netstate-agent/internal/domain/nm"
	"netstate-agent/internal/domain/services"
)

type MockDesiredStateSource struct {
	mock.Mock
}

func (m *MockDesiredStateSource) Load(ctx context.Context) (*entities.NetworkState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.NetworkState), args.Error(1)
}

type MockStateProvider struct {
	mock.Mock
}

func (m *MockStateProvider) CurrentState(ctx context.Context) (entities.Interfaces, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(entities.Interfaces), args.Error(1)
}

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) ListProfiles(ctx context.Context, nodeName string) ([]*nm.Connection, error) {
	args := m.Called(ctx, nodeName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*nm.Connection), args.Error(1)
}

func (m *MockProfileRepository) SaveProfiles(ctx context.Context, nodeName string, profiles []*nm.Connection) error {
	args := m.Called(ctx, nodeName, profiles)
	return args.Error(0)
}

func (m *MockProfileRepository) DeleteProfiles(ctx context.Context, nodeName string, keys []nm.ProfileKey) error {
	args := m.Called(ctx, nodeName, keys)
	return args.Error(0)
}

type MockProfileApplier struct {
	mock.Mock
}

func (m *MockProfileApplier) Apply(ctx context.Context, profiles []*nm.Connection) error {
	args := m.Called(ctx, profiles)
	return args.Error(0)
}

func (m *MockProfileApplier) Delete(ctx context.Context, keys []nm.ProfileKey) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *MockProfileApplier) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockProfileApplier) Commit() {
	m.Called()
}

type fixture struct {
	source     *MockDesiredStateSource
	provider   *MockStateProvider
	repository *MockProfileRepository
	applier    *MockProfileApplier
	useCase    *ApplyNetworkStateUseCase
}

func newFixture(verify bool) *fixture {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &fixture{
		source:     new(MockDesiredStateSource),
		provider:   new(MockStateProvider),
		repository: new(MockProfileRepository),
		applier:    new(MockProfileApplier),
	}
	f.useCase = NewApplyNetworkStateUseCase(
		f.source, f.provider, f.repository, f.applier,
		services.NewStateReconciler(logger),
		services.NewStateVerifier(logger),
		ApplyOptions{StableUUID: true, Verify: verify, VerifyRetries: 2, VerifyInterval: time.Millisecond},
		logger,
	)
	return f
}

func desired(t *testing.T, doc string) *entities.NetworkState {
	t.Helper()
	state, err := entities.ParseDesiredState([]byte(doc))
	require.NoError(t, err)
	return state
}

func current(t *testing.T, doc string) entities.Interfaces {
	t.Helper()
	state, err := entities.ParseCurrentState([]byte(doc))
	require.NoError(t, err)
	return state.Interfaces
}

const (
	desiredDoc = `
interfaces:
- name: dummy0
  type: dummy
  mtu: 1400
- name: dummy1
  type: dummy
  state: absent
`
	beforeDoc = `
interfaces:
- name: dummy0
  type: dummy
  state: up
  mtu: 1500
- name: dummy1
  type: dummy
  state: up
`
	afterDoc = `
interfaces:
- name: dummy0
  type: dummy
  state: up
  mtu: 1400
`
)

var dummy1Key = []nm.ProfileKey{{ID: "dummy1", Type: nm.TypeDummy}}

func TestApplyNetworkState_Success(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	f.source.On("Load", ctx).Return(desired(t, desiredDoc), nil)
	f.provider.On("CurrentState", ctx).Return(current(t, beforeDoc), nil).Once()
	f.provider.On("CurrentState", ctx).Return(current(t, afterDoc), nil).Once()
	f.repository.On("ListProfiles", ctx, "node-1").Return(nil, nil)
	f.applier.On("Delete", ctx, dummy1Key).Return(nil)
	f.applier.On("Apply", ctx, mock.MatchedBy(func(p []*nm.Connection) bool {
		return len(p) == 1 && p[0].Key() == nm.ProfileKey{ID: "dummy0", Type: nm.TypeDummy}
	})).Return(nil)
	f.repository.On("SaveProfiles", ctx, "node-1", mock.Anything).Return(nil)
	f.repository.On("DeleteProfiles", ctx, "node-1", dummy1Key).Return(nil)
	f.applier.On("Commit").Return()

	output, err := f.useCase.Execute(ctx, ApplyNetworkStateInput{NodeName: "node-1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"dummy0"}, output.Changed)
	assert.Equal(t, dummy1Key, output.Deleted)
	require.Len(t, output.Applied, 1)
	assert.Equal(t, nm.StableUUID("dummy0", nm.TypeDummy), output.Applied[0].Connection.UUID)
	assert.Equal(t, 0, output.Unchanged)

	f.applier.AssertNotCalled(t, "Rollback", mock.Anything)
	f.provider.AssertNumberOfCalls(t, "CurrentState", 2)
	f.source.AssertExpectations(t)
	f.repository.AssertExpectations(t)
	f.applier.AssertExpectations(t)
}

func TestApplyNetworkState_VerificationFailureRollsBack(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	f.source.On("Load", ctx).Return(desired(t, desiredDoc), nil)
	f.provider.On("CurrentState", ctx).Return(current(t, beforeDoc), nil)
	f.repository.On("ListProfiles", ctx, "node-1").Return(nil, nil)
	f.applier.On("Delete", ctx, dummy1Key).Return(nil)
	f.applier.On("Apply", ctx, mock.Anything).Return(nil)
	f.applier.On("Rollback", ctx).Return(nil)

	output, err := f.useCase.Execute(ctx, ApplyNetworkStateInput{NodeName: "node-1"})
	require.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, domainErrors.IsVerificationError(err))

	// initial query plus two verification attempts
	f.provider.AssertNumberOfCalls(t, "CurrentState", 3)
	f.applier.AssertCalled(t, "Rollback", ctx)
	f.applier.AssertNotCalled(t, "Commit")
	f.repository.AssertNotCalled(t, "SaveProfiles", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyNetworkState_ApplyFailureRollsBack(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	f.source.On("Load", ctx).Return(desired(t, desiredDoc), nil)
	f.provider.On("CurrentState", ctx).Return(current(t, beforeDoc), nil)
	f.repository.On("ListProfiles", ctx, "node-1").Return(nil, nil)
	f.applier.On("Delete", ctx, dummy1Key).Return(nil)
	f.applier.On("Apply", ctx, mock.Anything).Return(domainErrors.NewNetworkError("activation failed", nil))
	f.applier.On("Rollback", ctx).Return(errors.New("restore failed"))

	_, err := f.useCase.Execute(ctx, ApplyNetworkStateInput{NodeName: "node-1"})
	require.Error(t, err)
	assert.True(t, domainErrors.IsNetworkError(err))

	f.applier.AssertCalled(t, "Rollback", ctx)
	f.provider.AssertNumberOfCalls(t, "CurrentState", 1)
	f.repository.AssertNotCalled(t, "SaveProfiles", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyNetworkState_StoreFailureKeepsAppliedState(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	f.source.On("Load", ctx).Return(desired(t, desiredDoc), nil)
	f.provider.On("CurrentState", ctx).Return(current(t, beforeDoc), nil).Once()
	f.provider.On("CurrentState", ctx).Return(current(t, afterDoc), nil).Once()
	f.repository.On("ListProfiles", ctx, "node-1").Return(nil, nil)
	f.applier.On("Delete", ctx, dummy1Key).Return(nil)
	f.applier.On("Apply", ctx, mock.Anything).Return(nil)
	f.applier.On("Commit").Return()
	f.repository.On("SaveProfiles", ctx, "node-1", mock.Anything).
		Return(domainErrors.NewSystemError("store down", nil))

	output, err := f.useCase.Execute(ctx, ApplyNetworkStateInput{NodeName: "node-1"})
	require.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, domainErrors.IsSystemError(err))

	// the journal is closed so a later failed pass cannot undo this one
	f.applier.AssertCalled(t, "Commit")
	f.applier.AssertNotCalled(t, "Rollback", mock.Anything)
	f.repository.AssertNotCalled(t, "DeleteProfiles", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyNetworkState_DryRun(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	f.source.On("Load", ctx).Return(desired(t, desiredDoc), nil)
	f.provider.On("CurrentState", ctx).Return(current(t, beforeDoc), nil)
	f.repository.On("ListProfiles", ctx, "node-1").Return(nil, nil)

	output, err := f.useCase.Execute(ctx, ApplyNetworkStateInput{NodeName: "node-1", DryRun: true})
	require.NoError(t, err)
	assert.Len(t, output.Applied, 1)
	assert.Equal(t, dummy1Key, output.Deleted)

	assert.Empty(t, f.applier.Calls)
	f.repository.AssertNotCalled(t, "SaveProfiles", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyNetworkState_Converged(t *testing.T) {
	const convergedDoc = `
interfaces:
- name: dummy0
  type: dummy
  mtu: 1400
`
	ctx := context.Background()

	// compile once to obtain what a previous pass would have stored
	first := newFixture(false)
	first.source.On("Load", ctx).Return(desired(t, convergedDoc), nil)
	first.provider.On("CurrentState", ctx).Return(current(t, beforeDoc), nil)
	first.repository.On("ListProfiles", ctx, "node-1").Return(nil, nil)
	previous, err := first.useCase.Execute(ctx, ApplyNetworkStateInput{NodeName: "node-1", DryRun: true})
	require.NoError(t, err)
	require.Len(t, previous.Applied, 1)

	t.Run("host matches", func(t *testing.T) {
		f := newFixture(true)
		f.source.On("Load", ctx).Return(desired(t, convergedDoc), nil)
		f.provider.On("CurrentState", ctx).Return(current(t, afterDoc), nil)
		f.repository.On("ListProfiles", ctx, "node-1").Return(previous.Applied, nil)

		output, err := f.useCase.Execute(ctx, ApplyNetworkStateInput{NodeName: "node-1"})
		require.NoError(t, err)
		assert.Empty(t, output.Applied)
		assert.Equal(t, 1, output.Unchanged)
		assert.Empty(t, f.applier.Calls)
	})

	t.Run("host drifted", func(t *testing.T) {
		f := newFixture(false)
		f.source.On("Load", ctx).Return(desired(t, convergedDoc), nil)
		f.provider.On("CurrentState", ctx).Return(current(t, beforeDoc), nil)
		f.repository.On("ListProfiles", ctx, "node-1").Return(previous.Applied, nil)
		f.applier.On("Apply", ctx, mock.Anything).Return(nil)
		f.repository.On("SaveProfiles", ctx, "node-1", mock.Anything).Return(nil)
		f.repository.On("DeleteProfiles", ctx, "node-1", []nm.ProfileKey(nil)).Return(nil)
		f.applier.On("Commit").Return()

		output, err := f.useCase.Execute(ctx, ApplyNetworkStateInput{NodeName: "node-1"})
		require.NoError(t, err)
		assert.Len(t, output.Applied, 1)
		f.applier.AssertExpectations(t)
	})
}

func TestApplyNetworkState_AbsentAlreadyGone(t *testing.T) {
	ctx := context.Background()

	first := newFixture(false)
	first.source.On("Load", ctx).Return(desired(t, desiredDoc), nil)
	first.provider.On("CurrentState", ctx).Return(current(t, afterDoc), nil)
	first.repository.On("ListProfiles", ctx, "node-1").Return(nil, nil)
	previous, err := first.useCase.Execute(ctx, ApplyNetworkStateInput{NodeName: "node-1", DryRun: true})
	require.NoError(t, err)
	assert.Empty(t, previous.Deleted)

	f := newFixture(true)
	f.source.On("Load", ctx).Return(desired(t, desiredDoc), nil)
	f.provider.On("CurrentState", ctx).Return(current(t, afterDoc), nil)
	f.repository.On("ListProfiles", ctx, "node-1").Return(previous.Applied, nil)

	output, err := f.useCase.Execute(ctx, ApplyNetworkStateInput{NodeName: "node-1"})
	require.NoError(t, err)
	assert.Empty(t, output.Deleted)
	assert.Empty(t, output.Applied)
	assert.Empty(t, f.applier.Calls)
}

func TestApplyNetworkState_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("desired state unavailable", func(t *testing.T) {
		f := newFixture(true)
		f.source.On("Load", ctx).Return(nil, domainErrors.NewNotFoundError("desired state file not found"))

		_, err := f.useCase.Execute(ctx, ApplyNetworkStateInput{NodeName: "node-1"})
		assert.True(t, domainErrors.IsNotFoundError(err))
		f.provider.AssertNotCalled(t, "CurrentState", mock.Anything)
	})

	t.Run("invalid desired state", func(t *testing.T) {
		f := newFixture(true)
		f.source.On("Load", ctx).Return(desired(t, `
interfaces:
- name: eth1
  type: ethernet
  controller: br9
`), nil)
		f.provider.On("CurrentState", ctx).Return(current(t, beforeDoc), nil)

		_, err := f.useCase.Execute(ctx, ApplyNetworkStateInput{NodeName: "node-1"})
		require.Error(t, err)
		f.repository.AssertNotCalled(t, "ListProfiles", mock.Anything, mock.Anything)
		assert.Empty(t, f.applier.Calls)
	})

	t.Run("profile store unavailable", func(t *testing.T) {
		f := newFixture(true)
		f.source.On("Load", ctx).Return(desired(t, desiredDoc), nil)
		f.provider.On("CurrentState", ctx).Return(current(t, beforeDoc), nil)
		f.repository.On("ListProfiles", ctx, "node-1").Return(nil, domainErrors.NewSystemError("db down", nil))

		_, err := f.useCase.Execute(ctx, ApplyNetworkStateInput{NodeName: "node-1"})
		assert.True(t, domainErrors.IsSystemError(err))
		assert.Empty(t, f.applier.Calls)
	})
}
