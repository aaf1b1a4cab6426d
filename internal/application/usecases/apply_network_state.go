package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"

	"netstate-agent/internal/domain/entities"
	"netstate-agent/internal/domain/errors"
	"netstate-agent/internal/domain/interfaces"
	"netstate-agent/internal/domain/nm"
	"netstate-agent/internal/domain/services"
	"netstate-agent/internal/infrastructure/metrics"
)

// ApplyOptions tunes one apply pass
type ApplyOptions struct {
	StableUUID     bool
	Verify         bool
	VerifyRetries  int
	VerifyInterval time.Duration
}

// ApplyNetworkStateUseCase drives desired state through reconciliation,
// profile compilation, apply and verification
type ApplyNetworkStateUseCase struct {
	source     interfaces.DesiredStateSource
	provider   interfaces.StateProvider
	repository interfaces.ProfileRepository
	applier    interfaces.ProfileApplier
	reconciler *services.StateReconciler
	verifier   *services.StateVerifier
	options    ApplyOptions
	logger     *logrus.Logger
}

// NewApplyNetworkStateUseCase creates a new ApplyNetworkStateUseCase
func NewApplyNetworkStateUseCase(
	source interfaces.DesiredStateSource,
	provider interfaces.StateProvider,
	repository interfaces.ProfileRepository,
	applier interfaces.ProfileApplier,
	reconciler *services.StateReconciler,
	verifier *services.StateVerifier,
	options ApplyOptions,
	logger *logrus.Logger,
) *ApplyNetworkStateUseCase {
	return &ApplyNetworkStateUseCase{
		source:     source,
		provider:   provider,
		repository: repository,
		applier:    applier,
		reconciler: reconciler,
		verifier:   verifier,
		options:    options,
		logger:     logger,
	}
}

// ApplyNetworkStateInput is the input of one pass
type ApplyNetworkStateInput struct {
	NodeName string
	// DryRun stops after compilation
	DryRun bool
}

// ApplyNetworkStateOutput summarizes one pass
type ApplyNetworkStateOutput struct {
	Changed   []string
	Applied   []*nm.Connection
	Deleted   []nm.ProfileKey
	Unchanged int
	Ignored   []string
}

// Execute runs one apply pass
func (uc *ApplyNetworkStateUseCase) Execute(ctx context.Context, input ApplyNetworkStateInput) (*ApplyNetworkStateOutput, error) {
	start := time.Now()
	output, err := uc.execute(ctx, input)
	status := "success"
	switch {
	case err == nil:
	case errors.IsInvalidArgumentError(err) || errors.IsValidationError(err):
		status = "invalid"
	default:
		status = "failed"
	}
	changed := 0
	if output != nil {
		changed = len(output.Changed)
	}
	metrics.RecordReconcile(status, time.Since(start).Seconds(), changed)
	return output, err
}

func (uc *ApplyNetworkStateUseCase) execute(ctx context.Context, input ApplyNetworkStateInput) (*ApplyNetworkStateOutput, error) {
	desired, err := uc.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	current, err := uc.provider.CurrentState(ctx)
	if err != nil {
		return nil, err
	}

	result, err := uc.reconciler.Reconcile(desired.Interfaces, current)
	if err != nil {
		return nil, err
	}

	changedIndex, err := result.ChangedIndex()
	if err != nil {
		return nil, err
	}
	currentIndex, err := entities.NewInterfaceIndex(current)
	if err != nil {
		return nil, errors.NewValidationError("current state is inconsistent", err)
	}

	stored, err := uc.repository.ListProfiles(ctx, input.NodeName)
	if err != nil {
		return nil, err
	}

	compiler := nm.NewCompiler(changedIndex, currentIndex, stored, nm.Options{StableUUID: uc.options.StableUUID})
	changedIfaces := make(entities.Interfaces, 0, len(result.Changed))
	output := &ApplyNetworkStateOutput{Ignored: result.Ignored}
	for _, merged := range result.Changed {
		changedIfaces = append(changedIfaces, merged.Desired)
		output.Changed = append(output.Changed, merged.Desired.Base().Name)
	}
	profiles, err := compiler.Compile(changedIfaces)
	if err != nil {
		return nil, err
	}
	for _, conn := range profiles {
		metrics.RecordProfileCompiled(conn.Connection.Type)
	}

	// absent interfaces that are neither on the host nor in the store are
	// already gone
	storedIDs := make(map[string]bool, len(stored))
	for _, conn := range stored {
		storedIDs[conn.Key().ID] = true
	}
	absent := make(entities.Interfaces, 0, len(result.Absent))
	for _, merged := range result.Absent {
		if merged.Current == nil && !storedIDs[merged.Desired.Base().Name] {
			continue
		}
		absent = append(absent, merged.Desired)
	}
	deleteKeys := compiler.AbsentProfileKeys(absent)

	toApply := uc.drifted(profiles, stored)
	if len(toApply) == 0 && len(deleteKeys) == 0 {
		err := uc.verifier.Verify(desired.Interfaces, current, current)
		if err == nil {
			output.Unchanged = len(profiles)
			uc.logger.WithField("profiles", len(profiles)).Debug("Network state already converged")
			return output, nil
		}
		uc.logger.WithError(err).Info("Host differs from stored profiles, reapplying")
		toApply = profiles
	}
	output.Applied = toApply
	output.Deleted = deleteKeys
	output.Unchanged = len(profiles) - len(toApply)

	if input.DryRun {
		return output, nil
	}

	if len(deleteKeys) > 0 {
		if err := uc.applier.Delete(ctx, deleteKeys); err != nil {
			uc.rollback(ctx)
			return nil, err
		}
	}
	if len(toApply) > 0 {
		if err := uc.applier.Apply(ctx, toApply); err != nil {
			uc.rollback(ctx)
			return nil, err
		}
	}

	if uc.options.Verify {
		if err := uc.verify(ctx, desired.Interfaces, current); err != nil {
			metrics.RecordVerificationFailure()
			uc.rollback(ctx)
			return nil, err
		}
	}

	// the host holds the verified state from here on; a failed store write
	// only makes the next pass apply the same profiles again
	uc.applier.Commit()
	metrics.RecordProfilesApplied(len(toApply), len(deleteKeys))

	if err := uc.repository.SaveProfiles(ctx, input.NodeName, profiles); err != nil {
		return nil, err
	}
	if err := uc.repository.DeleteProfiles(ctx, input.NodeName, deleteKeys); err != nil {
		return nil, err
	}

	uc.logger.WithFields(logrus.Fields{
		"node_name": input.NodeName,
		"changed":   len(output.Changed),
		"applied":   len(toApply),
		"deleted":   len(deleteKeys),
	}).Info("Network state applied")
	return output, nil
}

// drifted returns the profiles that differ from their stored copy
func (uc *ApplyNetworkStateUseCase) drifted(profiles, stored []*nm.Connection) []*nm.Connection {
	byKey := make(map[nm.ProfileKey]*nm.Connection, len(stored))
	for _, conn := range stored {
		byKey[conn.Key()] = conn
	}

	var out []*nm.Connection
	for _, conn := range profiles {
		previous, ok := byKey[conn.Key()]
		switch {
		case !ok:
			metrics.RecordDrift("new")
		case !cmp.Equal(previous, conn):
			metrics.RecordDrift("changed")
			uc.logger.WithFields(logrus.Fields{
				"profile": conn.Key().String(),
				"diff":    cmp.Diff(previous, conn),
			}).Debug("Profile drift detected")
		default:
			continue
		}
		out = append(out, conn)
	}
	return out
}

// verify polls the host until it matches the desired state or retries run out
func (uc *ApplyNetworkStateUseCase) verify(ctx context.Context, desired, preApply entities.Interfaces) error {
	retries := uc.options.VerifyRetries
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		current, err := uc.provider.CurrentState(ctx)
		if err != nil {
			return err
		}
		if lastErr = uc.verifier.Verify(desired, preApply, current); lastErr == nil {
			return nil
		}
		if !errors.IsVerificationError(lastErr) {
			return lastErr
		}
		uc.logger.WithError(lastErr).WithField("attempt", attempt).Debug("Verification pending")

		if attempt == retries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(uc.options.VerifyInterval):
		}
	}
	return errors.NewVerificationError(fmt.Sprintf("verification failed after %d attempts: %v", retries, lastErr))
}

func (uc *ApplyNetworkStateUseCase) rollback(ctx context.Context) {
	if err := uc.applier.Rollback(ctx); err != nil {
		metrics.RecordRollback(false)
		uc.logger.WithError(err).Error("Rollback failed")
		return
	}
	metrics.RecordRollback(true)
}
