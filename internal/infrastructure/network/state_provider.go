package network

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"netstate-agent/internal/domain/entities"
	"netstate-agent/internal/domain/errors"
	"netstate-agent/internal/domain/interfaces"
)

// NmstatectlStateProvider queries the running state with `nmstatectl show --json`
type NmstatectlStateProvider struct {
	commandExecutor interfaces.CommandExecutor
	timeout         time.Duration
	logger          *logrus.Logger
}

// NewNmstatectlStateProvider creates a new NmstatectlStateProvider
func NewNmstatectlStateProvider(executor interfaces.CommandExecutor, timeout time.Duration, logger *logrus.Logger) *NmstatectlStateProvider {
	return &NmstatectlStateProvider{
		commandExecutor: executor,
		timeout:         timeout,
		logger:          logger,
	}
}

// CurrentState returns the interfaces of the running state. Keys and kinds
// not modelled here are tolerated.
func (p *NmstatectlStateProvider) CurrentState(ctx context.Context) (entities.Interfaces, error) {
	output, err := p.commandExecutor.ExecuteWithTimeout(ctx, p.timeout, "nmstatectl", "show", "--json")
	if err != nil {
		if errors.IsTimeoutError(err) {
			return nil, err
		}
		return nil, errors.NewNetworkError("failed to query current network state", err)
	}

	state, err := entities.ParseCurrentState(output)
	if err != nil {
		return nil, errors.NewSystemError("failed to parse current network state", err)
	}

	p.logger.WithField("interfaces", len(state.Interfaces)).Debug("Current state queried")
	return state.Interfaces, nil
}

var _ interfaces.StateProvider = (*NmstatectlStateProvider)(nil)
