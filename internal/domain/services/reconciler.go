package services

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"netstate-agent/internal/domain/entities"
	domainErrors "netstate-agent/internal/domain/errors"
)

// MergedInterface pairs a validated desired interface with its current
// counterpart. Current is nil for interfaces that do not exist yet.
type MergedInterface struct {
	Desired entities.Interface
	Current entities.Interface
}

// ReconcileResult is the outcome of one reconciliation pass
type ReconcileResult struct {
	// Changed holds the interfaces whose backend profile must be regenerated
	Changed []MergedInterface
	// Absent holds interfaces requested to be removed
	Absent []MergedInterface
	// Ignored holds names of interfaces left untouched
	Ignored []string
	// ConfigChangedPorts maps a linux bridge to the ports whose STP or VLAN
	// settings changed without a membership change
	ConfigChangedPorts map[string][]string
}

// ChangedIndex indexes the changed interfaces by name
func (r *ReconcileResult) ChangedIndex() (*entities.InterfaceIndex, error) {
	ifaces := make(entities.Interfaces, 0, len(r.Changed))
	for _, m := range r.Changed {
		ifaces = append(ifaces, m.Desired)
	}
	return entities.NewInterfaceIndex(ifaces)
}

// StateReconciler merges a desired state onto a current state snapshot and
// validates the result before anything is compiled
type StateReconciler struct {
	logger *logrus.Logger
}

// NewStateReconciler creates a new StateReconciler
func NewStateReconciler(logger *logrus.Logger) *StateReconciler {
	return &StateReconciler{logger: logger}
}

// pending carries one interface through the pass
type pending struct {
	requested          entities.Interface
	merged             entities.Interface
	current            entities.Interface
	explicitController bool
}

func (p *pending) name() string { return p.merged.Base().Name }

// Reconcile merges desired over current. Interfaces are reconciled in
// parallel against the shared current snapshot; controller and port cross
// references are resolved afterwards in a single sequential pass. Either the
// full result or an error is returned, never both.
func (r *StateReconciler) Reconcile(desired, current entities.Interfaces) (*ReconcileResult, error) {
	if _, err := entities.NewInterfaceIndex(desired); err != nil {
		return nil, r.reject(err)
	}
	curIndex, err := entities.NewInterfaceIndex(current)
	if err != nil {
		return nil, r.reject(domainErrors.NewInvalidArgumentError("invalid current state", err))
	}
	if err := r.preIgnoreCheck(desired, curIndex, nil); err != nil {
		return nil, r.reject(err)
	}

	items := make([]*pending, len(desired))
	var g errgroup.Group
	for idx, iface := range desired {
		idx, iface := idx, iface
		g.Go(func() error {
			p, err := reconcileInterface(iface, curIndex)
			if err != nil {
				return err
			}
			items[idx] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, r.reject(err)
	}

	result := &ReconcileResult{ConfigChangedPorts: map[string][]string{}}
	changes := newChangeSet()
	absent := map[string]*pending{}
	for _, p := range items {
		switch p.merged.Base().EffectiveState() {
		case entities.InterfaceStateAbsent:
			absent[p.name()] = p
			result.Absent = append(result.Absent, MergedInterface{Desired: p.merged, Current: p.current})
		case entities.InterfaceStateIgnore:
			result.Ignored = append(result.Ignored, p.name())
		default:
			changes.add(p)
		}
	}

	if err := resolvePortMembership(changes, absent, curIndex); err != nil {
		return nil, r.reject(err)
	}
	if err := addConfigChangedPorts(changes, curIndex, result.ConfigChangedPorts); err != nil {
		return nil, r.reject(err)
	}
	if err := resolveControllers(changes, absent, curIndex); err != nil {
		return nil, r.reject(err)
	}

	for _, p := range changes.items {
		result.Changed = append(result.Changed, MergedInterface{Desired: p.merged, Current: p.current})
	}

	r.logger.WithFields(logrus.Fields{
		"changed": len(result.Changed),
		"absent":  len(result.Absent),
		"ignored": len(result.Ignored),
	}).Debug("Reconciliation completed")
	return result, nil
}

func (r *StateReconciler) reject(err error) error {
	r.logger.WithError(err).Error("Network state rejected")
	return err
}

// reconcileInterface validates and merges one desired interface. It only
// reads the shared current index.
func reconcileInterface(iface entities.Interface, curIndex *entities.InterfaceIndex) (*pending, error) {
	requested, err := CopyInterface(iface)
	if err != nil {
		return nil, err
	}
	base := requested.Base()
	current := curIndex.Find(base.Name, base.Type)

	if unknown, ok := requested.(*entities.UnknownInterface); ok && current != nil {
		if entities.NewInterface(current.Base().Type) != nil {
			if requested, err = unknown.Resolve(current.Base().Type); err != nil {
				return nil, err
			}
			base = requested.Base()
		}
	}

	p := &pending{requested: requested, current: current, explicitController: base.Controller != nil}
	switch base.EffectiveState() {
	case entities.InterfaceStateAbsent, entities.InterfaceStateIgnore:
		if _, ok := requested.(*entities.UnknownInterface); ok && current != nil {
			base.Type = current.Base().Type
		}
		p.merged = requested
		return p, nil
	}

	if _, ok := requested.(*entities.UnknownInterface); ok {
		return nil, domainErrors.InvalidArgumentf(
			"Interface %s has no supported type and does not exist in current state", base.Name)
	}
	base.State = base.EffectiveState()

	if err := entities.PreEditCleanup(requested); err != nil {
		return nil, err
	}
	if vrf, ok := requested.(*entities.VrfInterface); ok {
		if err := vrf.MergeTableID(current); err != nil {
			return nil, err
		}
	}

	merged, err := MergeInterface(requested, current)
	if err != nil {
		return nil, err
	}
	if !p.explicitController && current != nil && current.Base().Type != requested.Base().Type {
		merged.Base().Controller = current.Base().Controller
	}
	p.merged = merged
	return p, nil
}

// PreIgnoreCheck rejects changing the peer of a veth whose current peer is
// ignored, since the ignored end would be removed with the pair
func (r *StateReconciler) PreIgnoreCheck(desired, current entities.Interfaces, ignoredKernelIfaces []string) error {
	curIndex, err := entities.NewInterfaceIndex(current)
	if err != nil {
		return r.reject(domainErrors.NewInvalidArgumentError("invalid current state", err))
	}
	if err := r.preIgnoreCheck(desired, curIndex, ignoredKernelIfaces); err != nil {
		return r.reject(err)
	}
	return nil
}

func (r *StateReconciler) preIgnoreCheck(desired entities.Interfaces, curIndex *entities.InterfaceIndex, extra []string) error {
	ignored := map[string]bool{}
	for _, name := range extra {
		ignored[name] = true
	}
	for _, ifaces := range []entities.Interfaces{desired, curIndex.All()} {
		for _, iface := range ifaces {
			if iface.Base().State == entities.InterfaceStateIgnore && !iface.Base().Type.IsUserSpace() {
				ignored[iface.Base().Name] = true
			}
		}
	}

	for _, iface := range desired {
		veth, ok := iface.(*entities.VethInterface)
		if !ok || veth.Veth == nil {
			continue
		}
		cur, ok := curIndex.Kernel(veth.Name).(*entities.VethInterface)
		if !ok || cur.Veth == nil || cur.Veth.Peer == veth.Veth.Peer {
			continue
		}
		if ignored[cur.Veth.Peer] {
			return domainErrors.InvalidArgumentf(
				"Veth interface %s is currently holding peer %s which is marked as ignored. "+
					"Hence not allowing changing its peer to %s. "+
					"Please remove this veth pair before changing peer",
				veth.Name, cur.Veth.Peer, veth.Veth.Peer)
		}
	}
	return nil
}
