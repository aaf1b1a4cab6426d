package services

import (
	"sort"

	"netstate-agent/internal/domain/entities"
	domainErrors "netstate-agent/internal/domain/errors"
)

// changeSet is the ordered set of interfaces changed by a pass
type changeSet struct {
	items  []*pending
	kernel map[string]*pending
	user   map[string]*pending
}

func newChangeSet() *changeSet {
	return &changeSet{kernel: map[string]*pending{}, user: map[string]*pending{}}
}

func (c *changeSet) add(p *pending) {
	c.items = append(c.items, p)
	if p.merged.Base().Type.IsUserSpace() {
		c.user[p.name()] = p
	} else {
		c.kernel[p.name()] = p
	}
}

func (c *changeSet) snapshot() []*pending {
	return append([]*pending(nil), c.items...)
}

func (c *changeSet) kernelItem(name string) *pending {
	return c.kernel[name]
}

func (c *changeSet) controller(name string) *pending {
	if p, ok := c.user[name]; ok && entities.IsController(p.merged) {
		return p
	}
	if p, ok := c.kernel[name]; ok && entities.IsController(p.merged) {
		return p
	}
	return nil
}

// attach adds a copy of a current interface with its controller replaced
func (c *changeSet) attach(current entities.Interface, controller string) error {
	copied, err := CopyInterface(current)
	if err != nil {
		return err
	}
	base := copied.Base()
	base.Controller = &controller
	base.ControllerType = ""
	base.State = base.EffectiveState()
	c.add(&pending{requested: copied, merged: copied, current: current})
	return nil
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// resolvePortMembership applies the port lists of aggregate interfaces to
// their ports: listed ports get the aggregate as controller and ports
// dropped from a list, or left behind by a removed aggregate, are detached.
// Per-port attribute changes are not handled here.
func resolvePortMembership(changes *changeSet, absent map[string]*pending, curIndex *entities.InterfaceIndex) error {
	assigned := map[string]string{}
	for _, ctrl := range changes.snapshot() {
		if !entities.IsController(ctrl.merged) {
			continue
		}
		listed, mentioned := entities.Ports(ctrl.requested)
		if !mentioned {
			continue
		}
		ctrlName := ctrl.name()
		listedSet := map[string]bool{}
		for _, port := range listed {
			if port == ctrlName && !ctrl.merged.Base().Type.IsUserSpace() {
				return domainErrors.InvalidArgumentf("Interface %s cannot be its own port", ctrlName)
			}
			if prev, dup := assigned[port]; dup && prev != ctrlName {
				return domainErrors.InvalidArgumentf(
					"Interface %s is listed as port of both %s and %s", port, prev, ctrlName)
			}
			assigned[port] = ctrlName
			listedSet[port] = true

			if _, gone := absent[port]; gone {
				return domainErrors.InvalidArgumentf(
					"Interface %s is listed as port of %s but is marked absent", port, ctrlName)
			}
			if p := changes.kernelItem(port); p != nil {
				base := p.merged.Base()
				if p.explicitController && (base.Controller == nil || *base.Controller != ctrlName) {
					return domainErrors.InvalidArgumentf(
						"Interface %s has controller %q but is listed as port of %s",
						port, base.ControllerName(), ctrlName)
				}
				name := ctrlName
				base.Controller = &name
				continue
			}
			cur := curIndex.Kernel(port)
			if cur == nil {
				return domainErrors.InvalidArgumentf(
					"Interface %s listed as port of %s does not exist", port, ctrlName)
			}
			if cb := cur.Base(); cb.Controller != nil && *cb.Controller == ctrlName {
				continue
			}
			if err := changes.attach(cur, ctrlName); err != nil {
				return err
			}
		}

		curCtrl := curIndex.Find(ctrlName, ctrl.merged.Base().Type)
		if curCtrl == nil || curCtrl.Base().Type != ctrl.merged.Base().Type {
			continue
		}
		for _, port := range curIndex.PortsOf(curCtrl) {
			if listedSet[port] {
				continue
			}
			if err := detach(changes, absent, curIndex, port, ctrlName); err != nil {
				return err
			}
		}
	}

	names := make([]string, 0, len(absent))
	for name := range absent {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := absent[name]
		if p.current == nil || !entities.IsController(p.current) {
			continue
		}
		for _, port := range curIndex.PortsOf(p.current) {
			if err := detach(changes, absent, curIndex, port, name); err != nil {
				return err
			}
		}
	}
	return nil
}

func detach(changes *changeSet, absent map[string]*pending, curIndex *entities.InterfaceIndex, port, ctrlName string) error {
	if _, gone := absent[port]; gone {
		return nil
	}
	if p := changes.kernelItem(port); p != nil {
		base := p.merged.Base()
		if !p.explicitController && base.Controller != nil && *base.Controller == ctrlName {
			empty := ""
			base.Controller = &empty
		}
		return nil
	}
	cur := curIndex.Kernel(port)
	if cur == nil || cur.Base().State == entities.InterfaceStateIgnore {
		return nil
	}
	return changes.attach(cur, "")
}

// addConfigChangedPorts adds linux bridge ports whose per-port settings
// changed while their membership did not
func addConfigChangedPorts(changes *changeSet, curIndex *entities.InterfaceIndex, out map[string][]string) error {
	for _, p := range changes.snapshot() {
		desired, ok := p.requested.(*entities.LinuxBridgeInterface)
		if !ok {
			continue
		}
		current, ok := p.current.(*entities.LinuxBridgeInterface)
		if !ok {
			continue
		}
		names := desired.GetConfigChangedPorts(current)
		if len(names) == 0 {
			continue
		}
		out[desired.Name] = names
		for _, name := range names {
			if changes.kernelItem(name) != nil {
				continue
			}
			cur := curIndex.Kernel(name)
			if cur == nil {
				continue
			}
			if err := changes.attach(cur, desired.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveControllers checks every controller reference against the
// interfaces of this pass or the current snapshot and records the
// controller type. A controller that does not list the port yet gets it
// appended to its port list.
func resolveControllers(changes *changeSet, absent map[string]*pending, curIndex *entities.InterfaceIndex) error {
	for _, p := range changes.snapshot() {
		base := p.merged.Base()
		if !base.HasController() {
			base.ControllerType = ""
			continue
		}
		ctrlName := *base.Controller
		if _, gone := absent[ctrlName]; gone {
			return domainErrors.InvalidArgumentf(
				"Controller %s of interface %s is marked absent", ctrlName, base.Name)
		}

		ctrl := changes.controller(ctrlName)
		var ctrlIface entities.Interface
		if ctrl != nil {
			ctrlIface = ctrl.merged
		} else {
			ctrlIface = curIndex.Controller(ctrlName)
		}
		if ctrlIface == nil {
			if changes.kernelItem(ctrlName) != nil || curIndex.Kernel(ctrlName) != nil {
				return domainErrors.InvalidArgumentf(
					"Interface %s cannot be controller of %s", ctrlName, base.Name)
			}
			return domainErrors.InvalidArgumentf(
				"Controller %s of interface %s does not exist", ctrlName, base.Name)
		}
		base.ControllerType = ctrlIface.Base().Type

		if ctrl != nil {
			if names, mentioned := entities.Ports(ctrl.requested); mentioned && !containsName(names, base.Name) {
				return domainErrors.InvalidArgumentf(
					"Interface %s declares controller %s which does not list it as port", base.Name, ctrlName)
			}
			entities.AppendPort(ctrl.merged, base.Name)
			continue
		}
		if names, _ := entities.Ports(ctrlIface); containsName(names, base.Name) {
			continue
		}
		copied, err := CopyInterface(ctrlIface)
		if err != nil {
			return err
		}
		entities.AppendPort(copied, base.Name)
		changes.add(&pending{requested: copied, merged: copied, current: ctrlIface})
	}
	return nil
}
