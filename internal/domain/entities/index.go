package entities

import (
	domainErrors "netstate-agent/internal/domain/errors"
)

// InterfaceIndex is a read-only name lookup over one state. Kernel
// interfaces and user space interfaces (OVS bridges) are kept apart
// because they may share names.
type InterfaceIndex struct {
	kernel map[string]Interface
	user   map[string]Interface
	order  Interfaces
}

// NewInterfaceIndex indexes ifaces, rejecting empty and duplicate names
func NewInterfaceIndex(ifaces Interfaces) (*InterfaceIndex, error) {
	idx := &InterfaceIndex{
		kernel: make(map[string]Interface, len(ifaces)),
		user:   map[string]Interface{},
	}
	for _, iface := range ifaces {
		if err := idx.add(iface); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

func (idx *InterfaceIndex) add(iface Interface) error {
	base := iface.Base()
	if base.Name == "" {
		return domainErrors.InvalidArgumentf("interface name must not be empty")
	}
	target := idx.kernel
	if base.Type.IsUserSpace() {
		target = idx.user
	}
	if _, dup := target[base.Name]; dup {
		return domainErrors.InvalidArgumentf("interface %s is defined more than once", base.Name)
	}
	target[base.Name] = iface
	idx.order = append(idx.order, iface)
	return nil
}

// Len returns the number of indexed interfaces
func (idx *InterfaceIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.order)
}

// All returns interfaces in input order
func (idx *InterfaceIndex) All() Interfaces {
	if idx == nil {
		return nil
	}
	return idx.order
}

// Kernel returns the kernel interface with the given name
func (idx *InterfaceIndex) Kernel(name string) Interface {
	if idx == nil {
		return nil
	}
	return idx.kernel[name]
}

// User returns the user space interface with the given name
func (idx *InterfaceIndex) User(name string) Interface {
	if idx == nil {
		return nil
	}
	return idx.user[name]
}

// Find returns the interface matching name in the namespace of t. An
// unknown type searches kernel interfaces first.
func (idx *InterfaceIndex) Find(name string, t InterfaceType) Interface {
	if idx == nil {
		return nil
	}
	if t.IsUserSpace() {
		return idx.user[name]
	}
	if iface, ok := idx.kernel[name]; ok {
		return iface
	}
	if t == "" || t == InterfaceTypeUnknown {
		return idx.user[name]
	}
	return nil
}

// Controller returns the interface named name that can own ports
func (idx *InterfaceIndex) Controller(name string) Interface {
	if idx == nil {
		return nil
	}
	if iface, ok := idx.user[name]; ok && IsController(iface) {
		return iface
	}
	if iface, ok := idx.kernel[name]; ok && IsController(iface) {
		return iface
	}
	return nil
}

// PortsOf returns the names of kernel interfaces the controller lists or
// that point at it through their controller attribute
func (idx *InterfaceIndex) PortsOf(controller Interface) []string {
	if idx == nil || controller == nil {
		return nil
	}
	seen := map[string]bool{}
	var names []string
	listed, _ := Ports(controller)
	for _, name := range listed {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	ctrlName := controller.Base().Name
	for _, iface := range idx.order {
		base := iface.Base()
		if base.Type.IsUserSpace() || seen[base.Name] {
			continue
		}
		if base.Controller != nil && *base.Controller == ctrlName {
			seen[base.Name] = true
			names = append(names, base.Name)
		}
	}
	return names
}
