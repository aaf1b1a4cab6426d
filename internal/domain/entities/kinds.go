package entities

import (
	domainErrors "netstate-agent/internal/domain/errors"
)

// Ports returns the port names an aggregate interface lists. The second
// result is false when the interface does not mention ports at all, which
// is distinct from an explicitly empty list.
func Ports(iface Interface) ([]string, bool) {
	switch i := iface.(type) {
	case *LinuxBridgeInterface:
		return i.PortNames()
	case *OvsBridgeInterface:
		return i.PortNames()
	case *BondInterface:
		return i.PortNames()
	case *VrfInterface:
		return i.PortNames()
	}
	return nil, false
}

// IsController reports whether the interface kind can own ports
func IsController(iface Interface) bool {
	switch iface.(type) {
	case *LinuxBridgeInterface, *OvsBridgeInterface, *BondInterface, *VrfInterface:
		return true
	}
	return false
}

// PreEditCleanup runs kind local validation that does not depend on the
// current state. It never modifies the interface.
func PreEditCleanup(iface Interface) error {
	base := iface.Base()
	if base.Name == "" {
		return domainErrors.InvalidArgumentf("interface name must not be empty")
	}
	if base.Controller != nil && *base.Controller == base.Name {
		return domainErrors.InvalidArgumentf("interface %s cannot be its own controller", base.Name)
	}
	if base.EffectiveState() == InterfaceStateAbsent || base.EffectiveState() == InterfaceStateIgnore {
		return nil
	}

	switch i := iface.(type) {
	case *LinuxBridgeInterface:
		if i.Bridge != nil {
			return i.Bridge.Validate(i.Name)
		}
	case *OvsBridgeInterface:
		if i.Bridge != nil {
			return i.Bridge.Validate(i.Name)
		}
	case *OvsInterface:
		return i.Validate()
	case *BondInterface:
		if i.Bond != nil {
			return i.Bond.Validate(i.Name)
		}
	case *VlanInterface:
		if i.Vlan != nil {
			return i.Vlan.Validate(i.Name)
		}
	case *VxlanInterface:
		if i.Vxlan != nil {
			return i.Vxlan.Validate(i.Name)
		}
	case *MacVlanInterface:
		if i.MacVlan != nil {
			return i.MacVlan.Validate(i.Name)
		}
	case *InfiniBandInterface:
		if i.InfiniBand != nil {
			return i.InfiniBand.Validate(i.Name)
		}
	case *EthernetInterface:
		if i.Ethernet != nil {
			return i.Ethernet.Validate(i.Name)
		}
	case *VethInterface:
		if i.Veth != nil && i.Veth.Peer == i.Name {
			return domainErrors.InvalidArgumentf("veth %s cannot peer with itself", i.Name)
		}
		if i.Ethernet != nil {
			return i.Ethernet.Validate(i.Name)
		}
	}
	return nil
}

// AppendPort adds port to the port list of a controller when missing
func AppendPort(iface Interface, port string) {
	if names, _ := Ports(iface); containsString(names, port) {
		return
	}
	switch i := iface.(type) {
	case *LinuxBridgeInterface:
		if i.Bridge == nil {
			i.Bridge = &LinuxBridgeConfig{}
		}
		if i.Bridge.Ports == nil {
			i.Bridge.Ports = &[]LinuxBridgePortConfig{}
		}
		*i.Bridge.Ports = append(*i.Bridge.Ports, LinuxBridgePortConfig{Name: port})
	case *OvsBridgeInterface:
		if i.Bridge == nil {
			i.Bridge = &OvsBridgeConfig{}
		}
		if i.Bridge.Ports == nil {
			i.Bridge.Ports = &[]OvsBridgePortConfig{}
		}
		*i.Bridge.Ports = append(*i.Bridge.Ports, OvsBridgePortConfig{Name: port})
	case *BondInterface:
		if i.Bond == nil {
			i.Bond = &BondConfig{}
		}
		if i.Bond.Ports == nil {
			i.Bond.Ports = &[]string{}
		}
		*i.Bond.Ports = append(*i.Bond.Ports, port)
	case *VrfInterface:
		if i.Vrf == nil {
			i.Vrf = &VrfConfig{}
		}
		if i.Vrf.Ports == nil {
			i.Vrf.Ports = &[]string{}
		}
		*i.Vrf.Ports = append(*i.Vrf.Ports, port)
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
