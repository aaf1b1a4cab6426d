package entities

import (
	domainErrors "netstate-agent/internal/domain/errors"
	"netstate-agent/internal/domain/scalar"
)

// VrfInterface is a virtual routing and forwarding device
type VrfInterface struct {
	BaseInterface
	Vrf *VrfConfig `json:"vrf,omitempty"`
}

func (*VrfInterface) isInterface() {}

// RouteTableID is the routing table bound to a VRF.
//
// The wire format has no separate "inherit" marker, so the zero value is
// reserved for it: a desired table id of 0 means "keep whatever the current
// interface uses" and is resolved by MergeTableID before the interface is
// compiled. A brand new VRF must carry a non-zero id.
type RouteTableID scalar.Uint32

// RouteTableInherit is the sentinel asking to inherit the current table id
const RouteTableInherit RouteTableID = 0

// Inherit reports whether the id is the inherit sentinel
func (id RouteTableID) Inherit() bool {
	return id == RouteTableInherit
}

// UnmarshalJSON accepts a number or a decimal string
func (id *RouteTableID) UnmarshalJSON(data []byte) error {
	var v scalar.Uint32
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	*id = RouteTableID(v)
	return nil
}

// VrfConfig lists the enslaved interfaces and the route table.
// The port list accepts both "port" and "ports" on input.
type VrfConfig struct {
	Ports   *[]string    `json:"port,omitempty"`
	TableID RouteTableID `json:"route-table-id"`
}

// PortNames returns the port list, or false when no port list was given
func (i *VrfInterface) PortNames() ([]string, bool) {
	if i.Vrf == nil || i.Vrf.Ports == nil {
		return nil, false
	}
	return append([]string{}, *i.Vrf.Ports...), true
}

// MergeTableID resolves the inherit sentinel from the current interface
func (i *VrfInterface) MergeTableID(current Interface) error {
	if i.Vrf == nil || !i.Vrf.TableID.Inherit() {
		return nil
	}
	if cur, ok := current.(*VrfInterface); ok && cur != nil && cur.Vrf != nil {
		i.Vrf.TableID = cur.Vrf.TableID
		return nil
	}
	return domainErrors.InvalidArgumentf(
		"Route table ID undefined or 0 is not allowed for new VRF interface %s", i.Name)
}
