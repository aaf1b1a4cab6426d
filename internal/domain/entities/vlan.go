package entities

import (
	"strings"

	domainErrors "netstate-agent/internal/domain/errors"
	"netstate-agent/internal/domain/scalar"
)

const (
	maxVlanID  = 4094
	maxVxlanID = 16777215
)

// VlanProtocol is the 802.1Q or 802.1ad tagging protocol
type VlanProtocol string

const (
	VlanProtocolIeee8021Q  VlanProtocol = "802.1q"
	VlanProtocolIeee8021Ad VlanProtocol = "802.1ad"
)

// UnmarshalJSON accepts either protocol name case-insensitively
func (p *VlanProtocol) UnmarshalJSON(data []byte) error {
	var s string
	if err := jsonUnmarshal(data, &s); err != nil {
		return err
	}
	switch proto := VlanProtocol(strings.ToLower(s)); proto {
	case VlanProtocolIeee8021Q, VlanProtocolIeee8021Ad:
		*p = proto
		return nil
	}
	return invalidEnum("VLAN protocol", s, "802.1q|802.1ad")
}

// VlanInterface is an 802.1Q/802.1ad VLAN device
type VlanInterface struct {
	BaseInterface
	Vlan *VlanConfig `json:"vlan,omitempty"`
}

func (*VlanInterface) isInterface() {}

// VlanConfig holds parent and tag
type VlanConfig struct {
	BaseIface string        `json:"base-iface"`
	ID        scalar.Uint16 `json:"id"`
	Protocol  *VlanProtocol `json:"protocol,omitempty"`
}

// Validate checks the VLAN id range and parent
func (c *VlanConfig) Validate(name string) error {
	if c.ID > maxVlanID {
		return domainErrors.InvalidArgumentf("VLAN id %d of %s exceeds %d", c.ID, name, maxVlanID)
	}
	if c.BaseIface == "" {
		return domainErrors.InvalidArgumentf("VLAN %s requires base-iface", name)
	}
	return nil
}

// VxlanInterface is a VXLAN tunnel device
type VxlanInterface struct {
	BaseInterface
	Vxlan *VxlanConfig `json:"vxlan,omitempty"`
}

func (*VxlanInterface) isInterface() {}

// VxlanConfig holds tunnel settings
type VxlanConfig struct {
	BaseIface       string         `json:"base-iface,omitempty"`
	ID              scalar.Uint32  `json:"id"`
	Learning        *scalar.Bool   `json:"learning,omitempty"`
	Local           *string        `json:"local,omitempty"`
	Remote          *string        `json:"remote,omitempty"`
	DestinationPort *scalar.Uint16 `json:"destination-port,omitempty"`
}

// Validate checks the VNI range
func (c *VxlanConfig) Validate(name string) error {
	if c.ID > maxVxlanID {
		return domainErrors.InvalidArgumentf("VXLAN id %d of %s exceeds %d", c.ID, name, maxVxlanID)
	}
	return nil
}
