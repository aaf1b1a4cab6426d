package entities

import (
	domainErrors "netstate-agent/internal/domain/errors"
	"netstate-agent/internal/domain/scalar"
)

// EthernetInterface is a physical ethernet NIC
type EthernetInterface struct {
	BaseInterface
	Ethernet *EthernetConfig `json:"ethernet,omitempty"`
}

func (*EthernetInterface) isInterface() {}

// EthernetDuplex is the duplex mode of a link
type EthernetDuplex string

const (
	EthernetDuplexFull EthernetDuplex = "full"
	EthernetDuplexHalf EthernetDuplex = "half"
)

// EthernetConfig holds link settings
type EthernetConfig struct {
	AutoNegotiation *scalar.Bool    `json:"auto-negotiation,omitempty"`
	Speed           *scalar.Uint32  `json:"speed,omitempty"`
	Duplex          *EthernetDuplex `json:"duplex,omitempty"`
	SrIov           *SrIovConfig    `json:"sr-iov,omitempty"`
}

// SrIovConfig holds SR-IOV virtual function settings
type SrIovConfig struct {
	TotalVfs *scalar.Uint32   `json:"total-vfs,omitempty"`
	Vfs      *[]SrIovVfConfig `json:"vfs,omitempty"`
}

// SrIovVfConfig holds the settings of one virtual function
type SrIovVfConfig struct {
	ID         scalar.Uint32  `json:"id"`
	MacAddress *string        `json:"mac-address,omitempty"`
	SpoofCheck *scalar.Bool   `json:"spoof-check,omitempty"`
	Trust      *scalar.Bool   `json:"trust,omitempty"`
	MinTxRate  *scalar.Uint32 `json:"min-tx-rate,omitempty"`
	MaxTxRate  *scalar.Uint32 `json:"max-tx-rate,omitempty"`
	VlanID     *scalar.Uint32 `json:"vlan-id,omitempty"`
	Qos        *scalar.Uint32 `json:"qos,omitempty"`
}

// Validate checks duplex and VF settings
func (c *EthernetConfig) Validate(name string) error {
	if c.Duplex != nil && *c.Duplex != EthernetDuplexFull && *c.Duplex != EthernetDuplexHalf {
		return invalidEnum("duplex of "+name, string(*c.Duplex), "full|half")
	}
	if c.SrIov == nil || c.SrIov.Vfs == nil {
		return nil
	}
	seen := map[scalar.Uint32]bool{}
	for _, vf := range *c.SrIov.Vfs {
		if seen[vf.ID] {
			return domainErrors.InvalidArgumentf("SR-IOV VF %d of %s is defined twice", vf.ID, name)
		}
		seen[vf.ID] = true
		if c.SrIov.TotalVfs != nil && uint32(vf.ID) >= uint32(*c.SrIov.TotalVfs) {
			return domainErrors.InvalidArgumentf(
				"SR-IOV VF id %d of %s is out of range for total-vfs %d", vf.ID, name, *c.SrIov.TotalVfs)
		}
		if vf.VlanID != nil && uint32(*vf.VlanID) > maxVlanID {
			return domainErrors.InvalidArgumentf(
				"SR-IOV VF %d of %s has VLAN id %d exceeding %d", vf.ID, name, *vf.VlanID, maxVlanID)
		}
		if vf.MinTxRate != nil && vf.MaxTxRate != nil && *vf.MaxTxRate != 0 && *vf.MinTxRate > *vf.MaxTxRate {
			return domainErrors.InvalidArgumentf(
				"SR-IOV VF %d of %s has min-tx-rate above max-tx-rate", vf.ID, name)
		}
	}
	return nil
}

// VethInterface is one end of a virtual ethernet pair
type VethInterface struct {
	BaseInterface
	Ethernet *EthernetConfig `json:"ethernet,omitempty"`
	Veth     *VethConfig     `json:"veth,omitempty"`
}

func (*VethInterface) isInterface() {}

// VethConfig names the peer end
type VethConfig struct {
	Peer string `json:"peer"`
}
