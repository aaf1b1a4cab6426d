package entities

import (
	domainErrors "netstate-agent/internal/domain/errors"
	"netstate-agent/internal/domain/scalar"
)

// OvsBridgeInterface is an Open vSwitch bridge
type OvsBridgeInterface struct {
	BaseInterface
	Bridge *OvsBridgeConfig `json:"bridge,omitempty"`
}

func (*OvsBridgeInterface) isInterface() {}

// OvsBridgeConfig holds bridge options and the port list.
// The port list accepts both "port" and "ports" on input.
type OvsBridgeConfig struct {
	AllowExtraPatchPorts *scalar.Bool           `json:"allow-extra-patch-ports,omitempty"`
	Options              *OvsBridgeOptions      `json:"options,omitempty"`
	Ports                *[]OvsBridgePortConfig `json:"port,omitempty"`
}

// OvsBridgeOptions are the bridge wide knobs.
// Stp is also accepted as a bare boolean on input.
type OvsBridgeOptions struct {
	Stp                 *OvsBridgeStpOptions `json:"stp,omitempty"`
	Rstp                *scalar.Bool         `json:"rstp,omitempty"`
	McastSnoopingEnable *scalar.Bool         `json:"mcast-snooping-enable,omitempty"`
	FailMode            *string              `json:"fail-mode,omitempty"`
	Datapath            *string              `json:"datapath,omitempty"`
}

// OvsBridgeStpOptions holds spanning tree settings of an OVS bridge
type OvsBridgeStpOptions struct {
	Enabled *scalar.Bool `json:"enabled,omitempty"`
}

// OvsBridgePortConfig is either a single interface or a bond of interfaces
type OvsBridgePortConfig struct {
	Name string                   `json:"name"`
	Bond *OvsBridgeBondConfig     `json:"link-aggregation,omitempty"`
	Vlan *OvsBridgePortVlanConfig `json:"vlan,omitempty"`
}

// OvsBridgeBondMode is the bonding mode of an OVS bond port
type OvsBridgeBondMode string

const (
	OvsBridgeBondModeLacp         OvsBridgeBondMode = "lacp"
	OvsBridgeBondModeActiveBackup OvsBridgeBondMode = "active-backup"
	OvsBridgeBondModeBalanceSlb   OvsBridgeBondMode = "balance-slb"
	OvsBridgeBondModeBalanceTcp   OvsBridgeBondMode = "balance-tcp"
)

// UnmarshalJSON rejects unknown modes
func (m *OvsBridgeBondMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := jsonUnmarshal(data, &s); err != nil {
		return err
	}
	switch mode := OvsBridgeBondMode(s); mode {
	case OvsBridgeBondModeLacp, OvsBridgeBondModeActiveBackup,
		OvsBridgeBondModeBalanceSlb, OvsBridgeBondModeBalanceTcp:
		*m = mode
		return nil
	}
	return invalidEnum("OVS bond mode", s, "lacp|active-backup|balance-slb|balance-tcp")
}

// OvsBridgeBondConfig is the bonding config of an OVS port.
// The member list accepts both "port" and "ports" on input.
type OvsBridgeBondConfig struct {
	Mode          *OvsBridgeBondMode         `json:"mode,omitempty"`
	Ports         *[]OvsBridgeBondPortConfig `json:"port,omitempty"`
	BondDowndelay *scalar.Uint32             `json:"bond-downdelay,omitempty"`
	BondUpdelay   *scalar.Uint32             `json:"bond-updelay,omitempty"`
	OvsDB         *OvsDBIfaceConfig          `json:"ovs-db,omitempty"`
}

// OvsBridgeBondPortConfig names one bond member
type OvsBridgeBondPortConfig struct {
	Name string `json:"name"`
}

// PortNames returns the member names of the bond
func (c *OvsBridgeBondConfig) PortNames() []string {
	if c.Ports == nil {
		return nil
	}
	names := make([]string, 0, len(*c.Ports))
	for _, p := range *c.Ports {
		names = append(names, p.Name)
	}
	return names
}

// OvsBridgePortVlanMode is the VLAN mode of an OVS port
type OvsBridgePortVlanMode string

const (
	OvsBridgePortVlanModeTrunk          OvsBridgePortVlanMode = "trunk"
	OvsBridgePortVlanModeAccess         OvsBridgePortVlanMode = "access"
	OvsBridgePortVlanModeNativeTagged   OvsBridgePortVlanMode = "native-tagged"
	OvsBridgePortVlanModeNativeUntagged OvsBridgePortVlanMode = "native-untagged"
)

// OvsBridgePortVlanConfig is the VLAN config of an OVS port
type OvsBridgePortVlanConfig struct {
	Mode      *OvsBridgePortVlanMode `json:"mode,omitempty"`
	Tag       *scalar.Uint16         `json:"tag,omitempty"`
	TrunkTags *[]BridgePortTrunkTag  `json:"trunk-tags,omitempty"`
}

// PortConfs returns the port configs, empty when no port list was given
func (i *OvsBridgeInterface) PortConfs() []OvsBridgePortConfig {
	if i.Bridge == nil || i.Bridge.Ports == nil {
		return nil
	}
	return *i.Bridge.Ports
}

// PortNames returns the interfaces attached to the bridge, with bond
// members listed instead of the bond port name. It returns false when the
// port list was not given.
func (i *OvsBridgeInterface) PortNames() ([]string, bool) {
	if i.Bridge == nil || i.Bridge.Ports == nil {
		return nil, false
	}
	var names []string
	for _, port := range *i.Bridge.Ports {
		if port.Bond != nil {
			names = append(names, port.Bond.PortNames()...)
		} else {
			names = append(names, port.Name)
		}
	}
	if names == nil {
		names = []string{}
	}
	return names, true
}

// GetOvsPortName returns the name of the OVS port owning the interface.
// When the desired bridge does not mention ports at all, the port list of
// the current bridge is consulted instead.
func GetOvsPortName(bridge *OvsBridgeInterface, ifaceName string, current Interface) (string, bool) {
	portConfs := bridge.PortConfs()
	if _, mentioned := bridge.PortNames(); !mentioned {
		if cur, ok := current.(*OvsBridgeInterface); ok {
			portConfs = cur.PortConfs()
		}
	}
	for _, port := range portConfs {
		if port.Bond != nil {
			for _, member := range port.Bond.PortNames() {
				if member == ifaceName {
					return port.Name, true
				}
			}
		} else if port.Name == ifaceName {
			return ifaceName, true
		}
	}
	return "", false
}

// Validate checks port level settings of the bridge
func (c *OvsBridgeConfig) Validate(bridgeName string) error {
	if c.Ports == nil {
		return nil
	}
	seen := map[string]bool{}
	for _, port := range *c.Ports {
		if port.Name == "" {
			return domainErrors.InvalidArgumentf("OVS bridge %s has a port without name", bridgeName)
		}
		if seen[port.Name] {
			return domainErrors.InvalidArgumentf("OVS bridge %s lists port %s twice", bridgeName, port.Name)
		}
		seen[port.Name] = true
		if port.Vlan != nil && port.Vlan.Tag != nil && *port.Vlan.Tag > maxVlanID {
			return domainErrors.InvalidArgumentf(
				"VLAN tag %d of OVS port %s exceeds %d", *port.Vlan.Tag, port.Name, maxVlanID)
		}
		if port.Bond != nil && len(port.Bond.PortNames()) < 2 {
			return domainErrors.InvalidArgumentf(
				"OVS bond port %s of bridge %s requires at least 2 members", port.Name, bridgeName)
		}
	}
	return nil
}

// OvsInterface is an OVS internal, patch or DPDK interface
type OvsInterface struct {
	BaseInterface
	Patch *OvsPatchConfig `json:"patch,omitempty"`
	Dpdk  *OvsDpdkConfig  `json:"dpdk,omitempty"`
}

func (*OvsInterface) isInterface() {}

// OvsPatchConfig names the other end of a patch cable
type OvsPatchConfig struct {
	Peer string `json:"peer"`
}

// OvsDpdkConfig holds DPDK device settings
type OvsDpdkConfig struct {
	Devargs string         `json:"devargs"`
	RxQueue *scalar.Uint32 `json:"rx-queue,omitempty"`
}

// IsPatch reports whether the interface is a patch port
func (i *OvsInterface) IsPatch() bool {
	return i.Patch != nil
}

// IsDpdk reports whether the interface carries usable DPDK settings.
// An empty devargs string counts as no DPDK config.
func (i *OvsInterface) IsDpdk() bool {
	return i.Dpdk != nil && i.Dpdk.Devargs != ""
}

// Validate rejects patch and DPDK configs given together
func (i *OvsInterface) Validate() error {
	if i.Patch != nil && i.Dpdk != nil {
		return domainErrors.InvalidArgumentf(
			"OVS interface %s cannot have both patch and dpdk config", i.Name)
	}
	if i.Patch != nil && i.Patch.Peer == "" {
		return domainErrors.InvalidArgumentf("OVS patch interface %s requires a peer", i.Name)
	}
	return nil
}
