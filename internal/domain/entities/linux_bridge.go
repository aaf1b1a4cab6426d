package entities

import (
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"

	domainErrors "netstate-agent/internal/domain/errors"
	"netstate-agent/internal/domain/scalar"
)

// LinuxBridgeInterface is a kernel bridge
type LinuxBridgeInterface struct {
	BaseInterface
	Bridge *LinuxBridgeConfig `json:"bridge,omitempty"`
}

func (*LinuxBridgeInterface) isInterface() {}

// LinuxBridgeConfig holds bridge wide options and the port list.
// The port list accepts both "port" and "ports" on input.
type LinuxBridgeConfig struct {
	Options *LinuxBridgeOptions      `json:"options,omitempty"`
	Ports   *[]LinuxBridgePortConfig `json:"port,omitempty"`
}

// LinuxBridgePortConfig is the per port tuning of one bridge port
type LinuxBridgePortConfig struct {
	Name           string                `json:"name"`
	StpHairpinMode *scalar.Bool          `json:"stp-hairpin-mode,omitempty"`
	StpPathCost    *scalar.Uint32        `json:"stp-path-cost,omitempty"`
	StpPriority    *scalar.Uint16        `json:"stp-priority,omitempty"`
	Vlan           *BridgePortVlanConfig `json:"vlan,omitempty"`
}

// LinuxBridgeOptions are the bridge wide knobs.
// GroupForwardMask is also accepted as "group-fwd-mask" on input.
type LinuxBridgeOptions struct {
	GcTimer                        *scalar.Uint64                  `json:"gc-timer,omitempty"`
	GroupAddr                      *string                         `json:"group-addr,omitempty"`
	GroupForwardMask               *scalar.Uint16                  `json:"group-forward-mask,omitempty"`
	HashMax                        *scalar.Uint32                  `json:"hash-max,omitempty"`
	HelloTimer                     *scalar.Uint64                  `json:"hello-timer,omitempty"`
	MacAgeingTime                  *scalar.Uint32                  `json:"mac-ageing-time,omitempty"`
	MulticastLastMemberCount       *scalar.Uint32                  `json:"multicast-last-member-count,omitempty"`
	MulticastLastMemberInterval    *scalar.Uint64                  `json:"multicast-last-member-interval,omitempty"`
	MulticastMembershipInterval    *scalar.Uint64                  `json:"multicast-membership-interval,omitempty"`
	MulticastQuerier               *scalar.Bool                    `json:"multicast-querier,omitempty"`
	MulticastQuerierInterval       *scalar.Uint64                  `json:"multicast-querier-interval,omitempty"`
	MulticastQueryInterval         *scalar.Uint64                  `json:"multicast-query-interval,omitempty"`
	MulticastQueryResponseInterval *scalar.Uint64                  `json:"multicast-query-response-interval,omitempty"`
	MulticastQueryUseIfaddr        *scalar.Bool                    `json:"multicast-query-use-ifaddr,omitempty"`
	MulticastRouter                *LinuxBridgeMulticastRouterType `json:"multicast-router,omitempty"`
	MulticastSnooping              *scalar.Bool                    `json:"multicast-snooping,omitempty"`
	MulticastStartupQueryCount     *scalar.Uint32                  `json:"multicast-startup-query-count,omitempty"`
	MulticastStartupQueryInterval  *scalar.Uint64                  `json:"multicast-startup-query-interval,omitempty"`
	Stp                            *LinuxBridgeStpOptions          `json:"stp,omitempty"`
	VlanProtocol                   *VlanProtocol                   `json:"vlan-protocol,omitempty"`
	VlanDefaultPvid                *scalar.Uint16                  `json:"vlan-default-pvid,omitempty"`
}

// LinuxBridgeStpOptions holds spanning tree settings
type LinuxBridgeStpOptions struct {
	Enabled      *scalar.Bool   `json:"enabled,omitempty"`
	ForwardDelay *scalar.Uint8  `json:"forward-delay,omitempty"`
	HelloTime    *scalar.Uint8  `json:"hello-time,omitempty"`
	MaxAge       *scalar.Uint8  `json:"max-age,omitempty"`
	Priority     *scalar.Uint16 `json:"priority,omitempty"`
}

// Accepted STP timer ranges, in seconds
const (
	LinuxBridgeStpHelloTimeMin    = 1
	LinuxBridgeStpHelloTimeMax    = 10
	LinuxBridgeStpMaxAgeMin       = 6
	LinuxBridgeStpMaxAgeMax       = 40
	LinuxBridgeStpForwardDelayMin = 2
	LinuxBridgeStpForwardDelayMax = 30
)

// Validate checks the STP timers against their accepted ranges
func (o *LinuxBridgeStpOptions) Validate() error {
	checks := []struct {
		label    string
		value    *scalar.Uint8
		min, max int
	}{
		{"hello time", o.HelloTime, LinuxBridgeStpHelloTimeMin, LinuxBridgeStpHelloTimeMax},
		{"max age", o.MaxAge, LinuxBridgeStpMaxAgeMin, LinuxBridgeStpMaxAgeMax},
		{"forward delay", o.ForwardDelay, LinuxBridgeStpForwardDelayMin, LinuxBridgeStpForwardDelayMax},
	}
	for _, c := range checks {
		if c.value == nil {
			continue
		}
		if v := int(*c.value); v < c.min || v > c.max {
			return domainErrors.InvalidArgumentf(
				"Desired STP %s %d is not in the range of [%d,%d]", c.label, v, c.min, c.max)
		}
	}
	return nil
}

// LinuxBridgeMulticastRouterType controls multicast router port detection
type LinuxBridgeMulticastRouterType uint8

const (
	LinuxBridgeMulticastRouterDisabled LinuxBridgeMulticastRouterType = 0
	LinuxBridgeMulticastRouterAuto     LinuxBridgeMulticastRouterType = 1
	LinuxBridgeMulticastRouterEnabled  LinuxBridgeMulticastRouterType = 2
)

var multicastRouterNames = map[LinuxBridgeMulticastRouterType]string{
	LinuxBridgeMulticastRouterDisabled: "disabled",
	LinuxBridgeMulticastRouterAuto:     "auto",
	LinuxBridgeMulticastRouterEnabled:  "enabled",
}

func invalidMulticastRouter(value string) error {
	return domainErrors.InvalidArgumentf(
		"Invalid linux bridge multicast_router type %s, expecting 0|1|2 or auto|disabled|enabled", value)
}

// String returns the lowercase mnemonic
func (t LinuxBridgeMulticastRouterType) String() string {
	if name, ok := multicastRouterNames[t]; ok {
		return name
	}
	return strconv.Itoa(int(t))
}

// Ordinal returns the integer code
func (t LinuxBridgeMulticastRouterType) Ordinal() uint8 {
	return uint8(t)
}

// MulticastRouterFromOrdinal maps an integer code to the enum
func MulticastRouterFromOrdinal(v uint64) (LinuxBridgeMulticastRouterType, error) {
	t := LinuxBridgeMulticastRouterType(v)
	if v > uint64(LinuxBridgeMulticastRouterEnabled) {
		return 0, invalidMulticastRouter(strconv.FormatUint(v, 10))
	}
	return t, nil
}

// ParseMulticastRouter accepts a mnemonic in any case or a decimal ordinal
func ParseMulticastRouter(s string) (LinuxBridgeMulticastRouterType, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	for t, name := range multicastRouterNames {
		if name == lower {
			return t, nil
		}
	}
	if v, err := strconv.ParseUint(lower, 10, 64); err == nil {
		if t, err := MulticastRouterFromOrdinal(v); err == nil {
			return t, nil
		}
	}
	return 0, invalidMulticastRouter(s)
}

// MarshalJSON emits the mnemonic
func (t LinuxBridgeMulticastRouterType) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

// UnmarshalJSON accepts an ordinal number or a mnemonic string
func (t *LinuxBridgeMulticastRouterType) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := jsonUnmarshal(data, &s); err != nil {
			return err
		}
		v, err := ParseMulticastRouter(s)
		if err != nil {
			return err
		}
		*t = v
		return nil
	}
	n, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return invalidMulticastRouter(text)
	}
	v, err := MulticastRouterFromOrdinal(n)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// UnmarshalYAML accepts an ordinal number or a mnemonic string
func (t *LinuxBridgeMulticastRouterType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := ParseMulticastRouter(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// MarshalYAML emits the mnemonic
func (t LinuxBridgeMulticastRouterType) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// BridgePortVlanMode is the VLAN mode of a bridge port
type BridgePortVlanMode string

const (
	BridgePortVlanModeTrunk  BridgePortVlanMode = "trunk"
	BridgePortVlanModeAccess BridgePortVlanMode = "access"
)

// BridgePortVlanConfig is the VLAN filtering config of a bridge port
type BridgePortVlanConfig struct {
	EnableNative *scalar.Bool          `json:"enable-native,omitempty"`
	Mode         *BridgePortVlanMode   `json:"mode,omitempty"`
	Tag          *scalar.Uint16        `json:"tag,omitempty"`
	TrunkTags    *[]BridgePortTrunkTag `json:"trunk-tags,omitempty"`
}

// BridgePortTrunkTag is either a single id or an id range
type BridgePortTrunkTag struct {
	ID      *scalar.Uint16       `json:"id,omitempty"`
	IDRange *BridgePortVlanRange `json:"id-range,omitempty"`
}

// BridgePortVlanRange is an inclusive VLAN id range
type BridgePortVlanRange struct {
	Min scalar.Uint16 `json:"min"`
	Max scalar.Uint16 `json:"max"`
}

// IsEmpty reports whether no VLAN attribute is set
func (c *BridgePortVlanConfig) IsEmpty() bool {
	return c.EnableNative == nil && c.Mode == nil && c.Tag == nil && c.TrunkTags == nil
}

// IsChanged reports whether any attribute set in c differs from current
func (c *BridgePortVlanConfig) IsChanged(current *BridgePortVlanConfig) bool {
	return scalar.Changed(c.EnableNative, current.EnableNative) ||
		scalar.Changed(c.Mode, current.Mode) ||
		scalar.Changed(c.Tag, current.Tag) ||
		(c.TrunkTags != nil && !cmp.Equal(c.TrunkTags, current.TrunkTags))
}

// IsChanged reports whether a desired port config changes the current one.
// Attributes absent from the desired side never count as changed.
func (p *LinuxBridgePortConfig) IsChanged(current *LinuxBridgePortConfig) bool {
	if scalar.Changed(p.StpHairpinMode, current.StpHairpinMode) ||
		scalar.Changed(p.StpPathCost, current.StpPathCost) ||
		scalar.Changed(p.StpPriority, current.StpPriority) {
		return true
	}
	switch {
	case p.Vlan != nil && current.Vlan != nil:
		return (p.Vlan.IsEmpty() && !current.Vlan.IsEmpty()) || p.Vlan.IsChanged(current.Vlan)
	case p.Vlan != nil:
		return true
	}
	return false
}

// VlanFilteringIsEnabled is true unless the port carries an explicit empty VLAN config
func (p *LinuxBridgePortConfig) VlanFilteringIsEnabled() bool {
	return p.Vlan == nil || !p.Vlan.IsEmpty()
}

// Validate checks bridge options and that port names are unique
func (c *LinuxBridgeConfig) Validate(bridgeName string) error {
	if c.Options != nil && c.Options.Stp != nil {
		if err := c.Options.Stp.Validate(); err != nil {
			return err
		}
	}
	if c.Ports != nil {
		seen := map[string]bool{}
		for _, port := range *c.Ports {
			if seen[port.Name] {
				return domainErrors.InvalidArgumentf("Linux bridge %s lists port %s twice", bridgeName, port.Name)
			}
			seen[port.Name] = true
			if port.Vlan == nil || port.Vlan.Tag == nil {
				continue
			}
			if *port.Vlan.Tag > maxVlanID {
				return domainErrors.InvalidArgumentf(
					"VLAN tag %d of bridge port %s exceeds %d", *port.Vlan.Tag, port.Name, maxVlanID)
			}
		}
	}
	return nil
}

// PortNames returns the port list, or false when no port list was given
func (i *LinuxBridgeInterface) PortNames() ([]string, bool) {
	if i.Bridge == nil || i.Bridge.Ports == nil {
		return nil, false
	}
	names := make([]string, 0, len(*i.Bridge.Ports))
	for _, p := range *i.Bridge.Ports {
		names = append(names, p.Name)
	}
	return names, true
}

// GetPortConf returns the config of the named port
func (i *LinuxBridgeInterface) GetPortConf(name string) *LinuxBridgePortConfig {
	if i.Bridge == nil || i.Bridge.Ports == nil {
		return nil
	}
	for idx := range *i.Bridge.Ports {
		if (*i.Bridge.Ports)[idx].Name == name {
			return &(*i.Bridge.Ports)[idx]
		}
	}
	return nil
}

// VlanFilteringIsEnabled is true when any port has VLAN filtering enabled
func (i *LinuxBridgeInterface) VlanFilteringIsEnabled() bool {
	if i.Bridge == nil || i.Bridge.Ports == nil {
		return false
	}
	for idx := range *i.Bridge.Ports {
		if (*i.Bridge.Ports)[idx].VlanFilteringIsEnabled() {
			return true
		}
	}
	return false
}

// GetConfigChangedPorts returns the ports present on both sides whose STP or
// VLAN settings differ. Ports added to or removed from the list are not
// reported here; membership is reconciled separately.
func (i *LinuxBridgeInterface) GetConfigChangedPorts(current *LinuxBridgeInterface) []string {
	desiredIndex := indexBridgePorts(i)
	currentIndex := indexBridgePorts(current)
	var changed []string
	for _, name := range sortedKeys(desiredIndex) {
		cur, ok := currentIndex[name]
		if !ok {
			continue
		}
		if desiredIndex[name].IsChanged(cur) {
			changed = append(changed, name)
		}
	}
	return changed
}

func indexBridgePorts(i *LinuxBridgeInterface) map[string]*LinuxBridgePortConfig {
	index := map[string]*LinuxBridgePortConfig{}
	if i == nil || i.Bridge == nil || i.Bridge.Ports == nil {
		return index
	}
	for idx := range *i.Bridge.Ports {
		port := &(*i.Bridge.Ports)[idx]
		index[port.Name] = port
	}
	return index
}
