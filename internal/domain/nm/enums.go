package nm

import (
	"fmt"
	"strconv"
	"strings"

	"netstate-agent/internal/domain/entities"
	domainErrors "netstate-agent/internal/domain/errors"
)

var interfaceTypes = map[entities.InterfaceType]string{
	entities.InterfaceTypeEthernet:     TypeEthernet,
	entities.InterfaceTypeLinuxBridge:  TypeBridge,
	entities.InterfaceTypeBond:         TypeBond,
	entities.InterfaceTypeOvsBridge:    TypeOvsBridge,
	entities.InterfaceTypeOvsInterface: TypeOvsIface,
	entities.InterfaceTypeVlan:         TypeVlan,
	entities.InterfaceTypeVxlan:        TypeVxlan,
	entities.InterfaceTypeDummy:        TypeDummy,
	entities.InterfaceTypeMacVlan:      TypeMacVlan,
	entities.InterfaceTypeInfiniBand:   TypeInfiniBand,
	entities.InterfaceTypeVrf:          TypeVrf,
	entities.InterfaceTypeVeth:         TypeVeth,
}

// InterfaceTypeToNM returns the connection type of an interface kind
func InterfaceTypeToNM(t entities.InterfaceType) (string, error) {
	if nmType, ok := interfaceTypes[t]; ok {
		return nmType, nil
	}
	return "", domainErrors.InvalidArgumentf("Interface type %s is not supported by NetworkManager", t)
}

// InterfaceTypeFromNM maps a connection type back to the interface kind.
// ovs-port has no interface counterpart and maps to unknown.
func InterfaceTypeFromNM(nmType string) entities.InterfaceType {
	if nmType == "ethernet" {
		return entities.InterfaceTypeEthernet
	}
	for t, n := range interfaceTypes {
		if n == nmType {
			return t
		}
	}
	return entities.InterfaceTypeUnknown
}

// VlanProtocolToNM encodes the tagging protocol the way NetworkManager spells it
func VlanProtocolToNM(p entities.VlanProtocol) string {
	if p == entities.VlanProtocolIeee8021Ad {
		return "802.1ad"
	}
	return "802.1Q"
}

// VlanProtocolFromNM decodes a NetworkManager tagging protocol
func VlanProtocolFromNM(s string) (entities.VlanProtocol, error) {
	switch strings.ToLower(s) {
	case "", "802.1q":
		return entities.VlanProtocolIeee8021Q, nil
	case "802.1ad":
		return entities.VlanProtocolIeee8021Ad, nil
	}
	return "", domainErrors.InvalidArgumentf("Invalid VLAN protocol %q, expecting 802.1Q|802.1ad", s)
}

// MulticastRouterFromNM accepts the mnemonic NetworkManager writes as well
// as the kernel ordinal
func MulticastRouterFromNM(s string) (entities.LinuxBridgeMulticastRouterType, error) {
	if v, err := strconv.ParseUint(s, 10, 8); err == nil {
		return entities.MulticastRouterFromOrdinal(v)
	}
	return entities.ParseMulticastRouter(s)
}

// MacVlanModeFromNM decodes the NetworkManager integer mode
func MacVlanModeFromNM(code uint32) (entities.MacVlanMode, error) {
	return entities.MacVlanModeFromCode(code)
}

// InfiniBandPkeyToNM returns the partition key as NetworkManager stores it,
// or nil for the default partition
func InfiniBandPkeyToNM(k *entities.InfiniBandPkey) *int32 {
	if k == nil || *k == entities.InfiniBandPkeyDefault {
		return nil
	}
	v := int32(*k)
	return &v
}

// trunkTagsToNM renders VLAN trunk tags as "100" or "200-300"
func trunkTagsToNM(tags *[]entities.BridgePortTrunkTag) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, 0, len(*tags))
	for _, tag := range *tags {
		switch {
		case tag.ID != nil:
			out = append(out, strconv.FormatUint(uint64(*tag.ID), 10))
		case tag.IDRange != nil:
			out = append(out, fmt.Sprintf("%d-%d", tag.IDRange.Min, tag.IDRange.Max))
		}
	}
	return out
}

// bridgePortVlansToNM renders a bridge port VLAN config as NetworkManager
// vlan entries such as "100 pvid untagged" and "200-300"
func bridgePortVlansToNM(conf *entities.BridgePortVlanConfig) []string {
	if conf == nil || conf.IsEmpty() {
		return nil
	}
	var out []string
	native := conf.Tag != nil &&
		((conf.Mode != nil && *conf.Mode == entities.BridgePortVlanModeAccess) ||
			(conf.EnableNative != nil && bool(*conf.EnableNative)))
	if native {
		out = append(out, fmt.Sprintf("%d pvid untagged", *conf.Tag))
	}
	if conf.Mode == nil || *conf.Mode == entities.BridgePortVlanModeTrunk {
		out = append(out, trunkTagsToNM(conf.TrunkTags)...)
	}
	return out
}
