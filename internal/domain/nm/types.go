package nm

import (
	"fmt"
	"strings"
)

// NetworkManager connection types
const (
	TypeEthernet   = "802-3-ethernet"
	TypeBridge     = "bridge"
	TypeBond       = "bond"
	TypeOvsBridge  = "ovs-bridge"
	TypeOvsPort    = "ovs-port"
	TypeOvsIface   = "ovs-interface"
	TypeVlan       = "vlan"
	TypeVxlan      = "vxlan"
	TypeDummy      = "dummy"
	TypeMacVlan    = "macvlan"
	TypeInfiniBand = "infiniband"
	TypeVrf        = "vrf"
	TypeVeth       = "veth"
)

// ProfileKey identifies a connection profile. Names are only unique per
// connection type: an OVS bridge, its port and its internal interface may
// all share one name.
type ProfileKey struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`
}

// String returns id/type
func (k ProfileKey) String() string {
	return k.ID + "/" + k.Type
}

// FileName returns the keyfile name of the profile
func (k ProfileKey) FileName() string {
	id := strings.NewReplacer("/", "_", "\x00", "").Replace(k.ID)
	return fmt.Sprintf("%s-%s.nmconnection", id, k.Type)
}

// Connection is one backend connection profile. Settings left nil are not
// written.
type Connection struct {
	Connection *ConnectionSetting `yaml:"connection,omitempty"`
	Wired      *WiredSetting      `yaml:"ethernet,omitempty"`
	Bridge     *BridgeSetting     `yaml:"bridge,omitempty"`
	BridgePort *BridgePortSetting `yaml:"bridge-port,omitempty"`
	Bond       *BondSetting       `yaml:"bond,omitempty"`
	OvsBridge  *OvsBridgeSetting  `yaml:"ovs-bridge,omitempty"`
	OvsPort    *OvsPortSetting    `yaml:"ovs-port,omitempty"`
	OvsIface   *OvsIfaceSetting   `yaml:"ovs-interface,omitempty"`
	OvsPatch   *OvsPatchSetting   `yaml:"ovs-patch,omitempty"`
	OvsDpdk    *OvsDpdkSetting    `yaml:"ovs-dpdk,omitempty"`
	OvsExtIDs  *OvsExtIDsSetting  `yaml:"ovs-external-ids,omitempty"`
	Ieee8021X  *Ieee8021XSetting  `yaml:"802-1x,omitempty"`
	Vrf        *VrfSetting        `yaml:"vrf,omitempty"`
	Vlan       *VlanSetting       `yaml:"vlan,omitempty"`
	Vxlan      *VxlanSetting      `yaml:"vxlan,omitempty"`
	MacVlan    *MacVlanSetting    `yaml:"macvlan,omitempty"`
	Veth       *VethSetting       `yaml:"veth,omitempty"`
	InfiniBand *InfiniBandSetting `yaml:"infiniband,omitempty"`
	Sriov      *SriovSetting      `yaml:"sriov,omitempty"`
	IPv4       *IPSetting         `yaml:"ipv4,omitempty"`
	IPv6       *IPSetting         `yaml:"ipv6,omitempty"`
}

// Key returns the profile key, empty when the connection setting is missing
func (c *Connection) Key() ProfileKey {
	if c == nil || c.Connection == nil {
		return ProfileKey{}
	}
	return ProfileKey{ID: c.Connection.ID, Type: c.Connection.Type}
}

// ConnectionSetting is the generic part of a profile
type ConnectionSetting struct {
	ID               string `yaml:"id"`
	UUID             string `yaml:"uuid"`
	Type             string `yaml:"type"`
	InterfaceName    string `yaml:"interface-name"`
	Autoconnect      *bool  `yaml:"autoconnect,omitempty"`
	AutoconnectPorts *int   `yaml:"autoconnect-ports,omitempty"`
	Controller       string `yaml:"controller,omitempty"`
	PortType         string `yaml:"port-type,omitempty"`
}

// WiredSetting holds link layer settings
type WiredSetting struct {
	MTU              *uint64 `yaml:"mtu,omitempty"`
	ClonedMACAddress string  `yaml:"cloned-mac-address,omitempty"`
	AutoNegotiate    *bool   `yaml:"auto-negotiate,omitempty"`
	Speed            *uint32 `yaml:"speed,omitempty"`
	Duplex           string  `yaml:"duplex,omitempty"`
}

// BridgeSetting holds linux bridge options
type BridgeSetting struct {
	Stp                            *bool    `yaml:"stp,omitempty"`
	Priority                       *uint16  `yaml:"priority,omitempty"`
	ForwardDelay                   *uint8   `yaml:"forward-delay,omitempty"`
	HelloTime                      *uint8   `yaml:"hello-time,omitempty"`
	MaxAge                         *uint8   `yaml:"max-age,omitempty"`
	AgeingTime                     *uint32  `yaml:"ageing-time,omitempty"`
	GroupAddress                   string   `yaml:"group-address,omitempty"`
	GroupForwardMask               *uint16  `yaml:"group-forward-mask,omitempty"`
	MulticastHashMax               *uint32  `yaml:"multicast-hash-max,omitempty"`
	MulticastLastMemberCount       *uint32  `yaml:"multicast-last-member-count,omitempty"`
	MulticastLastMemberInterval    *uint64  `yaml:"multicast-last-member-interval,omitempty"`
	MulticastMembershipInterval    *uint64  `yaml:"multicast-membership-interval,omitempty"`
	MulticastQuerier               *bool    `yaml:"multicast-querier,omitempty"`
	MulticastQuerierInterval       *uint64  `yaml:"multicast-querier-interval,omitempty"`
	MulticastQueryInterval         *uint64  `yaml:"multicast-query-interval,omitempty"`
	MulticastQueryResponseInterval *uint64  `yaml:"multicast-query-response-interval,omitempty"`
	MulticastQueryUseIfaddr        *bool    `yaml:"multicast-query-use-ifaddr,omitempty"`
	MulticastRouter                string   `yaml:"multicast-router,omitempty"`
	MulticastSnooping              *bool    `yaml:"multicast-snooping,omitempty"`
	MulticastStartupQueryCount     *uint32  `yaml:"multicast-startup-query-count,omitempty"`
	MulticastStartupQueryInterval  *uint64  `yaml:"multicast-startup-query-interval,omitempty"`
	VlanFiltering                  *bool    `yaml:"vlan-filtering,omitempty"`
	VlanProtocol                   string   `yaml:"vlan-protocol,omitempty"`
	VlanDefaultPvid                *uint16  `yaml:"vlan-default-pvid,omitempty"`
	Vlans                          []string `yaml:"vlans,omitempty"`
}

// BridgePortSetting holds the per port settings of a bridge member
type BridgePortSetting struct {
	HairpinMode *bool    `yaml:"hairpin-mode,omitempty"`
	PathCost    *uint32  `yaml:"path-cost,omitempty"`
	Priority    *uint16  `yaml:"priority,omitempty"`
	Vlans       []string `yaml:"vlans,omitempty"`
}

// BondSetting holds bond mode and options as NetworkManager strings
type BondSetting struct {
	Options map[string]string `yaml:",inline"`
}

// OvsBridgeSetting holds OVS bridge options
type OvsBridgeSetting struct {
	Stp                 *bool  `yaml:"stp-enable,omitempty"`
	Rstp                *bool  `yaml:"rstp-enable,omitempty"`
	McastSnoopingEnable *bool  `yaml:"mcast-snooping-enable,omitempty"`
	FailMode            string `yaml:"fail-mode,omitempty"`
	DatapathType        string `yaml:"datapath-type,omitempty"`
}

// OvsPortSetting holds OVS port and bond options
type OvsPortSetting struct {
	Lacp          string   `yaml:"lacp,omitempty"`
	BondMode      string   `yaml:"bond-mode,omitempty"`
	BondDowndelay *uint32  `yaml:"bond-downdelay,omitempty"`
	BondUpdelay   *uint32  `yaml:"bond-updelay,omitempty"`
	Tag           *uint16  `yaml:"tag,omitempty"`
	VlanMode      string   `yaml:"vlan-mode,omitempty"`
	Trunks        []string `yaml:"trunks,omitempty"`
}

// OvsIfaceSetting holds the OVS interface kind: internal, patch or dpdk
type OvsIfaceSetting struct {
	Type string `yaml:"type,omitempty"`
}

// OvsPatchSetting names the peer of a patch port
type OvsPatchSetting struct {
	Peer string `yaml:"peer,omitempty"`
}

// OvsDpdkSetting holds DPDK device options
type OvsDpdkSetting struct {
	Devargs string  `yaml:"devargs,omitempty"`
	NRxq    *uint32 `yaml:"n-rxq,omitempty"`
}

// OvsExtIDsSetting holds OVS database external ids
type OvsExtIDsSetting struct {
	Data map[string]string `yaml:"data,omitempty"`
}

// Ieee8021XSetting holds 802.1x credentials
type Ieee8021XSetting struct {
	Identity           string   `yaml:"identity,omitempty"`
	Eap                []string `yaml:"eap,omitempty"`
	PrivateKey         string   `yaml:"private-key,omitempty"`
	ClientCert         string   `yaml:"client-cert,omitempty"`
	CaCert             string   `yaml:"ca-cert,omitempty"`
	PrivateKeyPassword *string  `yaml:"private-key-password,omitempty"`
}

// VrfSetting holds the VRF route table
type VrfSetting struct {
	Table uint32 `yaml:"table"`
}

// VlanSetting holds parent, id and tagging protocol
type VlanSetting struct {
	Parent   string `yaml:"parent"`
	ID       uint16 `yaml:"id"`
	Protocol string `yaml:"protocol,omitempty"`
}

// VxlanSetting holds VXLAN tunnel settings
type VxlanSetting struct {
	Parent          string  `yaml:"parent,omitempty"`
	ID              uint32  `yaml:"id"`
	Learning        *bool   `yaml:"learning,omitempty"`
	Local           string  `yaml:"local,omitempty"`
	Remote          string  `yaml:"remote,omitempty"`
	DestinationPort *uint16 `yaml:"destination-port,omitempty"`
}

// MacVlanSetting holds MAC-VLAN settings. Mode is the NetworkManager
// integer encoding.
type MacVlanSetting struct {
	Parent      string `yaml:"parent"`
	Mode        uint32 `yaml:"mode"`
	Promiscuous *bool  `yaml:"promiscuous,omitempty"`
}

// VethSetting names the veth peer
type VethSetting struct {
	Peer string `yaml:"peer"`
}

// InfiniBandSetting holds IPoIB settings
type InfiniBandSetting struct {
	MTU           *uint64 `yaml:"mtu,omitempty"`
	TransportMode string  `yaml:"transport-mode"`
	Parent        string  `yaml:"parent,omitempty"`
	PKey          *int32  `yaml:"p-key,omitempty"`
}

// SriovSetting holds SR-IOV VF settings. VFs are keyed by VF id.
type SriovSetting struct {
	TotalVfs *uint32           `yaml:"total-vfs,omitempty"`
	Vfs      map[string]string `yaml:"vf,omitempty"`
}

// IPSetting holds the IP method and static addresses
type IPSetting struct {
	Method    string   `yaml:"method"`
	Addresses []string `yaml:"addresses,omitempty"`
}
