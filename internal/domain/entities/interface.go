package entities

import (
	"strings"

	"netstate-agent/internal/domain/scalar"
)

// InterfaceType selects the active kind of an interface
type InterfaceType string

const (
	InterfaceTypeEthernet     InterfaceType = "ethernet"
	InterfaceTypeLinuxBridge  InterfaceType = "linux-bridge"
	InterfaceTypeOvsBridge    InterfaceType = "ovs-bridge"
	InterfaceTypeOvsInterface InterfaceType = "ovs-interface"
	InterfaceTypeVrf          InterfaceType = "vrf"
	InterfaceTypeBond         InterfaceType = "bond"
	InterfaceTypeVlan         InterfaceType = "vlan"
	InterfaceTypeVxlan        InterfaceType = "vxlan"
	InterfaceTypeVeth         InterfaceType = "veth"
	InterfaceTypeMacVlan      InterfaceType = "mac-vlan"
	InterfaceTypeInfiniBand   InterfaceType = "infiniband"
	InterfaceTypeDummy        InterfaceType = "dummy"
	InterfaceTypeUnknown      InterfaceType = "unknown"
)

// IsUserSpace reports whether interfaces of this type live outside the kernel
// namespace. An OVS bridge may share its name with a kernel interface.
func (t InterfaceType) IsUserSpace() bool {
	return t == InterfaceTypeOvsBridge
}

// IsPhysical reports whether the type represents hardware that cannot be deleted
func (t InterfaceType) IsPhysical() bool {
	return t == InterfaceTypeEthernet || t == InterfaceTypeInfiniBand
}

// InterfaceState is the lifecycle tag of an interface
type InterfaceState string

const (
	InterfaceStateUp      InterfaceState = "up"
	InterfaceStateDown    InterfaceState = "down"
	InterfaceStateAbsent  InterfaceState = "absent"
	InterfaceStateIgnore  InterfaceState = "ignore"
	InterfaceStateUnknown InterfaceState = "unknown"
)

// UnmarshalJSON accepts the known states case-insensitively
func (s *InterfaceState) UnmarshalJSON(data []byte) error {
	var text string
	if err := jsonUnmarshal(data, &text); err != nil {
		return err
	}
	switch st := InterfaceState(strings.ToLower(text)); st {
	case InterfaceStateUp, InterfaceStateDown, InterfaceStateAbsent,
		InterfaceStateIgnore, InterfaceStateUnknown:
		*s = st
		return nil
	}
	return invalidEnum("interface state", text, "up|down|absent|ignore|unknown")
}

// BaseInterface holds attributes shared by all interface kinds
type BaseInterface struct {
	Name        string         `json:"name"`
	Type        InterfaceType  `json:"type,omitempty"`
	State       InterfaceState `json:"state,omitempty"`
	Description *string        `json:"description,omitempty"`
	MTU         *scalar.Uint64 `json:"mtu,omitempty"`
	MACAddress  *string        `json:"mac-address,omitempty"`
	// Controller names the owning aggregate interface. An empty string
	// detaches the interface from any controller.
	Controller *string `json:"controller,omitempty"`
	// ControllerType is resolved by the reconciler from the controller
	// interface and never read from input
	ControllerType InterfaceType     `json:"-"`
	IPv4           *InterfaceIP      `json:"ipv4,omitempty"`
	IPv6           *InterfaceIP      `json:"ipv6,omitempty"`
	Ieee8021X      *Ieee8021XConfig  `json:"802.1x,omitempty"`
	OvsDB          *OvsDBIfaceConfig `json:"ovs-db,omitempty"`
}

// Base returns the shared attributes
func (b *BaseInterface) Base() *BaseInterface {
	return b
}

// EffectiveState treats an unset state as up
func (b *BaseInterface) EffectiveState() InterfaceState {
	if b.State == "" {
		return InterfaceStateUp
	}
	return b.State
}

// HasController reports whether a non-empty controller is set
func (b *BaseInterface) HasController() bool {
	return b.Controller != nil && *b.Controller != ""
}

// ControllerName returns the controller or an empty string
func (b *BaseInterface) ControllerName() string {
	if b.Controller == nil {
		return ""
	}
	return *b.Controller
}

// InterfaceIP is the IP stack configuration of an interface
type InterfaceIP struct {
	Enabled  *scalar.Bool          `json:"enabled,omitempty"`
	DHCP     *scalar.Bool          `json:"dhcp,omitempty"`
	Autoconf *scalar.Bool          `json:"autoconf,omitempty"`
	Address  *[]InterfaceIPAddress `json:"address,omitempty"`
}

// InterfaceIPAddress is one static address
type InterfaceIPAddress struct {
	IP           string       `json:"ip"`
	PrefixLength scalar.Uint8 `json:"prefix-length"`
}

// HiddenPassword is the masking sentinel used in place of an 802.1x private
// key password when the state was reported back to a user. A desired state
// carrying it asks for the stored password to be kept unchanged; an empty
// string asks for the password to be cleared.
const HiddenPassword = "<_password_hid_by_nmstate>"

// Ieee8021XConfig holds 802.1x credentials
type Ieee8021XConfig struct {
	Identity           *string   `json:"identity,omitempty"`
	EapMethods         *[]string `json:"eap-methods,omitempty"`
	PrivateKey         *string   `json:"private-key,omitempty"`
	ClientCert         *string   `json:"client-cert,omitempty"`
	CaCert             *string   `json:"ca-cert,omitempty"`
	PrivateKeyPassword *string   `json:"private-key-password,omitempty"`
}

// PasswordIsHidden reports whether the private key password is the masking sentinel
func (c *Ieee8021XConfig) PasswordIsHidden() bool {
	return c.PrivateKeyPassword != nil && *c.PrivateKeyPassword == HiddenPassword
}

// OvsDBIfaceConfig holds OVS database annotations of an interface
type OvsDBIfaceConfig struct {
	ExternalIDs *map[string]scalar.String `json:"external_ids,omitempty"`
	OtherConfig *map[string]scalar.String `json:"other_config,omitempty"`
}

// GetExternalIDs returns the external ids as plain strings
func (c *OvsDBIfaceConfig) GetExternalIDs() map[string]string {
	ret := map[string]string{}
	if c == nil || c.ExternalIDs == nil {
		return ret
	}
	for k, v := range *c.ExternalIDs {
		ret[k] = string(v)
	}
	return ret
}

// Interface is the closed set of interface kinds. Per-kind behaviour is
// implemented as type switches in this package.
type Interface interface {
	Base() *BaseInterface
	isInterface()
}

// Interfaces is an ordered interface list
type Interfaces []Interface

// NetworkState is the top level document
type NetworkState struct {
	Interfaces Interfaces `json:"interfaces"`
}

// Names returns interface names in order
func (ifaces Interfaces) Names() []string {
	names := make([]string, 0, len(ifaces))
	for _, iface := range ifaces {
		names = append(names, iface.Base().Name)
	}
	return names
}
