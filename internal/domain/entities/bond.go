package entities

import (
	domainErrors "netstate-agent/internal/domain/errors"
	"netstate-agent/internal/domain/scalar"
)

// BondInterface is a kernel bond
type BondInterface struct {
	BaseInterface
	Bond *BondConfig `json:"link-aggregation,omitempty"`
}

func (*BondInterface) isInterface() {}

// BondMode is the kernel bonding mode
type BondMode string

const (
	BondModeRoundRobin   BondMode = "balance-rr"
	BondModeActiveBackup BondMode = "active-backup"
	BondModeXor          BondMode = "balance-xor"
	BondModeBroadcast    BondMode = "broadcast"
	BondModeLacp         BondMode = "802.3ad"
	BondModeTlb          BondMode = "balance-tlb"
	BondModeAlb          BondMode = "balance-alb"
)

// UnmarshalJSON rejects unknown modes
func (m *BondMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := jsonUnmarshal(data, &s); err != nil {
		return err
	}
	switch mode := BondMode(s); mode {
	case BondModeRoundRobin, BondModeActiveBackup, BondModeXor, BondModeBroadcast,
		BondModeLacp, BondModeTlb, BondModeAlb:
		*m = mode
		return nil
	}
	return invalidEnum("bond mode", s,
		"balance-rr|active-backup|balance-xor|broadcast|802.3ad|balance-tlb|balance-alb")
}

// BondConfig holds mode, options and the port list.
// The port list accepts both "port" and "ports" on input.
type BondConfig struct {
	Mode    *BondMode    `json:"mode,omitempty"`
	Options *BondOptions `json:"options,omitempty"`
	Ports   *[]string    `json:"port,omitempty"`
}

// BondOptions holds the commonly tuned bonding options
type BondOptions struct {
	Miimon         *scalar.Uint32 `json:"miimon,omitempty"`
	Updelay        *scalar.Uint32 `json:"updelay,omitempty"`
	Downdelay      *scalar.Uint32 `json:"downdelay,omitempty"`
	ArpInterval    *scalar.Uint32 `json:"arp_interval,omitempty"`
	ArpIPTarget    *string        `json:"arp_ip_target,omitempty"`
	Primary        *string        `json:"primary,omitempty"`
	LacpRate       *string        `json:"lacp_rate,omitempty"`
	XmitHashPolicy *string        `json:"xmit_hash_policy,omitempty"`
}

// PortNames returns the port list, or false when no port list was given
func (i *BondInterface) PortNames() ([]string, bool) {
	if i.Bond == nil || i.Bond.Ports == nil {
		return nil, false
	}
	return append([]string{}, *i.Bond.Ports...), true
}

// Validate checks option combinations that the kernel rejects
func (c *BondConfig) Validate(name string) error {
	if c.Options == nil {
		return nil
	}
	opts := c.Options
	if opts.Miimon != nil && *opts.Miimon > 0 && opts.ArpInterval != nil && *opts.ArpInterval > 0 {
		return domainErrors.InvalidArgumentf(
			"Bond %s: miimon and arp_interval cannot be enabled at the same time", name)
	}
	if opts.Primary != nil && c.Mode != nil {
		switch *c.Mode {
		case BondModeActiveBackup, BondModeTlb, BondModeAlb:
		default:
			return domainErrors.InvalidArgumentf(
				"Bond %s: option primary is not supported in mode %s", name, *c.Mode)
		}
	}
	if opts.LacpRate != nil && c.Mode != nil && *c.Mode != BondModeLacp {
		return domainErrors.InvalidArgumentf(
			"Bond %s: option lacp_rate is only valid in mode 802.3ad", name)
	}
	return nil
}
