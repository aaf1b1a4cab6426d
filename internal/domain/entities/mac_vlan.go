package entities

import (
	"strconv"
	"strings"

	domainErrors "netstate-agent/internal/domain/errors"
	"netstate-agent/internal/domain/scalar"
)

// MacVlanInterface is a MAC based virtual LAN device
type MacVlanInterface struct {
	BaseInterface
	MacVlan *MacVlanConfig `json:"mac-vlan,omitempty"`
}

func (*MacVlanInterface) isInterface() {}

// MacVlanConfig holds parent, mode and promiscuous flag
type MacVlanConfig struct {
	BaseIface   string       `json:"base-iface"`
	Mode        MacVlanMode  `json:"mode"`
	Promiscuous *scalar.Bool `json:"promiscuous,omitempty"`
}

// MacVlanMode is the forwarding mode of a MAC-VLAN device
type MacVlanMode string

const (
	MacVlanModeUnknown  MacVlanMode = "unknown"
	MacVlanModeVepa     MacVlanMode = "vepa"
	MacVlanModeBridge   MacVlanMode = "bridge"
	MacVlanModePrivate  MacVlanMode = "private"
	MacVlanModePassthru MacVlanMode = "passthru"
	MacVlanModeSource   MacVlanMode = "source"
)

var macVlanModeCodes = map[MacVlanMode]uint32{
	MacVlanModeUnknown:  0,
	MacVlanModeVepa:     1,
	MacVlanModeBridge:   2,
	MacVlanModePrivate:  3,
	MacVlanModePassthru: 4,
	MacVlanModeSource:   5,
}

// Code returns the integer encoding used by NetworkManager
func (m MacVlanMode) Code() (uint32, error) {
	code, ok := macVlanModeCodes[m]
	if !ok {
		return 0, invalidEnum("MAC-VLAN mode", string(m), "vepa|bridge|private|passthru|source")
	}
	return code, nil
}

// MacVlanModeFromCode maps a NetworkManager integer back to the mode
func MacVlanModeFromCode(code uint32) (MacVlanMode, error) {
	for mode, c := range macVlanModeCodes {
		if c == code {
			return mode, nil
		}
	}
	return "", domainErrors.InvalidArgumentf("unknown MAC-VLAN mode code %d", code)
}

// UnmarshalJSON accepts a mode name or its integer code
func (m *MacVlanMode) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if !strings.HasPrefix(text, `"`) {
		code, err := strconv.ParseUint(text, 10, 32)
		if err != nil {
			return invalidEnum("MAC-VLAN mode", text, "vepa|bridge|private|passthru|source")
		}
		mode, err := MacVlanModeFromCode(uint32(code))
		if err != nil {
			return err
		}
		*m = mode
		return nil
	}
	var s string
	if err := jsonUnmarshal(data, &s); err != nil {
		return err
	}
	mode := MacVlanMode(strings.ToLower(s))
	if _, err := mode.Code(); err != nil {
		return err
	}
	*m = mode
	return nil
}

// Validate checks parent and mode
func (c *MacVlanConfig) Validate(name string) error {
	if c.BaseIface == "" {
		return domainErrors.InvalidArgumentf("MAC-VLAN %s requires base-iface", name)
	}
	if c.Mode == "" || c.Mode == MacVlanModeUnknown {
		return domainErrors.InvalidArgumentf("MAC-VLAN %s requires a mode", name)
	}
	if c.Mode == MacVlanModePassthru && c.Promiscuous != nil && !bool(*c.Promiscuous) {
		return domainErrors.InvalidArgumentf(
			"MAC-VLAN %s in passthru mode cannot disable promiscuous", name)
	}
	return nil
}
