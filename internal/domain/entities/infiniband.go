package entities

import (
	"fmt"
	"strconv"
	"strings"

	domainErrors "netstate-agent/internal/domain/errors"
)

// InfiniBandInterface is an IP over InfiniBand device
type InfiniBandInterface struct {
	BaseInterface
	InfiniBand *InfiniBandConfig `json:"infiniband,omitempty"`
}

func (*InfiniBandInterface) isInterface() {}

// InfiniBandMode is the IPoIB transport mode
type InfiniBandMode string

const (
	InfiniBandModeDatagram  InfiniBandMode = "datagram"
	InfiniBandModeConnected InfiniBandMode = "connected"
)

// InfiniBandPkeyDefault is the full membership default partition key
const InfiniBandPkeyDefault InfiniBandPkey = 0xffff

// InfiniBandPkey is a partition key, accepted as a number, decimal or hex string
type InfiniBandPkey uint16

// MarshalJSON emits the key as a hex string
func (k InfiniBandPkey) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(k.String())), nil
}

// String formats the key as 0x%04x
func (k InfiniBandPkey) String() string {
	return fmt.Sprintf("0x%04x", uint16(k))
}

// UnmarshalJSON accepts 32769, "32769" or "0x8001"
func (k *InfiniBandPkey) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, `"`) {
		if err := jsonUnmarshal(data, &text); err != nil {
			return err
		}
	}
	v, err := strconv.ParseUint(strings.TrimSpace(text), 0, 16)
	if err != nil {
		return invalidEnum("InfiniBand pkey", text, "16 bit integer, decimal or 0x prefixed hex")
	}
	*k = InfiniBandPkey(v)
	return nil
}

// InfiniBandConfig holds mode, partition key and parent
type InfiniBandConfig struct {
	Mode      InfiniBandMode  `json:"mode"`
	BaseIface *string         `json:"base-iface,omitempty"`
	Pkey      *InfiniBandPkey `json:"pkey,omitempty"`
}

// Validate checks mode and pkey/parent pairing
func (c *InfiniBandConfig) Validate(name string) error {
	switch c.Mode {
	case InfiniBandModeDatagram, InfiniBandModeConnected:
	default:
		return invalidEnum("InfiniBand mode of "+name, string(c.Mode), "datagram|connected")
	}
	hasPkey := c.Pkey != nil && *c.Pkey != InfiniBandPkeyDefault
	hasBase := c.BaseIface != nil && *c.BaseIface != ""
	if hasPkey != hasBase {
		return domainErrors.InvalidArgumentf(
			"InfiniBand %s: pkey and base-iface must be set together for a partition", name)
	}
	return nil
}
