package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"sigs.k8s.io/yaml"

	domainErrors "netstate-agent/internal/domain/errors"
)

var baseKeys = map[string]bool{
	"name": true, "type": true, "state": true, "description": true, "mtu": true,
	"mac-address": true, "controller": true, "ipv4": true, "ipv6": true,
	"802.1x": true, "ovs-db": true,
}

func jsonUnmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func invalidEnum(what, value, accepted string) error {
	return domainErrors.InvalidArgumentf("invalid %s %q, expecting %s", what, value, accepted)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func strictDecode(data []byte, v interface{}, strict bool) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	if strict {
		decoder.DisallowUnknownFields()
	}
	return decoder.Decode(v)
}

func genericDecode(data []byte) (map[string]interface{}, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	doc := map[string]interface{}{}
	if err := decoder.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// NewInterface returns an empty interface of the given kind, or nil when the
// kind is not modelled
func NewInterface(t InterfaceType) Interface {
	var iface Interface
	switch t {
	case InterfaceTypeEthernet:
		iface = &EthernetInterface{}
	case InterfaceTypeLinuxBridge:
		iface = &LinuxBridgeInterface{}
	case InterfaceTypeOvsBridge:
		iface = &OvsBridgeInterface{}
	case InterfaceTypeOvsInterface:
		iface = &OvsInterface{}
	case InterfaceTypeVrf:
		iface = &VrfInterface{}
	case InterfaceTypeBond:
		iface = &BondInterface{}
	case InterfaceTypeVlan:
		iface = &VlanInterface{}
	case InterfaceTypeVxlan:
		iface = &VxlanInterface{}
	case InterfaceTypeVeth:
		iface = &VethInterface{}
	case InterfaceTypeMacVlan:
		iface = &MacVlanInterface{}
	case InterfaceTypeInfiniBand:
		iface = &InfiniBandInterface{}
	case InterfaceTypeDummy:
		iface = &DummyInterface{}
	default:
		return nil
	}
	iface.Base().Type = t
	return iface
}

// renameAlias folds an alternative key into its canonical key
func renameAlias(m map[string]interface{}, canonical, alias, where string) error {
	v, ok := m[alias]
	if !ok {
		return nil
	}
	if existing, both := m[canonical]; both && fmt.Sprint(existing) != fmt.Sprint(v) {
		return domainErrors.InvalidArgumentf(
			"%s: %s and %s are the same setting but have different values", where, canonical, alias)
	}
	m[canonical] = v
	delete(m, alias)
	return nil
}

func subMap(m map[string]interface{}, key string) map[string]interface{} {
	sub, _ := m[key].(map[string]interface{})
	return sub
}

// normalizeAliases rewrites accepted alternative spellings into the
// canonical keys of the model before the typed decode
func normalizeAliases(t InterfaceType, doc map[string]interface{}) error {
	name, _ := doc["name"].(string)
	switch t {
	case InterfaceTypeLinuxBridge:
		br := subMap(doc, "bridge")
		if br == nil {
			return nil
		}
		if err := renameAlias(br, "port", "ports", name); err != nil {
			return err
		}
		if opts := subMap(br, "options"); opts != nil {
			return renameAlias(opts, "group-forward-mask", "group-fwd-mask", name)
		}
	case InterfaceTypeOvsBridge:
		br := subMap(doc, "bridge")
		if br == nil {
			return nil
		}
		if err := renameAlias(br, "port", "ports", name); err != nil {
			return err
		}
		if opts := subMap(br, "options"); opts != nil {
			switch stp := opts["stp"].(type) {
			case bool, string:
				opts["stp"] = map[string]interface{}{"enabled": stp}
			}
		}
		ports, _ := br["port"].([]interface{})
		for _, p := range ports {
			port, _ := p.(map[string]interface{})
			if bond := subMap(port, "link-aggregation"); bond != nil {
				if err := renameAlias(bond, "port", "ports", name); err != nil {
					return err
				}
			}
		}
	case InterfaceTypeVrf:
		if vrf := subMap(doc, "vrf"); vrf != nil {
			return renameAlias(vrf, "port", "ports", name)
		}
	case InterfaceTypeBond:
		if bond := subMap(doc, "link-aggregation"); bond != nil {
			return renameAlias(bond, "port", "ports", name)
		}
	}
	return nil
}

func decodeInterface(raw []byte, strict bool) (Interface, error) {
	doc, err := genericDecode(raw)
	if err != nil {
		return nil, domainErrors.NewInvalidArgumentError("malformed interface", err)
	}
	return decodeInterfaceDoc(doc, strict)
}

func decodeInterfaceDoc(doc map[string]interface{}, strict bool) (Interface, error) {
	name, _ := doc["name"].(string)
	typeName, _ := doc["type"].(string)
	t := InterfaceType(typeName)

	if err := normalizeAliases(t, doc); err != nil {
		return nil, err
	}
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, domainErrors.NewInvalidArgumentError(fmt.Sprintf("interface %q", name), err)
	}

	iface := NewInterface(t)
	if iface == nil {
		if strict && t != "" && t != InterfaceTypeUnknown {
			return nil, domainErrors.InvalidArgumentf("unsupported interface type %q for interface %s", t, name)
		}
		return decodeUnknown(doc, strict)
	}
	if err := strictDecode(normalized, iface, strict); err != nil {
		return nil, domainErrors.NewInvalidArgumentError(fmt.Sprintf("invalid interface %q", name), err)
	}
	return iface, nil
}

func decodeUnknown(doc map[string]interface{}, strict bool) (Interface, error) {
	base := map[string]interface{}{}
	extra := map[string]json.RawMessage{}
	for k, v := range doc {
		if baseKeys[k] {
			base[k] = v
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, domainErrors.NewInvalidArgumentError("malformed interface", err)
		}
		extra[k] = raw
	}
	data, err := json.Marshal(base)
	if err != nil {
		return nil, domainErrors.NewInvalidArgumentError("malformed interface", err)
	}
	iface := &UnknownInterface{}
	if err := strictDecode(data, &iface.BaseInterface, strict); err != nil {
		return nil, domainErrors.NewInvalidArgumentError(
			fmt.Sprintf("invalid interface %q", iface.Name), err)
	}
	if iface.Type == "" {
		iface.Type = InterfaceTypeUnknown
	}
	if len(extra) > 0 {
		iface.Extra = extra
	}
	return iface, nil
}

// Resolve decodes the interface again as the given kind. Kind specific keys
// are validated at this point.
func (i *UnknownInterface) Resolve(t InterfaceType) (Interface, error) {
	data, err := json.Marshal(i)
	if err != nil {
		return nil, domainErrors.NewInvalidArgumentError(fmt.Sprintf("interface %q", i.Name), err)
	}
	doc, err := genericDecode(data)
	if err != nil {
		return nil, domainErrors.NewInvalidArgumentError(fmt.Sprintf("interface %q", i.Name), err)
	}
	doc["type"] = string(t)
	resolved, err := decodeInterfaceDoc(doc, true)
	if err != nil {
		return nil, err
	}
	resolved.Base().ControllerType = i.ControllerType
	return resolved, nil
}

// DecodeInterfaces decodes a JSON interface list. In strict mode unknown
// keys and unsupported kinds are rejected; otherwise they are tolerated and
// unsupported kinds decode as UnknownInterface.
func DecodeInterfaces(data []byte, strict bool) (Interfaces, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, domainErrors.NewInvalidArgumentError("interfaces must be a list", err)
	}
	ifaces := make(Interfaces, 0, len(raws))
	for _, raw := range raws {
		iface, err := decodeInterface(raw, strict)
		if err != nil {
			return nil, err
		}
		ifaces = append(ifaces, iface)
	}
	return ifaces, nil
}

// UnmarshalJSON decodes the list strictly
func (ifaces *Interfaces) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeInterfaces(data, true)
	if err != nil {
		return err
	}
	*ifaces = decoded
	return nil
}

func parseState(data []byte, strict bool) (*NetworkState, error) {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, domainErrors.NewInvalidArgumentError("malformed network state document", err)
	}
	jsonData = bytes.TrimSpace(jsonData)
	state := &NetworkState{Interfaces: Interfaces{}}
	if len(jsonData) == 0 || bytes.Equal(jsonData, []byte("null")) {
		return state, nil
	}

	list := jsonData
	if jsonData[0] != '[' {
		var top map[string]json.RawMessage
		if err := json.Unmarshal(jsonData, &top); err != nil {
			return nil, domainErrors.NewInvalidArgumentError("malformed network state document", err)
		}
		raw, ok := top["interfaces"]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return state, nil
		}
		list = raw
	}

	ifaces, err := DecodeInterfaces(list, strict)
	if err != nil {
		return nil, err
	}
	state.Interfaces = ifaces
	return state, nil
}

// ParseDesiredState parses a YAML or JSON desired state document with a
// closed schema. The document is either a map with an "interfaces" list or
// the list itself.
func ParseDesiredState(data []byte) (*NetworkState, error) {
	return parseState(data, true)
}

// ParseCurrentState parses a YAML or JSON state snapshot, tolerating keys
// and kinds this package does not model
func ParseCurrentState(data []byte) (*NetworkState, error) {
	return parseState(data, false)
}

// Marshal encodes the state as JSON
func (s *NetworkState) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// ToYAML encodes the state as YAML
func (s *NetworkState) ToYAML() ([]byte, error) {
	return yaml.Marshal(s)
}
