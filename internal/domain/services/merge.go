package services

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/copystructure"

	"netstate-agent/internal/domain/entities"
	domainErrors "netstate-agent/internal/domain/errors"
)

// CopyInterface returns a deep copy so reconciliation never touches caller data
func CopyInterface(iface entities.Interface) (entities.Interface, error) {
	if iface == nil {
		return nil, nil
	}
	copied, err := copystructure.Copy(iface)
	if err != nil {
		return nil, domainErrors.NewSystemError(
			fmt.Sprintf("failed to copy interface %s", iface.Base().Name), err)
	}
	out, ok := copied.(entities.Interface)
	if !ok {
		return nil, domainErrors.NewSystemError(
			fmt.Sprintf("unexpected copy of interface %s", iface.Base().Name), nil)
	}
	// ControllerType is not part of the serialized form but is carried on copies
	out.Base().ControllerType = iface.Base().ControllerType
	return out, nil
}

func toDocument(iface entities.Interface) (map[string]interface{}, error) {
	data, err := json.Marshal(iface)
	if err != nil {
		return nil, err
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	doc := map[string]interface{}{}
	if err := decoder.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// overlay writes desired over current. Maps merge recursively, scalars and
// lists are replaced, except lists of named objects whose entries are merged
// with the current entry of the same name. An explicit empty object resets
// the current value, as with a bridge port given "vlan: {}".
func overlay(current, desired interface{}) interface{} {
	switch d := desired.(type) {
	case map[string]interface{}:
		c, ok := current.(map[string]interface{})
		if !ok || len(d) == 0 {
			return d
		}
		out := make(map[string]interface{}, len(c)+len(d))
		for k, v := range c {
			out[k] = v
		}
		for k, v := range d {
			out[k] = overlay(c[k], v)
		}
		return out
	case []interface{}:
		c, ok := current.([]interface{})
		if !ok {
			return d
		}
		currentByName := map[string]interface{}{}
		for _, item := range c {
			if name, ok := itemName(item); ok {
				currentByName[name] = item
			}
		}
		out := make([]interface{}, 0, len(d))
		for _, item := range d {
			name, ok := itemName(item)
			if !ok {
				return d
			}
			out = append(out, overlay(currentByName[name], item))
		}
		return out
	}
	return desired
}

func itemName(item interface{}) (string, bool) {
	m, ok := item.(map[string]interface{})
	if !ok {
		return "", false
	}
	name, ok := m["name"].(string)
	return name, ok
}

// MergeInterface overlays the desired interface on the current one of the
// same kind. Attributes the desired interface leaves unset keep their
// current value.
func MergeInterface(desired, current entities.Interface) (entities.Interface, error) {
	if current == nil || current.Base().Type != desired.Base().Type {
		return CopyInterface(desired)
	}
	name := desired.Base().Name
	desiredDoc, err := toDocument(desired)
	if err != nil {
		return nil, domainErrors.NewInvalidArgumentError(fmt.Sprintf("interface %s", name), err)
	}
	currentDoc, err := toDocument(current)
	if err != nil {
		return nil, domainErrors.NewInvalidArgumentError(fmt.Sprintf("current interface %s", name), err)
	}
	mergedDoc := overlay(currentDoc, desiredDoc)
	data, err := json.Marshal(mergedDoc)
	if err != nil {
		return nil, domainErrors.NewInvalidArgumentError(fmt.Sprintf("interface %s", name), err)
	}
	merged, err := entities.DecodeInterfaces(append(append([]byte{'['}, data...), ']'), false)
	if err != nil {
		return nil, err
	}
	out := merged[0]
	out.Base().ControllerType = desired.Base().ControllerType
	return out, nil
}
