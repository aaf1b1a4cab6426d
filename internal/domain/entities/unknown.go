package entities

import (
	"encoding/json"
)

// DummyInterface is a dummy device
type DummyInterface struct {
	BaseInterface
}

func (*DummyInterface) isInterface() {}

// UnknownInterface is an interface whose kind was not given or is not
// modelled. Kind specific keys are kept verbatim in Extra so the interface
// can be decoded again once its type is known from the current state.
type UnknownInterface struct {
	BaseInterface
	Extra map[string]json.RawMessage `json:"-"`
}

func (*UnknownInterface) isInterface() {}

// MarshalJSON writes the base attributes merged with the kept keys
func (i *UnknownInterface) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(&i.BaseInterface)
	if err != nil {
		return nil, err
	}
	if len(i.Extra) == 0 {
		return base, nil
	}
	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &doc); err != nil {
		return nil, err
	}
	for k, v := range i.Extra {
		if _, taken := doc[k]; !taken {
			doc[k] = v
		}
	}
	return json.Marshal(doc)
}
