package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"

	"netstate-agent/internal/domain/entities"
	domainErrors "netstate-agent/internal/domain/errors"
)

// StateVerifier checks a freshly queried current state against the desired
// state after a change was applied
type StateVerifier struct {
	logger *logrus.Logger
}

// NewStateVerifier creates a new StateVerifier
func NewStateVerifier(logger *logrus.Logger) *StateVerifier {
	return &StateVerifier{logger: logger}
}

// Verify returns a verification error naming the first interface whose
// current state does not satisfy the desired state. preApply is the current
// state fetched before the change and is used to resolve interfaces the
// desired state names without a type.
func (v *StateVerifier) Verify(desired, preApply, current entities.Interfaces) error {
	preIndex, err := entities.NewInterfaceIndex(preApply)
	if err != nil {
		return domainErrors.NewInvalidArgumentError("invalid pre-apply state", err)
	}
	curIndex, err := entities.NewInterfaceIndex(current)
	if err != nil {
		return domainErrors.NewInvalidArgumentError("invalid current state", err)
	}

	for _, iface := range desired {
		if err := v.verifyInterface(iface, preIndex, curIndex); err != nil {
			v.logger.WithError(err).WithField("interface", iface.Base().Name).Warn("Verification failed")
			return err
		}
	}
	v.logger.WithField("interfaces", len(desired)).Debug("Verification succeeded")
	return nil
}

func (v *StateVerifier) verifyInterface(iface entities.Interface, preIndex, curIndex *entities.InterfaceIndex) error {
	base := iface.Base()
	state := base.EffectiveState()
	if state == entities.InterfaceStateIgnore {
		return nil
	}

	if unknown, ok := iface.(*entities.UnknownInterface); ok {
		known := curIndex.Find(base.Name, base.Type)
		if known == nil {
			known = preIndex.Find(base.Name, base.Type)
		}
		if known != nil && entities.NewInterface(known.Base().Type) != nil {
			resolved, err := unknown.Resolve(known.Base().Type)
			if err != nil {
				return err
			}
			iface, base = resolved, resolved.Base()
		}
	}

	cur := curIndex.Find(base.Name, base.Type)
	switch state {
	case entities.InterfaceStateAbsent:
		if cur == nil || cur.Base().Type.IsPhysical() {
			return nil
		}
		if cur.Base().EffectiveState() == entities.InterfaceStateUp {
			return domainErrors.NewVerificationError(fmt.Sprintf(
				"Interface %s is still up after being marked absent", base.Name))
		}
		return nil
	case entities.InterfaceStateDown:
		if cur != nil && cur.Base().EffectiveState() == entities.InterfaceStateUp {
			return domainErrors.NewVerificationError(fmt.Sprintf(
				"Interface %s is up while desired down", base.Name))
		}
		return nil
	}

	if cur == nil {
		return domainErrors.NewVerificationError(fmt.Sprintf(
			"Interface %s not found in current state", base.Name))
	}

	want, err := verifyDocument(iface)
	if err != nil {
		return err
	}
	got, err := verifyDocument(cur)
	if err != nil {
		return err
	}
	if ctrl, ok := want["controller"]; ok && ctrl == "" {
		delete(want, "controller")
		if name, _ := got["controller"].(string); name != "" {
			return domainErrors.NewVerificationError(fmt.Sprintf(
				"Interface %s is still attached to %s", base.Name, name))
		}
	}

	projected := project(got, want)
	if !cmp.Equal(want, projected) {
		return domainErrors.NewVerificationError(fmt.Sprintf(
			"Interface %s does not match desired state (-desired +current):\n%s",
			base.Name, cmp.Diff(want, projected)))
	}
	return nil
}

// verifyDocument renders an interface into a comparable document with
// values that are never reported back removed
func verifyDocument(iface entities.Interface) (map[string]interface{}, error) {
	doc, err := toDocument(iface)
	if err != nil {
		return nil, domainErrors.NewInvalidArgumentError(
			fmt.Sprintf("interface %s", iface.Base().Name), err)
	}
	doc["state"] = string(iface.Base().EffectiveState())
	if dot1x, ok := doc["802.1x"].(map[string]interface{}); ok {
		delete(dot1x, "private-key-password")
	}
	if vrf, ok := doc["vrf"].(map[string]interface{}); ok {
		if id, ok := vrf["route-table-id"].(json.Number); ok && id.String() == "0" {
			delete(vrf, "route-table-id")
		}
	}
	if mac, ok := doc["mac-address"].(string); ok {
		doc["mac-address"] = strings.ToUpper(mac)
	}
	return normalizeLists(doc).(map[string]interface{}), nil
}

// normalizeLists sorts every list so port and address lists compare
// independently of order
func normalizeLists(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, item := range t {
			t[k] = normalizeLists(item)
		}
		return t
	case []interface{}:
		for i, item := range t {
			t[i] = normalizeLists(item)
		}
		sort.SliceStable(t, func(i, j int) bool {
			return sortKey(t[i]) < sortKey(t[j])
		})
		return t
	}
	return v
}

func sortKey(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]interface{}:
		for _, key := range []string{"name", "ip", "id"} {
			if s, ok := t[key]; ok {
				return fmt.Sprint(s)
			}
		}
	}
	data, _ := json.Marshal(v)
	return string(data)
}

// project keeps the parts of got that want asserts something about
func project(got, want interface{}) interface{} {
	switch w := want.(type) {
	case map[string]interface{}:
		g, ok := got.(map[string]interface{})
		if !ok {
			return got
		}
		out := make(map[string]interface{}, len(w))
		for k, wv := range w {
			if gv, ok := g[k]; ok {
				out[k] = project(gv, wv)
			}
		}
		return out
	case []interface{}:
		g, ok := got.([]interface{})
		if !ok || len(g) != len(w) {
			return got
		}
		out := make([]interface{}, len(g))
		for i := range g {
			out[i] = project(g[i], w[i])
		}
		return out
	}
	return got
}
