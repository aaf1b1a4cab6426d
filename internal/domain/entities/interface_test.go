package entities

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yamlv3 "gopkg.in/yaml.v3"

	domainErrors "netstate-agent/internal/domain/errors"
	"netstate-agent/internal/domain/scalar"
)

func mustParseDesired(t *testing.T, doc string) Interfaces {
	t.Helper()
	state, err := ParseDesiredState([]byte(doc))
	require.NoError(t, err)
	return state.Interfaces
}

func TestEthernetStringifiedAttributes(t *testing.T) {
	ifaces := mustParseDesired(t, `
- name: eth1
  type: ethernet
  state: up
  ethernet:
    auto-negotiation: "false"
    speed: "1000"
    sr-iov:
      total-vfs: "64"
      vfs:
        - id: "0"
          spoof-check: "true"
          trust: "false"
          min-tx-rate: "100"
          max-tx-rate: "101"
          vlan-id: "102"
          qos: "103"
`)
	require.Len(t, ifaces, 1)
	eth, ok := ifaces[0].(*EthernetInterface)
	require.True(t, ok)

	conf := eth.Ethernet
	require.NotNil(t, conf)
	assert.Equal(t, scalar.NewBool(false), conf.AutoNegotiation)
	assert.Equal(t, scalar.NewUint32(1000), conf.Speed)
	assert.Equal(t, scalar.NewUint32(64), conf.SrIov.TotalVfs)

	vf := (*conf.SrIov.Vfs)[0]
	assert.Equal(t, scalar.Uint32(0), vf.ID)
	assert.Equal(t, scalar.NewBool(true), vf.SpoofCheck)
	assert.Equal(t, scalar.NewBool(false), vf.Trust)
	assert.Equal(t, scalar.NewUint32(100), vf.MinTxRate)
	assert.Equal(t, scalar.NewUint32(101), vf.MaxTxRate)
	assert.Equal(t, scalar.NewUint32(102), vf.VlanID)
	assert.Equal(t, scalar.NewUint32(103), vf.Qos)
}

func TestNativeAndStringFormsDecodeIdentically(t *testing.T) {
	native := mustParseDesired(t, `
- name: br0
  type: linux-bridge
  bridge:
    options:
      stp:
        enabled: true
        hello-time: 2
    port:
      - name: eth1
        stp-path-cost: 100
`)
	text := mustParseDesired(t, `
- name: br0
  type: linux-bridge
  bridge:
    options:
      stp:
        enabled: "yes"
        hello-time: "2"
    port:
      - name: eth1
        stp-path-cost: "100"
`)
	assert.Equal(t, native, text)
}

func TestDesiredStateIsClosedSchema(t *testing.T) {
	docs := map[string]string{
		"unknown bridge key": `
- name: br0
  type: linux-bridge
  bridge:
    bogus: 1
`,
		"unknown port key": `
- name: br0
  type: linux-bridge
  bridge:
    port:
      - name: eth1
        bogus: true
`,
		"unknown vrf key": `
- name: vrf0
  type: vrf
  vrf:
    route-table-id: 100
    table: 3
`,
		"unsupported type": `
- name: lo
  type: loopback
`,
		"bad state": `
- name: eth1
  type: ethernet
  state: sleeping
`,
	}

	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDesiredState([]byte(doc))
			require.Error(t, err)
			assert.True(t, domainErrors.IsInvalidArgumentError(err))
		})
	}
}

func TestCurrentStateToleratesUnmodelledKeys(t *testing.T) {
	state, err := ParseCurrentState([]byte(`{
  "interfaces": [
    {"name": "lo", "type": "loopback", "state": "up", "mtu": 65536},
    {"name": "br0", "type": "linux-bridge", "state": "up", "accept-all-mac-addresses": false,
     "bridge": {"options": {"stp": {"enabled": false}, "vlan-default-pvid": 1}, "port": []}}
  ]
}`))
	require.NoError(t, err)
	require.Len(t, state.Interfaces, 2)

	lo, ok := state.Interfaces[0].(*UnknownInterface)
	require.True(t, ok)
	assert.Equal(t, InterfaceType("loopback"), lo.Type)

	br, ok := state.Interfaces[1].(*LinuxBridgeInterface)
	require.True(t, ok)
	ports, mentioned := br.PortNames()
	assert.True(t, mentioned)
	assert.Empty(t, ports)
}

func TestPortListAliases(t *testing.T) {
	ifaces := mustParseDesired(t, `
interfaces:
- name: br0
  type: linux-bridge
  bridge:
    ports:
      - name: eth1
- name: vrf0
  type: vrf
  vrf:
    ports: [eth2]
    route-table-id: "100"
- name: bond0
  type: bond
  link-aggregation:
    mode: active-backup
    ports: [eth3, eth4]
- name: ovsbr0
  type: ovs-bridge
  bridge:
    ports:
      - name: bond1
        link-aggregation:
          mode: balance-slb
          ports:
            - name: eth5
            - name: eth6
`)
	expected := map[string][]string{
		"br0":    {"eth1"},
		"vrf0":   {"eth2"},
		"bond0":  {"eth3", "eth4"},
		"ovsbr0": {"eth5", "eth6"},
	}
	for _, iface := range ifaces {
		ports, ok := Ports(iface)
		assert.True(t, ok, iface.Base().Name)
		assert.Equal(t, expected[iface.Base().Name], ports)
	}

	vrf := ifaces[1].(*VrfInterface)
	assert.Equal(t, RouteTableID(100), vrf.Vrf.TableID)
}

func TestPortsAbsentVersusEmpty(t *testing.T) {
	ifaces := mustParseDesired(t, `
- name: br0
  type: linux-bridge
  bridge:
    options:
      stp:
        enabled: false
- name: br1
  type: linux-bridge
  bridge:
    port: []
- name: eth0
  type: ethernet
`)
	_, mentioned := Ports(ifaces[0])
	assert.False(t, mentioned)

	ports, mentioned := Ports(ifaces[1])
	assert.True(t, mentioned)
	assert.Empty(t, ports)

	_, mentioned = Ports(ifaces[2])
	assert.False(t, mentioned)
}

func TestGroupForwardMaskAliases(t *testing.T) {
	for _, key := range []string{"group-forward-mask", "group-fwd-mask"} {
		ifaces := mustParseDesired(t, fmt.Sprintf(`
- name: br0
  type: linux-bridge
  bridge:
    options:
      %s: 8
`, key))
		br := ifaces[0].(*LinuxBridgeInterface)
		assert.Equal(t, scalar.NewUint16(8), br.Bridge.Options.GroupForwardMask, key)
	}

	ifaces := mustParseDesired(t, `
- name: br0
  type: linux-bridge
  bridge:
    options:
      group-forward-mask: 8
      group-fwd-mask: "8"
`)
	br := ifaces[0].(*LinuxBridgeInterface)
	assert.Equal(t, scalar.NewUint16(8), br.Bridge.Options.GroupForwardMask)

	_, err := ParseDesiredState([]byte(`
- name: br0
  type: linux-bridge
  bridge:
    options:
      group-forward-mask: 8
      group-fwd-mask: 16
`))
	require.Error(t, err)
	assert.True(t, domainErrors.IsInvalidArgumentError(err))
}

func TestOvsBridgeStpAcceptsBool(t *testing.T) {
	ifaces := mustParseDesired(t, `
- name: ovsbr0
  type: ovs-bridge
  bridge:
    options:
      stp: true
- name: ovsbr1
  type: ovs-bridge
  bridge:
    options:
      stp:
        enabled: false
`)
	assert.Equal(t, scalar.NewBool(true), ifaces[0].(*OvsBridgeInterface).Bridge.Options.Stp.Enabled)
	assert.Equal(t, scalar.NewBool(false), ifaces[1].(*OvsBridgeInterface).Bridge.Options.Stp.Enabled)
}

func TestMulticastRouter(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		for _, v := range []LinuxBridgeMulticastRouterType{
			LinuxBridgeMulticastRouterDisabled, LinuxBridgeMulticastRouterAuto, LinuxBridgeMulticastRouterEnabled,
		} {
			data, err := json.Marshal(v)
			require.NoError(t, err)
			var decoded LinuxBridgeMulticastRouterType
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, v, decoded)

			fromOrdinal, err := MulticastRouterFromOrdinal(uint64(v.Ordinal()))
			require.NoError(t, err)
			assert.Equal(t, v, fromOrdinal)
		}
	})

	t.Run("ordinal and mnemonic agree", func(t *testing.T) {
		var byOrdinal, byName LinuxBridgeMulticastRouterType
		require.NoError(t, json.Unmarshal([]byte(`2`), &byOrdinal))
		require.NoError(t, json.Unmarshal([]byte(`"Enabled"`), &byName))
		assert.Equal(t, LinuxBridgeMulticastRouterEnabled, byOrdinal)
		assert.Equal(t, byOrdinal, byName)
	})

	t.Run("yaml", func(t *testing.T) {
		var v struct {
			Router LinuxBridgeMulticastRouterType `yaml:"router"`
		}
		require.NoError(t, yamlv3.Unmarshal([]byte("router: 0\n"), &v))
		assert.Equal(t, LinuxBridgeMulticastRouterDisabled, v.Router)
		require.NoError(t, yamlv3.Unmarshal([]byte("router: auto\n"), &v))
		assert.Equal(t, LinuxBridgeMulticastRouterAuto, v.Router)
		assert.Error(t, yamlv3.Unmarshal([]byte("router: bogus\n"), &v))
	})

	t.Run("invalid", func(t *testing.T) {
		for _, input := range []string{`"3"`, `"bogus"`, `3`, `-1`} {
			var v LinuxBridgeMulticastRouterType
			err := json.Unmarshal([]byte(input), &v)
			require.Error(t, err, input)
			assert.True(t, domainErrors.IsInvalidArgumentError(err), input)
		}
	})

	t.Run("in desired state", func(t *testing.T) {
		_, err := ParseDesiredState([]byte(`
- name: br0
  type: linux-bridge
  bridge:
    options:
      multicast-router: "3"
`))
		require.Error(t, err)
		assert.True(t, domainErrors.IsInvalidArgumentError(err))
		assert.Contains(t, err.Error(), "expecting 0|1|2 or auto|disabled|enabled")
	})
}

func TestStpRanges(t *testing.T) {
	tests := []struct {
		field string
		value int
		ok    bool
	}{
		{"hello-time", 1, true},
		{"hello-time", 10, true},
		{"hello-time", 0, false},
		{"hello-time", 11, false},
		{"max-age", 6, true},
		{"max-age", 40, true},
		{"max-age", 5, false},
		{"max-age", 41, false},
		{"forward-delay", 2, true},
		{"forward-delay", 30, true},
		{"forward-delay", 1, false},
		{"forward-delay", 31, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s=%d", tt.field, tt.value), func(t *testing.T) {
			ifaces := mustParseDesired(t, fmt.Sprintf(`
- name: br0
  type: linux-bridge
  bridge:
    options:
      stp:
        %s: %d
`, tt.field, tt.value))
			err := PreEditCleanup(ifaces[0])
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, domainErrors.IsInvalidArgumentError(err))
			assert.Contains(t, err.Error(), "is not in the range of")
		})
	}
}

func TestPreEditCleanupKindChecks(t *testing.T) {
	docs := map[string]string{
		"ovs patch and dpdk": `
- name: ovs0
  type: ovs-interface
  patch:
    peer: ovs1
  dpdk:
    devargs: "0000:af:00.1"
`,
		"vlan id": `
- name: eth0.5000
  type: vlan
  vlan:
    base-iface: eth0
    id: 5000
`,
		"vxlan id": `
- name: vx0
  type: vxlan
  vxlan:
    base-iface: eth0
    id: 16777216
`,
		"bond miimon and arp": `
- name: bond0
  type: bond
  link-aggregation:
    mode: active-backup
    options:
      miimon: 100
      arp_interval: 100
`,
		"macvlan passthru": `
- name: mv0
  type: mac-vlan
  mac-vlan:
    base-iface: eth0
    mode: passthru
    promiscuous: false
`,
		"own controller": `
- name: eth0
  type: ethernet
  controller: eth0
`,
		"linux bridge duplicate port": `
- name: br0
  type: linux-bridge
  bridge:
    port:
    - name: eth1
      stp-path-cost: 10
    - name: eth1
      stp-path-cost: 20
`,
	}

	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			ifaces := mustParseDesired(t, doc)
			err := PreEditCleanup(ifaces[0])
			require.Error(t, err)
			assert.True(t, domainErrors.IsInvalidArgumentError(err))
		})
	}
}

func TestVrfMergeTableID(t *testing.T) {
	current := &VrfInterface{
		BaseInterface: BaseInterface{Name: "vrf0", Type: InterfaceTypeVrf},
		Vrf:           &VrfConfig{TableID: 42},
	}

	t.Run("inherit from current", func(t *testing.T) {
		desired := &VrfInterface{BaseInterface: BaseInterface{Name: "vrf0"}, Vrf: &VrfConfig{}}
		require.NoError(t, desired.MergeTableID(current))
		assert.Equal(t, RouteTableID(42), desired.Vrf.TableID)
	})

	t.Run("new vrf without table", func(t *testing.T) {
		desired := &VrfInterface{BaseInterface: BaseInterface{Name: "vrf0"}, Vrf: &VrfConfig{}}
		err := desired.MergeTableID(nil)
		require.Error(t, err)
		assert.True(t, domainErrors.IsInvalidArgumentError(err))
		assert.Contains(t, err.Error(), "vrf0")
		assert.Contains(t, err.Error(), "0 is not allowed")
	})

	t.Run("explicit id wins", func(t *testing.T) {
		for _, cur := range []Interface{nil, current} {
			desired := &VrfInterface{BaseInterface: BaseInterface{Name: "vrf0"}, Vrf: &VrfConfig{TableID: 7}}
			require.NoError(t, desired.MergeTableID(cur))
			assert.Equal(t, RouteTableID(7), desired.Vrf.TableID)
		}
	})

	t.Run("current of another kind", func(t *testing.T) {
		desired := &VrfInterface{BaseInterface: BaseInterface{Name: "vrf0"}, Vrf: &VrfConfig{}}
		err := desired.MergeTableID(&DummyInterface{BaseInterface: BaseInterface{Name: "vrf0"}})
		assert.True(t, domainErrors.IsInvalidArgumentError(err))
	})
}

func bridgeWithPorts(ports ...LinuxBridgePortConfig) *LinuxBridgeInterface {
	return &LinuxBridgeInterface{
		BaseInterface: BaseInterface{Name: "br0", Type: InterfaceTypeLinuxBridge},
		Bridge:        &LinuxBridgeConfig{Ports: &ports},
	}
}

func TestGetConfigChangedPorts(t *testing.T) {
	trunk := []BridgePortTrunkTag{{ID: scalar.NewUint16(100)}}
	otherTrunk := []BridgePortTrunkTag{{IDRange: &BridgePortVlanRange{Min: 200, Max: 299}}}

	tests := []struct {
		name     string
		desired  LinuxBridgePortConfig
		current  LinuxBridgePortConfig
		expected []string
	}{
		{
			name:     "path cost differs",
			desired:  LinuxBridgePortConfig{Name: "p1", StpPathCost: scalar.NewUint32(100)},
			current:  LinuxBridgePortConfig{Name: "p1", StpPathCost: scalar.NewUint32(50)},
			expected: []string{"p1"},
		},
		{
			name:    "absent desired path cost",
			desired: LinuxBridgePortConfig{Name: "p1"},
			current: LinuxBridgePortConfig{Name: "p1", StpPathCost: scalar.NewUint32(50)},
		},
		{
			name:    "same priority",
			desired: LinuxBridgePortConfig{Name: "p1", StpPriority: scalar.NewUint16(32)},
			current: LinuxBridgePortConfig{Name: "p1", StpPriority: scalar.NewUint16(32)},
		},
		{
			name:     "hairpin set on current without value",
			desired:  LinuxBridgePortConfig{Name: "p1", StpHairpinMode: scalar.NewBool(true)},
			current:  LinuxBridgePortConfig{Name: "p1"},
			expected: []string{"p1"},
		},
		{
			name:     "empty vlan resets non empty current",
			desired:  LinuxBridgePortConfig{Name: "p1", Vlan: &BridgePortVlanConfig{}},
			current:  LinuxBridgePortConfig{Name: "p1", Vlan: &BridgePortVlanConfig{Tag: scalar.NewUint16(10)}},
			expected: []string{"p1"},
		},
		{
			name:     "vlan without current vlan",
			desired:  LinuxBridgePortConfig{Name: "p1", Vlan: &BridgePortVlanConfig{}},
			current:  LinuxBridgePortConfig{Name: "p1"},
			expected: []string{"p1"},
		},
		{
			name:    "no desired vlan",
			desired: LinuxBridgePortConfig{Name: "p1"},
			current: LinuxBridgePortConfig{Name: "p1", Vlan: &BridgePortVlanConfig{Tag: scalar.NewUint16(10)}},
		},
		{
			name: "trunk tags differ",
			desired: LinuxBridgePortConfig{Name: "p1", Vlan: &BridgePortVlanConfig{
				TrunkTags: &trunk,
			}},
			current: LinuxBridgePortConfig{Name: "p1", Vlan: &BridgePortVlanConfig{
				TrunkTags: &otherTrunk,
			}},
			expected: []string{"p1"},
		},
		{
			name: "partial vlan matches",
			desired: LinuxBridgePortConfig{Name: "p1", Vlan: &BridgePortVlanConfig{
				Tag: scalar.NewUint16(10),
			}},
			current: LinuxBridgePortConfig{Name: "p1", Vlan: &BridgePortVlanConfig{
				Tag: scalar.NewUint16(10), TrunkTags: &trunk,
			}},
		},
		{
			name:    "port only on desired side",
			desired: LinuxBridgePortConfig{Name: "p2", StpPathCost: scalar.NewUint32(100)},
			current: LinuxBridgePortConfig{Name: "p1", StpPathCost: scalar.NewUint32(50)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desired := bridgeWithPorts(tt.desired)
			current := bridgeWithPorts(tt.current)
			assert.Equal(t, tt.expected, desired.GetConfigChangedPorts(current))
		})
	}
}

func TestVlanFilteringIsEnabled(t *testing.T) {
	assert.False(t, (&LinuxBridgeInterface{}).VlanFilteringIsEnabled())
	assert.False(t, bridgeWithPorts().VlanFilteringIsEnabled())
	assert.True(t, bridgeWithPorts(LinuxBridgePortConfig{Name: "p1"}).VlanFilteringIsEnabled())
	assert.False(t, bridgeWithPorts(LinuxBridgePortConfig{
		Name: "p1", Vlan: &BridgePortVlanConfig{},
	}).VlanFilteringIsEnabled())
	assert.True(t, bridgeWithPorts(
		LinuxBridgePortConfig{Name: "p1", Vlan: &BridgePortVlanConfig{}},
		LinuxBridgePortConfig{Name: "p2", Vlan: &BridgePortVlanConfig{Tag: scalar.NewUint16(5)}},
	).VlanFilteringIsEnabled())
}

func TestGetOvsPortName(t *testing.T) {
	ifaces := mustParseDesired(t, `
- name: ovsbr0
  type: ovs-bridge
  bridge:
    port:
      - name: ovs0
      - name: bond1
        link-aggregation:
          mode: lacp
          port:
            - name: eth1
            - name: eth2
- name: ovsbr0
  type: ovs-bridge
  bridge:
    options:
      stp: false
`)
	withPorts := ifaces[0].(*OvsBridgeInterface)
	withoutPorts := ifaces[1].(*OvsBridgeInterface)

	name, ok := GetOvsPortName(withPorts, "eth2", nil)
	assert.True(t, ok)
	assert.Equal(t, "bond1", name)

	name, ok = GetOvsPortName(withPorts, "ovs0", nil)
	assert.True(t, ok)
	assert.Equal(t, "ovs0", name)

	_, ok = GetOvsPortName(withPorts, "eth9", nil)
	assert.False(t, ok)

	_, ok = GetOvsPortName(withoutPorts, "eth1", nil)
	assert.False(t, ok)

	name, ok = GetOvsPortName(withoutPorts, "eth1", withPorts)
	assert.True(t, ok)
	assert.Equal(t, "bond1", name)
}

func TestOvsInterfaceSubKind(t *testing.T) {
	ifaces := mustParseDesired(t, `
- name: patch0
  type: ovs-interface
  patch:
    peer: patch1
- name: dpdk0
  type: ovs-interface
  dpdk:
    devargs: "0000:af:00.1"
    rx-queue: "4"
- name: dpdk1
  type: ovs-interface
  dpdk:
    devargs: ""
`)
	patch := ifaces[0].(*OvsInterface)
	assert.True(t, patch.IsPatch())
	assert.False(t, patch.IsDpdk())

	dpdk := ifaces[1].(*OvsInterface)
	assert.True(t, dpdk.IsDpdk())
	assert.Equal(t, scalar.NewUint32(4), dpdk.Dpdk.RxQueue)

	assert.False(t, ifaces[2].(*OvsInterface).IsDpdk())
}

func TestUnknownInterfaceResolve(t *testing.T) {
	ifaces := mustParseDesired(t, `
- name: br0
  bridge:
    port:
      - name: eth1
`)
	unknown, ok := ifaces[0].(*UnknownInterface)
	require.True(t, ok)
	assert.Equal(t, InterfaceTypeUnknown, unknown.Type)

	resolved, err := unknown.Resolve(InterfaceTypeLinuxBridge)
	require.NoError(t, err)
	br, ok := resolved.(*LinuxBridgeInterface)
	require.True(t, ok)
	ports, _ := br.PortNames()
	assert.Equal(t, []string{"eth1"}, ports)

	_, err = unknown.Resolve(InterfaceTypeEthernet)
	assert.True(t, domainErrors.IsInvalidArgumentError(err))
}

func TestMacVlanModeCodes(t *testing.T) {
	for mode, code := range map[MacVlanMode]uint32{
		MacVlanModeVepa: 1, MacVlanModeBridge: 2, MacVlanModePrivate: 3,
		MacVlanModePassthru: 4, MacVlanModeSource: 5,
	} {
		got, err := mode.Code()
		require.NoError(t, err)
		assert.Equal(t, code, got)

		back, err := MacVlanModeFromCode(code)
		require.NoError(t, err)
		assert.Equal(t, mode, back)
	}

	_, err := MacVlanModeFromCode(9)
	assert.True(t, domainErrors.IsInvalidArgumentError(err))

	var m MacVlanMode
	require.NoError(t, json.Unmarshal([]byte(`2`), &m))
	assert.Equal(t, MacVlanModeBridge, m)
}

func TestInfiniBandPkey(t *testing.T) {
	for _, input := range []string{`32769`, `"32769"`, `"0x8001"`} {
		var k InfiniBandPkey
		require.NoError(t, json.Unmarshal([]byte(input), &k), input)
		assert.Equal(t, InfiniBandPkey(0x8001), k)
	}
	data, err := json.Marshal(InfiniBandPkey(0x8001))
	require.NoError(t, err)
	assert.Equal(t, `"0x8001"`, string(data))
}

func TestIeee8021XHiddenPassword(t *testing.T) {
	conf := &Ieee8021XConfig{PrivateKeyPassword: scalar.Ptr(HiddenPassword)}
	assert.True(t, conf.PasswordIsHidden())
	conf.PrivateKeyPassword = scalar.Ptr("")
	assert.False(t, conf.PasswordIsHidden())
}
