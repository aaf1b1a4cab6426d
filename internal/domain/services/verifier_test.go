package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netstate-agent/internal/domain/entities"
	domainErrors "netstate-agent/internal/domain/errors"
)

func TestVerifyAbsentInterfaceWithEmptyPreApplyState(t *testing.T) {
	desired := desiredState(t, `
- name: eth1
  type: ethernet
  state: absent
`)
	current := currentState(t, `
- name: eth1
  type: ethernet
  state: up
`)

	err := NewStateVerifier(testLogger()).Verify(desired, entities.Interfaces{}, current)
	assert.NoError(t, err)
}

func TestVerify(t *testing.T) {
	current := currentState(t, `
- name: br0
  type: linux-bridge
  state: up
  mac-address: "00:11:22:33:44:55"
  bridge:
    options:
      stp:
        enabled: true
        hello-time: 2
    port:
      - name: eth2
        stp-path-cost: 100
      - name: eth1
        stp-path-cost: 100
- name: eth1
  type: ethernet
  state: up
  controller: br0
  mtu: 1500
- name: eth2
  type: ethernet
  state: up
  controller: br0
- name: eth3
  type: ethernet
  state: up
- name: dummy0
  type: dummy
  state: up
- name: vrf0
  type: vrf
  state: up
  vrf:
    port: []
    route-table-id: 100
`)

	tests := []struct {
		name    string
		desired string
		wantErr string
	}{
		{
			name: "subset with reordered ports",
			desired: `
- name: br0
  type: linux-bridge
  mac-address: "00:11:22:33:44:55"
  bridge:
    options:
      stp:
        enabled: "yes"
    port:
      - name: eth1
      - name: eth2
`,
		},
		{
			name: "inherited table id",
			desired: `
- name: vrf0
  type: vrf
  vrf:
    port: []
`,
		},
		{
			name: "untyped interface resolved from current",
			desired: `
- name: eth1
  mtu: 1500
`,
		},
		{
			name: "type and state only",
			desired: `
- name: eth3
  type: ethernet
`,
		},
		{
			name: "ignored interface",
			desired: `
- name: eth9
  type: ethernet
  state: ignore
`,
		},
		{
			name: "attribute mismatch",
			desired: `
- name: eth1
  type: ethernet
  mtu: 9000
`,
			wantErr: "Interface eth1 does not match desired state",
		},
		{
			name: "port list mismatch",
			desired: `
- name: br0
  type: linux-bridge
  bridge:
    port:
      - name: eth1
`,
			wantErr: "Interface br0 does not match desired state",
		},
		{
			name: "missing interface",
			desired: `
- name: bond0
  type: bond
`,
			wantErr: "Interface bond0 not found in current state",
		},
		{
			name: "virtual interface still up",
			desired: `
- name: dummy0
  type: dummy
  state: absent
`,
			wantErr: "Interface dummy0 is still up after being marked absent",
		},
		{
			name: "still attached",
			desired: `
- name: eth2
  type: ethernet
  controller: ""
`,
			wantErr: "Interface eth2 is still attached to br0",
		},
		{
			name: "up while desired down",
			desired: `
- name: eth3
  type: ethernet
  state: down
`,
			wantErr: "Interface eth3 is up while desired down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewStateVerifier(testLogger()).Verify(desiredState(t, tt.desired), current, current)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, domainErrors.IsVerificationError(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestVerifyIgnoresPrivateKeyPassword(t *testing.T) {
	current := currentState(t, `
- name: eth1
  type: ethernet
  state: up
  802.1x:
    identity: user
    private-key-password: <_password_hid_by_nmstate>
`)
	desired := desiredState(t, `
- name: eth1
  type: ethernet
  802.1x:
    identity: user
    private-key-password: secret1
`)

	assert.NoError(t, NewStateVerifier(testLogger()).Verify(desired, current, current))
}
