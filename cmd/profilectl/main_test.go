package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "netstate-agent/internal/domain/errors"
	"netstate-agent/internal/domain/nm"
)

const (
	testDesired = `
interfaces:
- name: dummy0
  type: dummy
  mtu: 1400
- name: dummy1
  type: dummy
  state: absent
`
	testCurrent = `{"interfaces": [
  {"name": "dummy0", "type": "dummy", "state": "up", "mtu": 1500},
  {"name": "dummy1", "type": "dummy", "state": "up"}
]}`
	testApplied = `{"interfaces": [
  {"name": "dummy0", "type": "dummy", "state": "up", "mtu": 1400}
]}`
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGen_WritesKeyfiles(t *testing.T) {
	dir := t.TempDir()
	desired := writeFile(t, dir, "desired.yaml", testDesired)
	current := writeFile(t, dir, "current.json", testCurrent)
	outDir := filepath.Join(dir, "out")

	out, err := run(t, "gen", "-d", desired, "-c", current, "-o", outDir, "--stable-uuid")
	require.NoError(t, err)
	assert.Contains(t, out, "# delete dummy1/dummy")

	content, err := os.ReadFile(filepath.Join(outDir, "dummy0-dummy.nmconnection"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "[connection]\n")
	assert.Contains(t, string(content), "uuid="+nm.StableUUID("dummy0", nm.TypeDummy)+"\n")
}

func TestGen_YAMLToStdout(t *testing.T) {
	dir := t.TempDir()
	desired := writeFile(t, dir, "desired.yaml", testDesired)
	current := writeFile(t, dir, "current.json", testCurrent)

	out, err := run(t, "gen", "-d", desired, "-c", current, "--yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "---\nconnection:\n")
	assert.Contains(t, out, "id: dummy0")
}

func TestGen_StoreKeepsUUIDs(t *testing.T) {
	dir := t.TempDir()
	desired := writeFile(t, dir, "desired.yaml", `
interfaces:
- name: dummy0
  type: dummy
  mtu: 1400
`)
	current := writeFile(t, dir, "current.json", testCurrent)
	store := filepath.Join(dir, "state", "profiles.db")

	uuidLine := regexp.MustCompile(`(?m)^uuid=(\S+)$`)

	first, err := run(t, "gen", "-d", desired, "-c", current, "--store", store, "--node", "node-1", "--save")
	require.NoError(t, err)
	firstUUID := uuidLine.FindStringSubmatch(first)
	require.Len(t, firstUUID, 2)

	// the host still reports the old mtu, so the profile is generated again
	second, err := run(t, "gen", "-d", desired, "-c", current, "--store", store, "--node", "node-1")
	require.NoError(t, err)
	secondUUID := uuidLine.FindStringSubmatch(second)
	require.Len(t, secondUUID, 2)
	assert.Equal(t, firstUUID[1], secondUUID[1])
}

func TestGen_RequiresDesired(t *testing.T) {
	_, err := run(t, "gen")
	assert.EqualError(t, err, "desired state file required: use -d <file>")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	desired := writeFile(t, dir, "desired.yaml", testDesired)
	current := writeFile(t, dir, "current.json", testCurrent)

	out, err := run(t, "validate", "-d", desired)
	require.NoError(t, err)
	assert.Contains(t, out, "2 interfaces (1 absent)")

	out, err = run(t, "validate", "-d", desired, "-c", current)
	require.NoError(t, err)
	assert.Contains(t, out, "1 changed, 1 absent, 0 ignored")

	bad := writeFile(t, dir, "bad.yaml", `
interfaces:
- name: dummy0
  type: dummy
  mtu: lots
`)
	_, err = run(t, "validate", "-d", bad)
	require.Error(t, err)
	assert.True(t, domainErrors.IsInvalidArgumentError(err))
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	desired := writeFile(t, dir, "desired.yaml", testDesired)
	before := writeFile(t, dir, "before.json", testCurrent)
	after := writeFile(t, dir, "after.json", testApplied)

	out, err := run(t, "verify", "-d", desired, "-c", after, "--pre", before)
	require.NoError(t, err)
	assert.Contains(t, out, "verified 2 interfaces")

	_, err = run(t, "verify", "-d", desired, "-c", before)
	require.Error(t, err)
	assert.True(t, domainErrors.IsVerificationError(err))

	_, err = run(t, "verify", "-d", desired)
	assert.Error(t, err)
}
