package nm

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	domainErrors "netstate-agent/internal/domain/errors"
)

// EncodeProfile serializes a profile for storage
func EncodeProfile(conn *Connection) ([]byte, error) {
	data, err := yaml.Marshal(conn)
	if err != nil {
		return nil, domainErrors.NewSystemError(fmt.Sprintf("failed to encode profile %s", conn.Key()), err)
	}
	return data, nil
}

// DecodeProfile parses a profile written by EncodeProfile
func DecodeProfile(data []byte) (*Connection, error) {
	conn := &Connection{}
	if err := yaml.Unmarshal(data, conn); err != nil {
		return nil, domainErrors.NewInvalidArgumentError("malformed profile", err)
	}
	if conn.Connection == nil || conn.Connection.ID == "" {
		return nil, domainErrors.InvalidArgumentf("profile has no connection id")
	}
	return conn, nil
}

// RenderKeyfile renders a profile in the NetworkManager keyfile format.
// The connection section comes first, the others follow sorted by name.
// Lists are written ';' separated and maps as one key.subkey entry each.
func RenderKeyfile(conn *Connection) ([]byte, error) {
	data, err := yaml.Marshal(conn)
	if err != nil {
		return nil, domainErrors.NewSystemError(fmt.Sprintf("failed to render profile %s", conn.Key()), err)
	}
	sections := map[string]map[string]interface{}{}
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return nil, domainErrors.NewSystemError(fmt.Sprintf("failed to render profile %s", conn.Key()), err)
	}

	names := make([]string, 0, len(sections))
	for name := range sections {
		if name != "connection" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := sections["connection"]; ok {
		names = append([]string{"connection"}, names...)
	}

	var buf bytes.Buffer
	for i, name := range names {
		if i > 0 {
			buf.WriteString("\n")
		}
		fmt.Fprintf(&buf, "[%s]\n", name)
		section := sections[name]
		keys := make([]string, 0, len(section))
		for k := range section {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			writeKeyfileValue(&buf, k, section[k])
		}
	}
	return buf.Bytes(), nil
}

func writeKeyfileValue(buf *bytes.Buffer, key string, value interface{}) {
	switch v := value.(type) {
	case map[string]interface{}:
		subKeys := make([]string, 0, len(v))
		for k := range v {
			subKeys = append(subKeys, k)
		}
		sort.Strings(subKeys)
		for _, k := range subKeys {
			writeKeyfileValue(buf, key+"."+k, v[k])
		}
	case []interface{}:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, fmt.Sprint(item))
		}
		fmt.Fprintf(buf, "%s=%s;\n", key, strings.Join(items, ";"))
	case nil:
		fmt.Fprintf(buf, "%s=\n", key)
	default:
		fmt.Fprintf(buf, "%s=%v\n", key, v)
	}
}
