package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// IFNAMSIZ minus the trailing NUL
const maxInterfaceNameLength = 15

var hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-\.]*[a-zA-Z0-9])?$`)

// ValidateInterfaceName checks a kernel interface name
func ValidateInterfaceName(name string) error {
	if name == "" {
		return fmt.Errorf("interface name is empty")
	}
	if len(name) > maxInterfaceNameLength {
		return fmt.Errorf("interface name %s is longer than %d characters", name, maxInterfaceNameLength)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("invalid interface name %s", name)
	}
	if strings.ContainsAny(name, "/: \t\n") {
		return fmt.Errorf("interface name %q contains '/', ':' or whitespace", name)
	}
	return nil
}

// ValidateHostname checks a node name
func ValidateHostname(hostname string) error {
	if hostname == "" {
		return fmt.Errorf("hostname is empty")
	}
	if len(hostname) > 253 {
		return fmt.Errorf("hostname is too long: %d characters (max 253)", len(hostname))
	}
	if !hostnamePattern.MatchString(hostname) {
		return fmt.Errorf("invalid hostname: %s", hostname)
	}
	return nil
}
