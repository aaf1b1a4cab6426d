package adapters

import (
	"bufio"
	"fmt"
	"strings"

	"netstate-agent/internal/domain/errors"
	"netstate-agent/internal/domain/interfaces"
)

// OSReleasePath is where the host os-release is mounted inside the agent container
const OSReleasePath = "/host/etc/os-release"

// RealOSDetector is an OSDetector implementation reading os-release
type RealOSDetector struct {
	fileSystem interfaces.FileSystem
	path       string
}

// NewRealOSDetector creates a new RealOSDetector
func NewRealOSDetector(fs interfaces.FileSystem) interfaces.OSDetector {
	return &RealOSDetector{
		fileSystem: fs,
		path:       OSReleasePath,
	}
}

// DetectOS returns the distribution family of the host
func (d *RealOSDetector) DetectOS() (interfaces.OSType, error) {
	releaseInfo, err := d.parseOSRelease()
	if err != nil {
		return "", errors.NewSystemError("OS detection failed: cannot read "+d.path, err)
	}

	id, ok := releaseInfo["ID"]
	if !ok {
		return "", errors.NewSystemError("OS detection failed: no ID field in "+d.path, nil)
	}
	idLike := releaseInfo["ID_LIKE"]

	switch {
	case id == "ubuntu" || id == "debian" || strings.Contains(idLike, "debian"):
		return interfaces.OSTypeUbuntu, nil
	case id == "rhel" || id == "centos" || id == "rocky" || id == "almalinux" || id == "fedora" ||
		strings.Contains(idLike, "rhel") || strings.Contains(idLike, "fedora"):
		return interfaces.OSTypeRHEL, nil
	case strings.HasPrefix(id, "sles") || strings.HasPrefix(id, "opensuse") || strings.Contains(idLike, "suse"):
		return interfaces.OSTypeSUSE, nil
	}

	return "", errors.NewSystemError(fmt.Sprintf("unsupported OS type. ID: '%s', ID_LIKE: '%s'", id, idLike), nil)
}

func (d *RealOSDetector) parseOSRelease() (map[string]string, error) {
	content, err := d.fileSystem.ReadFile(d.path)
	if err != nil {
		return nil, err
	}

	releaseInfo := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "=") {
			parts := strings.SplitN(line, "=", 2)
			key := strings.TrimSpace(parts[0])
			value := strings.Trim(strings.TrimSpace(parts[1]), "\"")
			releaseInfo[key] = value
		}
	}

	return releaseInfo, nil
}
