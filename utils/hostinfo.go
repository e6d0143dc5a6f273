// utils/hostinfo.go - machine identity for host registration.
package utils

import (
	"net"
	"os"
	"strings"
)

// HostIdentity is what gets reconciled into the hosts table.
type HostIdentity struct {
	Name      string
	IPAddress string
	FQDN      string
}

// LocalHostIdentity resolves the identity of the machine dbclone runs on.
// IP and FQDN are best effort; registration only keys on the name.
func LocalHostIdentity() (HostIdentity, error) {
	name, err := os.Hostname()
	if err != nil {
		return HostIdentity{}, err
	}
	return resolveIdentity(name), nil
}

// RemoteHostIdentity resolves the identity of a managed host by name.
func RemoteHostIdentity(host string) HostIdentity {
	return resolveIdentity(host)
}

func resolveIdentity(name string) HostIdentity {
	id := HostIdentity{Name: shortName(name)}
	if strings.Contains(name, ".") {
		id.FQDN = name
	}
	if addrs, err := net.LookupIP(name); err == nil {
		for _, a := range addrs {
			if v4 := a.To4(); v4 != nil && !v4.IsLoopback() {
				id.IPAddress = v4.String()
				break
			}
		}
	}
	if id.FQDN == "" {
		if cname, err := net.LookupCNAME(name); err == nil {
			id.FQDN = strings.TrimSuffix(cname, ".")
		}
	}
	return id
}

func shortName(name string) string {
	if i := strings.IndexByte(name, '.'); i > 0 {
		return name[:i]
	}
	return name
}
