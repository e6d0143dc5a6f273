// utils/paths.go - Windows path handling for clone destinations.
//
// The service itself may run on Linux while every disk it manages lives on a
// Windows host, so these helpers work on path strings directly instead of
// going through filepath (whose separator follows the local OS).
package utils

import (
	"fmt"
	"strings"
)

// NormalizeDestination trims whitespace and any trailing path separators so
// `D:\clones\` and `D:\clones` mean the same destination. Drive roots like
// `C:\` keep their separator.
func NormalizeDestination(p string) string {
	p = strings.TrimSpace(p)
	for len(p) > 0 && (strings.HasSuffix(p, `\`) || strings.HasSuffix(p, "/")) {
		if len(p) == 3 && p[1] == ':' {
			break // drive root
		}
		p = p[:len(p)-1]
	}
	return p
}

// IsNetworkPath reports whether p is a UNC path.
func IsNetworkPath(p string) bool {
	return strings.HasPrefix(p, `\\`) || strings.HasPrefix(p, "//")
}

// UNCToLocal translates an administrative-share UNC path to the local path
// it maps to on the owning host, e.g. `\\db1\D$\clones` -> `D:\clones`.
// Disk mount operations only accept local paths, so a network destination
// must be translated before provisioning starts.
func UNCToLocal(p string) (string, error) {
	if !IsNetworkPath(p) {
		return p, nil
	}
	trimmed := strings.TrimLeft(strings.ReplaceAll(p, "/", `\`), `\`)
	parts := strings.SplitN(trimmed, `\`, 3)
	if len(parts) < 2 {
		return "", fmt.Errorf("malformed UNC path %q", p)
	}
	share := parts[1]
	if len(share) != 2 || !strings.HasSuffix(share, "$") {
		return "", fmt.Errorf("cannot translate %q: only administrative shares (e.g. D$) map to a local path", p)
	}
	drive := strings.ToUpper(share[:1]) + `:`
	if len(parts) == 2 || parts[2] == "" {
		return drive + `\`, nil
	}
	return drive + `\` + parts[2], nil
}

// WinJoin joins path elements with a backslash, collapsing duplicate
// separators at the seams.
func WinJoin(elem ...string) string {
	var parts []string
	for _, e := range elem {
		e = strings.Trim(e, `\/`)
		if e != "" {
			parts = append(parts, e)
		}
	}
	joined := strings.Join(parts, `\`)
	// restore a drive-root separator, C: -> C:\ when it stood alone
	if len(joined) == 2 && joined[1] == ':' {
		joined += `\`
	}
	return joined
}

// BaseName returns the last path element, accepting either separator.
func BaseName(p string) string {
	p = strings.TrimRight(strings.ReplaceAll(p, "/", `\`), `\`)
	if i := strings.LastIndex(p, `\`); i >= 0 {
		return p[i+1:]
	}
	return p
}

// TrimExt strips the final extension from a file name, if any.
func TrimExt(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}

// Ext returns the final extension of a file name including the dot, or "".
func Ext(name string) string {
	base := BaseName(name)
	if i := strings.LastIndex(base, "."); i > 0 {
		return base[i:]
	}
	return ""
}
