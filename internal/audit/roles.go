package audit

import (
	"bufio"
	"embed"
	"strings"
)

//go:embed data/aria_roles.txt
var roleData embed.FS

// validRoles is the WAI-ARIA role vocabulary — loaded once at init.
var validRoles map[string]bool

func init() {
	validRoles = loadRoleFile("data/aria_roles.txt")
}

// loadRoleFile reads a file of role names (one per line, # comments).
func loadRoleFile(name string) map[string]bool {
	out := make(map[string]bool)
	f, err := roleData.Open(name)
	if err != nil {
		return out
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out[strings.ToLower(line)] = true
	}
	return out
}

// IsValidRole reports whether role is part of the ARIA vocabulary.
// The role attribute may hold a space-separated fallback list; it is
// valid when at least one token is a known role.
func IsValidRole(role string) bool {
	for _, token := range strings.Fields(strings.ToLower(role)) {
		if validRoles[token] {
			return true
		}
	}
	return false
}
