package rag

import (
	"regexp"
	"strings"
)

var tenantNameStrip = regexp.MustCompile(`[^a-z0-9_]`)

// NormalizeTenantName canonicalizes a tenant name into an
// identifier-safe form: lowercased, spaces become underscores, and
// everything outside [a-z0-9_] is stripped. "My Team 42!" becomes
// "my_team_42". The result may be empty, in which case the name is
// unusable.
func NormalizeTenantName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "_")
	return tenantNameStrip.ReplaceAllString(name, "")
}
