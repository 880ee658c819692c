package utils

import "strings"

// Email tagging lets many tenants share one physically-unique email column.
// A stored address looks like "<tenantTag>+local@domain"; the tag is the
// tenant's short identifier. Tagging and detagging are pure and invertible
// for every valid address.

// TagEmail prefixes the local part of a real email address with the tenant
// tag. Input that already carries the tag is returned unchanged so callers
// may pass either form.
func TagEmail(tenantTag, email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if tenantTag == "" || email == "" {
		return email
	}
	if strings.HasPrefix(email, tenantTag+"+") {
		return email
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return tenantTag + "+" + email
	}
	return tenantTag + "+" + email[:at] + email[at:]
}

// DetagEmail strips the tenant tag from a tagged address and returns the
// real email. An address without the tag is returned as-is.
func DetagEmail(tenantTag, tagged string) string {
	tagged = strings.ToLower(strings.TrimSpace(tagged))
	if tenantTag == "" || !strings.HasPrefix(tagged, tenantTag+"+") {
		return tagged
	}
	return strings.TrimPrefix(tagged, tenantTag+"+")
}
