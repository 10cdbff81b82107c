// Package validation provides the field-level predicates used by the pool
// wizard. All predicates are pure and side-effect free: a failing field is
// only marked invalid for display, it never aborts processing of other
// fields.
package validation

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	// nameRegex matches pool names: 3-22 chars, lowercase alphanumeric plus
	// hyphen, no leading or trailing hyphen.
	nameRegex = regexp.MustCompile(`^[0-9a-z][-a-z0-9]{1,20}[a-z0-9]$`)

	// backendNameRegex matches backend names (same alphabet, up to 50 chars).
	backendNameRegex = regexp.MustCompile(`^[0-9a-z][-a-z0-9]{1,48}[a-z0-9]$`)

	// presetNameRegex matches preset names: 3-20 chars, mixed case plus
	// hyphen and underscore, alphanumeric first and last char.
	presetNameRegex = regexp.MustCompile(`^[0-9a-zA-Z][a-zA-Z0-9-_]{1,18}[a-zA-Z0-9]$`)

	// ipRegex matches a strict IPv4 dotted quad with octets 0-255.
	ipRegex = regexp.MustCompile(`^(((25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?))$`)

	// hostnameRegex matches a dotted hostname whose final label is 2-4 letters.
	hostnameRegex = regexp.MustCompile(`^(([a-z0-9]([-a-z0-9]*[a-z0-9])?)\.)+[a-z]{2,4}$`)
)

// ValidateName reports whether s is a valid pool name.
func ValidateName(s string) bool {
	return nameRegex.MatchString(s)
}

// ValidateBackendName reports whether s is a valid backend name.
func ValidateBackendName(s string) bool {
	return backendNameRegex.MatchString(s)
}

// ValidatePresetName reports whether s is a valid preset name.
func ValidatePresetName(s string) bool {
	return presetNameRegex.MatchString(s)
}

// ValidateIP reports whether s is a strict IPv4 dotted quad.
func ValidateIP(s string) bool {
	return ipRegex.MatchString(s)
}

// ValidateHost reports whether s is a valid connection host: either an IPv4
// dotted quad or a dotted hostname with a 2-4 letter final label.
func ValidateHost(s string) bool {
	return ValidateIP(s) || hostnameRegex.MatchString(s)
}

// ValidatePort reports whether p is a usable TCP port (1 inclusive to 65536
// exclusive).
func ValidatePort(p int) bool {
	return p >= 1 && p < 65536
}

// ValidateIntRange reports whether v lies in [min, max].
func ValidateIntRange(v, min, max int) bool {
	return v >= min && v <= max
}

// ValidateGUID reports whether s is a platform GUID: a lowercase hyphenated
// UUID as assigned by the management API.
func ValidateGUID(s string) bool {
	if s != strings.ToLower(s) {
		return false
	}
	// Require the canonical 8-4-4-4-12 form; uuid.Parse is more lenient
	// (it also accepts braced and un-hyphenated forms).
	if len(s) != 36 || strings.Count(s, "-") != 4 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
