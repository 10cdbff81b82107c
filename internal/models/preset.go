package models

// Preset is a raw preset record as served by the management API.
//
// Policies carries the policy tuples as the API ships them: stringified
// "(k, m, c, x)" 4-tuples. PolicyMetadata is keyed by those same strings and
// carries the per-policy availability/activity/in-use triple.
type Preset struct {
	Name           string                  `json:"name"`
	Policies       []string                `json:"policies"`
	PolicyMetadata map[string]PolicyStatus `json:"policy_metadata"`
	Compression    string                  `json:"compression"`
	FragmentSize   int64                   `json:"fragment_size"`
	Encryption     string                  `json:"fragment_encryption"`
	InUse          bool                    `json:"in_use"`
	IsDefault      bool                    `json:"is_default"`
}

// PolicyStatus is the availability triple the API reports per policy.
// The three flags are independent: a policy can be in use without being
// available any longer (for instance after ASDs were removed).
type PolicyStatus struct {
	IsAvailable bool `json:"is_available"`
	IsActive    bool `json:"is_active"`
	InUse       bool `json:"in_use"`
}
