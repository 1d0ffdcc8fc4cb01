package dependency

// PolicyViolation is a failed compliance check.
type PolicyViolation struct {
	PolicyType         string `json:"policy_type" xml:"policy_type"`
	FriendlyPolicyType string `json:"friendly_policy_type" xml:"friendly_policy_type"`
	Message            string `json:"message" xml:"message"`
}
