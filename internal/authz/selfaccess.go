package authz

// SelfAccessRuleSet is the subset of permissions that, besides being
// granted, also require the requester to be the resource owner.
type SelfAccessRuleSet map[string]struct{}

// NewSelfAccessRuleSet builds a rule set from permission identifiers.
func NewSelfAccessRuleSet(perms ...string) SelfAccessRuleSet {
	set := make(SelfAccessRuleSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// DefaultSelfAccessRules covers the "own record" permissions.
func DefaultSelfAccessRules() SelfAccessRuleSet {
	return NewSelfAccessRuleSet(PermViewOwnGrades, PermViewOwnAttendance, PermViewOwnFees)
}

// Requires reports whether the permission carries a self-access
// constraint.
func (s SelfAccessRuleSet) Requires(perm string) bool {
	_, ok := s[perm]
	return ok
}

// Satisfied evaluates the ownership constraint. A missing owner or
// requester identity denies; the rule never silently stops applying.
func (s SelfAccessRuleSet) Satisfied(perm string, rc ResourceContext) bool {
	if !s.Requires(perm) {
		return true
	}
	if rc.RequesterID == "" || rc.ResourceOwnerID == "" {
		return false
	}
	return rc.RequesterID == rc.ResourceOwnerID
}
