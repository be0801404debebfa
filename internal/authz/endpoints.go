package authz

import (
	"sort"
	"strings"
)

// PublicWildcard in a rule's role list marks the endpoint as public:
// no principal is required at all.
const PublicWildcard = "*"

// EndpointRule maps a URL path pattern to the roles allowed to invoke
// it. A pattern ending in "/**" matches by prefix; any other pattern
// matches exactly.
type EndpointRule struct {
	Pattern string
	Roles   []string
}

type compiledRule struct {
	prefix string
	roles  map[RoleName]struct{}
	public bool
}

// EndpointTable answers whether a role may access a path. Matching is
// exact first, then longest "/**" prefix. When no rule matches, the
// table's default policy applies; admin passes regardless of contents.
type EndpointTable struct {
	exact        map[string]compiledRule
	prefixes     []compiledRule
	defaultAllow bool
}

// NewEndpointTable compiles rules into a table. defaultAllow controls
// the unmatched-path policy; the wiring makes this choice explicitly.
func NewEndpointTable(defaultAllow bool, rules ...EndpointRule) *EndpointTable {
	t := &EndpointTable{
		exact:        make(map[string]compiledRule, len(rules)),
		defaultAllow: defaultAllow,
	}
	for _, rule := range rules {
		compiled := compileRule(rule)
		if prefix, ok := strings.CutSuffix(rule.Pattern, "/**"); ok {
			compiled.prefix = prefix
			t.prefixes = append(t.prefixes, compiled)
			continue
		}
		t.exact[rule.Pattern] = compiled
	}
	// Longest prefix wins.
	sort.Slice(t.prefixes, func(i, j int) bool {
		return len(t.prefixes[i].prefix) > len(t.prefixes[j].prefix)
	})
	return t
}

func compileRule(rule EndpointRule) compiledRule {
	compiled := compiledRule{roles: make(map[RoleName]struct{}, len(rule.Roles))}
	for _, r := range rule.Roles {
		if r == PublicWildcard {
			compiled.public = true
			continue
		}
		compiled.roles[CanonicalRole(r)] = struct{}{}
	}
	return compiled
}

// CanAccess reports whether the role may invoke the path. An empty role
// means an unauthenticated caller, which only public rules admit.
func (t *EndpointTable) CanAccess(role RoleName, path string) bool {
	if role.IsAdmin() {
		return true
	}
	if rule, ok := t.exact[path]; ok {
		return rule.allows(role)
	}
	for _, rule := range t.prefixes {
		if path == rule.prefix || strings.HasPrefix(path, rule.prefix+"/") {
			return rule.allows(role)
		}
	}
	return t.defaultAllow
}

// Matches reports whether any rule covers the path.
func (t *EndpointTable) Matches(path string) bool {
	if _, ok := t.exact[path]; ok {
		return true
	}
	for _, rule := range t.prefixes {
		if path == rule.prefix || strings.HasPrefix(path, rule.prefix+"/") {
			return true
		}
	}
	return false
}

func (r compiledRule) allows(role RoleName) bool {
	if r.public {
		return true
	}
	if role == "" {
		return false
	}
	_, ok := r.roles[role]
	return ok
}
