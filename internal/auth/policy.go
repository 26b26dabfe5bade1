package auth

import (
	"slices"

	"microshop/internal/domain"
)

// Authenticated allows any logged-in caller.
var Authenticated = []domain.Role{domain.RoleUser, domain.RoleAdmin}

// Rule restricts one route (method plus gin route pattern) to a role set.
type Rule struct {
	Method string
	Path   string
	Roles  []domain.Role
}

// Policy is a static route table. Routes without a rule are open.
type Policy struct {
	rules map[string][]domain.Role
}

func NewPolicy(rules ...Rule) Policy {
	p := Policy{rules: make(map[string][]domain.Role, len(rules))}
	for _, r := range rules {
		p.rules[r.Method+" "+r.Path] = r.Roles
	}
	return p
}

// Roles returns the roles allowed on a route and whether a rule exists.
func (p Policy) Roles(method, path string) ([]domain.Role, bool) {
	roles, ok := p.rules[method+" "+path]
	return roles, ok
}

// Permits reports whether role may call the route.
func (p Policy) Permits(method, path string, role domain.Role) bool {
	roles, ok := p.Roles(method, path)
	if !ok {
		return true
	}
	return slices.Contains(roles, role)
}
