package app

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

func newRBACModel() (model.Model, error) {
	return model.NewModelFromString(rbacModel)
}

// seedPolicies adds "sub:obj:act" rules and "user:role" groupings that are
// not stored yet. Existing rules are left alone.
func seedPolicies(e *casbin.Enforcer, policies, groupings []string) error {
	for _, raw := range policies {
		parts := strings.Split(raw, ":")
		if len(parts) != 3 {
			return fmt.Errorf("casbin: policy %q must be sub:obj:act", raw)
		}
		if _, err := e.AddPolicy(parts[0], parts[1], parts[2]); err != nil {
			return fmt.Errorf("casbin: add policy %q: %w", raw, err)
		}
	}

	for _, raw := range groupings {
		parts := strings.Split(raw, ":")
		if len(parts) != 2 {
			return fmt.Errorf("casbin: grouping %q must be user:role", raw)
		}
		if _, err := e.AddGroupingPolicy(parts[0], parts[1]); err != nil {
			return fmt.Errorf("casbin: add grouping %q: %w", raw, err)
		}
	}

	return nil
}
