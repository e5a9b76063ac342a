package authorize

import (
	"github.com/casbin/casbin/v2/model"
)

// ModelText is the RBAC-with-domains model. "manage" on a resource grants
// every action on it.
const ModelText = `[request_definition]
r = sub, dom, obj, act

[policy_definition]
p = sub, dom, obj, act, eft

[role_definition]
g = _, _, _

[policy_effect]
e = some(where (p.eft == allow)) && !some(where (p.eft == deny))

[matchers]
m = g(r.sub, p.sub, r.dom) && (p.dom == "*" || p.dom == r.dom) && (p.obj == "*" || keyMatch2(r.obj, p.obj)) && (p.act == "*" || p.act == "manage" || keyMatch(r.act, p.act))
`

// NewModel parses ModelText.
func NewModel() (model.Model, error) {
	return model.NewModelFromString(ModelText)
}
