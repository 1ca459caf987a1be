package core

// Action identifies what an AccessHook is being consulted about.
type Action int

const (
	// ActionBind: a client is binding a Resource onto a Global.
	ActionBind Action = iota
	// ActionCreateLink: a client is requesting link creation.
	ActionCreateLink
	// ActionCreateNode: a client is requesting node creation.
	ActionCreateNode
)

func (a Action) String() string {
	switch a {
	case ActionBind:
		return "bind"
	case ActionCreateLink:
		return "create_link"
	case ActionCreateNode:
		return "create_node"
	default:
		return "unknown"
	}
}

// AccessHook is the pluggable policy (C9) consulted before bind, link
// creation, and node creation. Target is the Global being bound, or nil for
// actions that do not yet have one (e.g. create_node before the node
// exists).
type AccessHook interface {
	Check(client *Client, action Action, target *Global) error
}

// AllowAll is the default AccessHook: it permits every request. Real
// deployments install a stricter policy (e.g. one consulting a client's
// peer credentials over the bus) by implementing AccessHook themselves.
type AllowAll struct{}

// Check always succeeds.
func (AllowAll) Check(*Client, Action, *Global) error { return nil }

var _ AccessHook = AllowAll{}
