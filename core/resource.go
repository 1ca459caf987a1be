package core

// Resource is a per-client materialization of a Global (§3): the only way
// a client observes or mutates a global. Destroyed when its client
// disconnects or its global is destroyed.
type Resource struct {
	Client  *Client
	Global  *Global
	LocalID uint32
	Version uint32

	invalid bool
}

// Valid reports whether this resource has not yet been invalidated by its
// global's (or client's) destruction.
func (r *Resource) Valid() bool {
	return !r.invalid
}

// invalidate marks the resource dead and detaches it from both its client
// and its global's back-reference set. It is idempotent.
func (r *Resource) invalidate() {
	if r.invalid {
		return
	}
	r.invalid = true
	r.Global.removeResource(r)
	r.Client.removeResource(r)
}
