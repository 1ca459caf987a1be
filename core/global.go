package core

import (
	"github.com/pwired/pwired/objectmap"
	"github.com/pwired/pwired/signal"
	"github.com/pwired/pwired/typeid"
)

// BindFunc materializes a Resource for a client, given the requested
// interface version and the client-chosen local id. It is the "bind"
// capability a Global carries (§3): the concrete object (node, port, link,
// ...) installs whatever per-resource dispatch state it needs and returns.
type BindFunc func(client *Client, requestedVersion uint32, localID uint32) (*Resource, error)

// Global is one publicly visible core object (§3). It is created by
// Core.AddGlobal and destroyed by Destroy, which invalidates every
// Resource bound to it first.
type Global struct {
	ID      objectmap.ID
	Type    typeid.ID
	Version uint32
	// Owner is the publishing Client, or nil for a server-owned global
	// (e.g. the Core object itself, or a factory).
	Owner  *Client
	Object interface{}
	bind   BindFunc

	// OnDestroy fires exactly once, synchronously, before resources bound
	// to this global are invalidated (§4.3, §8 property 5).
	OnDestroy signal.Signal[*Global]

	core      *Core
	resources map[*Resource]struct{}
	destroyed bool
}

// Bind invokes the global's bind capability. Core.Bind (C4) is the public
// entrypoint that also enforces version and access checks; this method is
// the raw capability the global was constructed with.
func (g *Global) Bind(client *Client, requestedVersion, localID uint32) (*Resource, error) {
	return g.bind(client, requestedVersion, localID)
}

// Destroy tears the global down: fires OnDestroy, invalidates every bound
// Resource, and removes itself from the core's global list and object map.
// Safe to call from within another global's OnDestroy observer (§4.3:
// "iteration MUST be safe against removal of nodes other than the one
// being visited").
func (g *Global) Destroy() {
	if g.destroyed {
		return
	}
	g.destroyed = true

	g.OnDestroy.Emit(g)

	for r := range g.resources {
		r.invalidate()
	}
	g.resources = nil

	g.core.removeGlobal(g)
}

func (g *Global) addResource(r *Resource) {
	if g.resources == nil {
		g.resources = make(map[*Resource]struct{})
	}
	g.resources[r] = struct{}{}
}

func (g *Global) removeResource(r *Resource) {
	delete(g.resources, r)
}
