package core

import (
	"github.com/google/uuid"

	"github.com/pwired/pwired/objectmap"
)

// Client is a connected peer: the owner of zero or more globals it has
// published and the holder of a local_id-keyed table of resources it has
// bound. Disconnecting a client invalidates every resource in that table.
//
// ID is this client's session identifier: a uuid assigned at connection
// time. Nothing in this module reads it; bus maps D-Bus senders to clients
// itself (the object map's own id is kept internally only for the core's
// object table, since it participates in no stability guarantee a client
// needs to see).
type Client struct {
	ID uuid.UUID

	core      *Core
	objectID  objectmap.ID
	resources map[uint32]*Resource
}

func newClient(objectID objectmap.ID, core *Core) *Client {
	return &Client{ID: uuid.New(), core: core, objectID: objectID, resources: make(map[uint32]*Resource)}
}

// Resource looks up a resource this client has bound by its client-chosen
// local id.
func (c *Client) Resource(localID uint32) (*Resource, bool) {
	r, ok := c.resources[localID]
	return r, ok
}

func (c *Client) addResource(r *Resource) {
	c.resources[r.LocalID] = r
}

func (c *Client) removeResource(r *Resource) {
	if cur, ok := c.resources[r.LocalID]; ok && cur == r {
		delete(c.resources, r.LocalID)
	}
}

// Disconnect invalidates every resource this client holds and removes the
// client from the core's client list. It does not destroy globals the
// client owns publishing; callers that want those torn down too should
// Destroy them explicitly before or after calling Disconnect.
func (c *Client) Disconnect() {
	for _, r := range c.resources {
		r.invalidate()
	}
	c.resources = make(map[uint32]*Resource)
	c.core.removeClient(c)
}
