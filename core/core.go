// Package core implements the top-level object model (C2-C4, C8, C9): the
// global registry, the per-client resource binder, the Core aggregate that
// owns every list of published entities, and the pluggable access hook.
// This is the control-loop side of the system; the data path itself lives
// in node and link.
package core

import (
	stderrors "errors"
	"sync"

	"github.com/pwired/pwired/format"
	"github.com/pwired/pwired/link"
	"github.com/pwired/pwired/node"
	"github.com/pwired/pwired/objectmap"
	"github.com/pwired/pwired/signal"
	"github.com/pwired/pwired/typeid"
	"github.com/pwired/pwired/util/errwrap"
	"github.com/pwired/pwired/util/semaphore"
)

type nodeEntry struct {
	node  *node.Node
	props map[string]string
}

// Core is the top-level aggregate (C8): it owns the four insertion-ordered
// lists the spec requires (globals, clients, nodes, links) plus the type
// and object maps shared by every global.
type Core struct {
	Types   *typeid.Map
	Objects *objectmap.Map
	Access  AccessHook

	// OnGlobalAdded/OnGlobalRemoved mirror the Registry's bus signals
	// (§6): `global(id, type, version)` and `global_remove(id)`.
	OnGlobalAdded   signal.Signal[*Global]
	OnGlobalRemoved signal.Signal[*Global]

	// sema bounds concurrently in-flight create_node/create_link calls,
	// the way the teacher's engine bounds concurrent CheckApply/Watch
	// with a semaphore keyed by resource metaparams.
	sema *semaphore.Semaphore

	mu        sync.Mutex
	globals   []*Global
	clients   []*Client
	nodes     []*nodeEntry
	links     []*link.Link
	factories map[string]NodeFactory

	selfGlobal *Global
}

// New returns an initialized, empty Core. concurrency bounds how many
// create_node/create_link calls may be in flight at once; pass 0 for no
// practical bound (a large semaphore).
func New(access AccessHook, concurrency int) *Core {
	if access == nil {
		access = AllowAll{}
	}
	if concurrency <= 0 {
		concurrency = 1 << 20
	}
	c := &Core{
		Types:     typeid.New(),
		Objects:   objectmap.New(),
		Access:    access,
		sema:      semaphore.NewSemaphore(concurrency),
		factories: make(map[string]NodeFactory),
	}
	c.selfGlobal = c.AddGlobal(nil, c.Types.Intern(typeid.URICore), 0, c, func(*Client, uint32, uint32) (*Resource, error) {
		return nil, newErr(InvalidArguments, "the core object itself is not bindable")
	})
	return c
}

// AddGlobal publishes object as a new Global (C3): it allocates an
// ObjectId, fills the Global, appends it to global_list, and fires
// OnGlobalAdded synchronously before returning, exactly as §4.3 requires.
func (c *Core) AddGlobal(owner *Client, typ typeid.ID, version uint32, object interface{}, bind BindFunc) *Global {
	c.mu.Lock()
	g := &Global{
		Type:    typ,
		Version: version,
		Owner:   owner,
		Object:  object,
		bind:    bind,
		core:    c,
	}
	id := c.Objects.Insert(g)
	g.ID = id
	c.globals = append(c.globals, g)
	c.mu.Unlock()

	c.OnGlobalAdded.Emit(g)
	return g
}

// removeGlobal drops g from the global list and the object map. Called by
// Global.Destroy once observers have run and resources invalidated.
func (c *Core) removeGlobal(g *Global) {
	c.mu.Lock()
	for i, v := range c.globals {
		if v == g {
			c.globals = append(c.globals[:i], c.globals[i+1:]...)
			break
		}
	}
	c.Objects.Remove(g.ID)
	c.mu.Unlock()
	c.OnGlobalRemoved.Emit(g)
}

// Globals returns a snapshot of the current global list, in insertion
// order. Safe to range over even if a callback destroys another global
// mid-iteration (§4.3).
func (c *Core) Globals() []*Global {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Global, len(c.globals))
	copy(out, c.globals)
	return out
}

// Bind is the resource binder (C4): `bind(global, client, requested_version,
// local_id) -> Resource | Err`.
func (c *Core) Bind(g *Global, client *Client, requestedVersion, localID uint32) (*Resource, error) {
	if requestedVersion > g.Version {
		return nil, newErr(VersionUnsupported, "global %d offers version %d, requested %d", g.ID, g.Version, requestedVersion)
	}
	if err := c.Access.Check(client, ActionBind, g); err != nil {
		return nil, wrapErr(AccessDenied, err, "bind denied for global %d", g.ID)
	}
	if _, exists := client.Resource(localID); exists {
		return nil, newErr(IdInUse, "client already has a resource at local id %d", localID)
	}

	r, err := g.Bind(client, requestedVersion, localID)
	if err != nil {
		return nil, errwrap.Wrapf(err, "bind")
	}
	r.Client = client
	r.Global = g
	r.LocalID = localID
	r.Version = requestedVersion

	g.addResource(r)
	client.addResource(r)
	return r, nil
}

// NewClient registers and returns a new Client.
func (c *Core) NewClient() *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.Objects.Insert(nil) // reserve an id for the client itself
	cl := newClient(id, c)
	c.clients = append(c.clients, cl)
	return cl
}

func (c *Core) removeClient(cl *Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, v := range c.clients {
		if v == cl {
			c.clients = append(c.clients[:i], c.clients[i+1:]...)
			break
		}
	}
	c.Objects.Remove(cl.objectID)
}

// RegisterFactory makes f available to CreateNode under f.Name().
func (c *Core) RegisterFactory(f NodeFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[f.Name()] = f
}

// FindNodeFactory looks up a registered factory by name.
func (c *Core) FindNodeFactory(name string) (NodeFactory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.factories[name]
	if !ok {
		return nil, newErr(NotFound, "no such node factory %q", name)
	}
	return f, nil
}

// CreateNode resolves factoryName and constructs a node, publishing it (and
// each of its ports) as Globals owned by owner.
func (c *Core) CreateNode(owner *Client, factoryName string, props map[string]string) (*node.Node, *Global, error) {
	if err := c.Access.Check(owner, ActionCreateNode, nil); err != nil {
		return nil, nil, wrapErr(AccessDenied, err, "create_node denied")
	}
	if err := c.sema.P(1); err != nil {
		return nil, nil, wrapErr(Cancelled, err, "create_node: core shutting down")
	}
	defer c.sema.V(1)

	f, err := c.FindNodeFactory(factoryName)
	if err != nil {
		return nil, nil, err
	}
	n, err := f.New(props)
	if err != nil {
		return nil, nil, wrapErr(PluginError, err, "factory %q failed", factoryName)
	}

	c.mu.Lock()
	c.nodes = append(c.nodes, &nodeEntry{node: n, props: props})
	c.mu.Unlock()

	nodeGlobal := c.AddGlobal(owner, c.Types.Intern(typeid.URINode), 0, n, func(client *Client, reqVersion, localID uint32) (*Resource, error) {
		return &Resource{}, nil
	})
	for _, p := range n.Ports() {
		c.AddGlobal(owner, c.Types.Intern(typeid.URIPort), 0, p, func(client *Client, reqVersion, localID uint32) (*Resource, error) {
			return &Resource{}, nil
		})
	}
	return n, nodeGlobal, nil
}

// CreateLink negotiates and constructs a Link between output and input
// (normalizing direction as link.New does), then publishes it as a Global
// owned by owner. Per scenario S3, a negotiation failure publishes no
// Global and leaves the port graph untouched.
func (c *Core) CreateLink(owner *Client, output, input *node.Port, filter format.Set) (*link.Link, *Global, error) {
	if output == nil || input == nil {
		return nil, nil, newErr(InvalidArguments, "create_link: nil port")
	}
	if err := c.Access.Check(owner, ActionCreateLink, nil); err != nil {
		return nil, nil, wrapErr(AccessDenied, err, "create_link denied")
	}
	if err := c.sema.P(1); err != nil {
		return nil, nil, wrapErr(Cancelled, err, "create_link: core shutting down")
	}
	defer c.sema.V(1)

	l, err := link.New(output, input, filter)
	if err != nil {
		var ife *format.IncompatibleFormatsError
		if stderrors.As(err, &ife) {
			return nil, nil, wrapErr(IncompatibleFormats, ife, "create_link")
		}
		if stderrors.Is(err, node.ErrPortBusy) {
			return nil, nil, wrapErr(PortBusy, err, "create_link")
		}
		return nil, nil, wrapErr(InvalidArguments, err, "create_link")
	}

	c.mu.Lock()
	c.links = append(c.links, l)
	c.mu.Unlock()

	g := c.AddGlobal(owner, c.Types.Intern(typeid.URILink), 0, l, func(client *Client, reqVersion, localID uint32) (*Resource, error) {
		return &Resource{}, nil
	})
	l.OnRemove.Connect(func(*link.Link) {
		c.removeLink(l)
		g.Destroy()
	})
	return l, g, nil
}

func (c *Core) removeLink(l *link.Link) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, v := range c.links {
		if v == l {
			c.links = append(c.links[:i], c.links[i+1:]...)
			break
		}
	}
}

// FindPort resolves a peer port for hint when the client does not name one
// explicitly (§4.8): it searches nodes whose props are a superset of
// props (an empty props matches every node), picks a port of the opposite
// direction to hint whose possible_formats intersects non-emptily with
// hint's and with every filter, and returns the first match in node
// insertion order, then port insertion order within that node.
func (c *Core) FindPort(hint *node.Port, props map[string]string, filters []format.Set) (*node.Port, error) {
	c.mu.Lock()
	entries := make([]*nodeEntry, len(c.nodes))
	copy(entries, c.nodes)
	c.mu.Unlock()

	wantDir := node.Input
	if hint.Direction == node.Input {
		wantDir = node.Output
	}

	for _, e := range entries {
		if !propsMatch(props, e.props) {
			continue
		}
		for _, p := range e.node.Ports() {
			if p.Direction != wantDir {
				continue
			}
			candidate := p.PossibleFormats().Intersect(hint.PossibleFormats())
			ok := !candidate.IsEmpty()
			for _, f := range filters {
				if f == nil {
					continue
				}
				candidate = candidate.Intersect(f)
				if candidate.IsEmpty() {
					ok = false
					break
				}
			}
			if ok {
				return p, nil
			}
		}
	}
	return nil, newErr(NotFound, "find_port: no matching peer port")
}

func propsMatch(want, have map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

// Destroy shuts the core down in the order §4.8 mandates: links first (the
// data path stops), then nodes, then clients, then the core's own globals.
// Within each class, destruction proceeds in reverse insertion order.
// Errors are aggregated with go-multierror; every entity is still given a
// chance to tear down.
func (c *Core) Destroy() error {
	var result error

	c.mu.Lock()
	links := make([]*link.Link, len(c.links))
	copy(links, c.links)
	c.mu.Unlock()
	for i := len(links) - 1; i >= 0; i-- {
		if err := links[i].Remove(); err != nil {
			result = errwrap.Append(result, err)
		}
	}

	c.mu.Lock()
	nodes := make([]*nodeEntry, len(c.nodes))
	copy(nodes, c.nodes)
	c.nodes = nil
	c.mu.Unlock()
	for i := len(nodes) - 1; i >= 0; i-- {
		if err := nodes[i].node.Close(); err != nil {
			result = errwrap.Append(result, err)
		}
	}

	c.mu.Lock()
	clients := make([]*Client, len(c.clients))
	copy(clients, c.clients)
	c.mu.Unlock()
	for i := len(clients) - 1; i >= 0; i-- {
		clients[i].Disconnect()
	}

	c.mu.Lock()
	globals := make([]*Global, len(c.globals))
	copy(globals, c.globals)
	c.mu.Unlock()
	for i := len(globals) - 1; i >= 0; i-- {
		globals[i].Destroy()
	}

	c.sema.Close()
	return result
}
