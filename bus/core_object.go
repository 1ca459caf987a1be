package bus

import (
	"github.com/godbus/dbus/v5"
)

// coreObject implements the Core bus object of §6: hello/sync/create_node/
// create_link/destroy, plus the done/error signals (done is emitted
// directly from Sync; error is surfaced as a D-Bus error reply rather than
// a signal, since every method here is a synchronous call-and-reply, not
// a fire-and-forget request).
type coreObject struct {
	bus *Bus
}

// Hello registers the caller (identified by its D-Bus unique name) as a
// core.Client on first use, and echoes the requested interface version
// back, mirroring the original's version handshake.
func (o *coreObject) Hello(version uint32, sender dbus.Sender) (uint32, *dbus.Error) {
	o.bus.clientFor(sender)
	return version, nil
}

// Sync implements the `sync(seq)` round-trip: it emits `done(seq)`
// immediately, since this implementation has no asynchronous work queued
// between a client's requests and their effects becoming visible.
func (o *coreObject) Sync(seq uint32, sender dbus.Sender) *dbus.Error {
	_ = o.bus.conn.Emit(CoreObjectPath, coreInterface+".done", seq)
	return nil
}

// CreateNode resolves factory and constructs+publishes a node, returning
// the object path of the node's own Global (its ports are published and
// signalled separately, via Registry.global).
func (o *coreObject) CreateNode(factory string, props map[string]string, sender dbus.Sender) (dbus.ObjectPath, *dbus.Error) {
	cl := o.bus.clientFor(sender)
	_, g, err := o.bus.core.CreateNode(cl, factory, props)
	if err != nil {
		return "", toDBusError(err)
	}
	return objectPath(g), nil
}

// CreateLink resolves output and input (by the object paths a prior
// Registry.global signal advertised) and negotiates+publishes a Link.
func (o *coreObject) CreateLink(output, input dbus.ObjectPath, sender dbus.Sender) (dbus.ObjectPath, *dbus.Error) {
	cl := o.bus.clientFor(sender)

	outPort, err := o.bus.portAt(output)
	if err != nil {
		return "", toDBusError(err)
	}
	inPort, err := o.bus.portAt(input)
	if err != nil {
		return "", toDBusError(err)
	}

	_, g, err := o.bus.core.CreateLink(cl, outPort, inPort, nil)
	if err != nil {
		return "", toDBusError(err)
	}
	return objectPath(g), nil
}

// Destroy tears down the global with the given object id.
func (o *coreObject) Destroy(id uint32, sender dbus.Sender) *dbus.Error {
	o.bus.clientFor(sender)
	g, ok := o.bus.globalByID(idOf(id))
	if !ok {
		return dbus.NewError("org.pwired.Error.NotFound", []interface{}{"no such object"})
	}
	g.Destroy()
	return nil
}
