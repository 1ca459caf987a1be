package bus

import (
	"github.com/godbus/dbus/v5"
)

// registryObject implements the Registry bus object of §6: `bind(id,
// version, new_id)`, plus the global/global_remove signals emitted
// directly by Bus.onGlobalAdded/onGlobalRemoved.
type registryObject struct {
	bus *Bus
}

// Bind resolves the global at id and binds it for the calling client at
// local id newID, enforcing the version and access checks core.Core.Bind
// implements (C4).
func (o *registryObject) Bind(id uint32, version uint32, newID uint32, sender dbus.Sender) *dbus.Error {
	cl := o.bus.clientFor(sender)
	g, ok := o.bus.globalByID(idOf(id))
	if !ok {
		return dbus.NewError("org.pwired.Error.NotFound", []interface{}{"no such global"})
	}
	if _, err := o.bus.core.Bind(g, cl, version, newID); err != nil {
		return toDBusError(err)
	}
	return nil
}
