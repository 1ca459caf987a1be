package bus

import (
	"github.com/godbus/dbus/v5"

	"github.com/pwired/pwired/format"
	"github.com/pwired/pwired/node"
)

// portObject implements the Port bus object of §6: `set_format(format)`,
// `send_buffer(buf)`, plus the format_changed/buffers_changed signals
// wired up in Bus.onGlobalAdded.
type portObject struct {
	bus  *Bus
	port *node.Port
}

// SetFormat commits a format by name and parameters, the wire shape a
// client uses in place of a format.Media literal. It does not itself
// renegotiate a link bound to this port; it only updates the port's own
// negotiated format the way node.Port.SetFormat always has.
func (o *portObject) SetFormat(name string, params map[string]string) *dbus.Error {
	o.port.SetFormat(format.Media{Name: name, Params: params})
	return nil
}

// SendBuffer hands payload to every send-buffer callback registered on
// this port (in practice, the single Link bound to it). A WouldBlock
// reply mirrors §4.5's "must not queue" contract: the caller is expected
// to retry, not treat this as a hard failure.
func (o *portObject) SendBuffer(payload []byte) *dbus.Error {
	buf := node.NewBuffer(payload, nil)
	if err := o.port.Send(buf); err != nil {
		return toDBusError(err)
	}
	return nil
}
