package bus

import (
	"strconv"

	"github.com/godbus/dbus/v5"
	"golang.org/x/time/rate"

	"github.com/pwired/pwired/link"
)

// linkObject implements the Link bus object of §6: `set_property`,
// `remove`, plus the format_changed/state_changed/removed signals wired
// up in Bus.onGlobalAdded.
type linkObject struct {
	bus  *Bus
	link *link.Link
}

// SetProperty supports the one mutable property this implementation
// exposes over the bus: "rate_limit", a token-bucket rate in buffers per
// second applied to the link's data path (link.Link.Limiter). Any other
// property name is rejected, since §6 leaves the property set otherwise
// unspecified.
func (o *linkObject) SetProperty(name string, value string) *dbus.Error {
	switch name {
	case "rate_limit":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return dbus.NewError("org.pwired.Error.InvalidArguments", []interface{}{err.Error()})
		}
		burst := int(f)
		if burst < 1 {
			burst = 1
		}
		o.link.Limiter = rate.NewLimiter(rate.Limit(f), burst)
		return nil
	default:
		return dbus.NewError("org.pwired.Error.InvalidArguments", []interface{}{"unknown property " + name})
	}
}

// Remove tears the link down.
func (o *linkObject) Remove() *dbus.Error {
	if err := o.link.Remove(); err != nil {
		return toDBusError(err)
	}
	return nil
}
