package bus

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/pwired/pwired/core"
	"github.com/pwired/pwired/node"
)

// toDBusError maps a core.Error onto a named D-Bus error, preserving Kind
// as the error name's suffix so a client can switch on it the way §7
// intends (`error(id, code, msg)`, here carried as the D-Bus error name
// plus message instead of a separate id/code pair, since the D-Bus error
// reply already identifies which call failed).
func toDBusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	var cerr *core.Error
	if errors.As(err, &cerr) {
		return dbus.NewError("org.pwired.Error."+cerr.Kind.String(), []interface{}{cerr.Message})
	}
	if errors.Is(err, node.ErrWouldBlock) {
		return dbus.NewError("org.pwired.Error.WouldBlock", []interface{}{err.Error()})
	}
	return dbus.NewError("org.pwired.Error.Internal", []interface{}{fmt.Sprintf("%v", err)})
}
