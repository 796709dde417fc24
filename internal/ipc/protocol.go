// Package ipc exposes the running daemon to ytctl over the session bus.
package ipc

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/da33dut/yourtime/internal/controller"
	"github.com/da33dut/yourtime/internal/watchdog"
)

const (
	ObjectPath    = "/io/github/da33dut/yourtime"
	InterfaceName = "io.github.da33dut.yourtime.Manager"
	ServiceName   = "io.github.da33dut.yourtime"
)

var errLocked = dbus.MakeFailedError(fmt.Errorf("settings are locked; unlock first"))

// OwnershipError interprets a RequestName result. Anything but primary
// ownership means another daemon is already enforcing, which the caller must
// treat as fatal.
func OwnershipError(reply dbus.RequestNameReply, err error) error {
	if err != nil {
		return fmt.Errorf("failed to request name %s: %w", ServiceName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("another instance already owns %s", ServiceName)
	}
	return nil
}

// Manager is the object exported on the bus.
type Manager struct {
	Ctrl *controller.Controller
}

// Status returns a one-line summary for ytctl.
func (m *Manager) Status() (string, *dbus.Error) {
	phase := "counting"
	switch m.Ctrl.Phase() {
	case watchdog.PhaseUnarmed:
		phase = "unarmed"
	case watchdog.PhaseWarning:
		phase = "warning"
	case watchdog.PhaseTriggered:
		phase = "triggered"
	case watchdog.PhaseDenied:
		phase = "denied"
	}
	return fmt.Sprintf("phase=%s allowed=%t remaining=%d", phase, m.Ctrl.IsAllowed(), m.Ctrl.Remaining()), nil
}

// Remaining returns the live counter in seconds (-1 when unlimited).
func (m *Manager) Remaining() (int64, *dbus.Error) {
	return m.Ctrl.Remaining(), nil
}

// Unlock opens the settings gate with the configured password.
func (m *Manager) Unlock(password string) (bool, *dbus.Error) {
	return m.Ctrl.Unlock(password), nil
}

// Extend adds seconds to the live counter. Requires an unlocked gate.
func (m *Manager) Extend(seconds int64) *dbus.Error {
	if !m.Ctrl.Unlocked() {
		return errLocked
	}
	m.Ctrl.Extend(seconds)
	return nil
}

// Reduce subtracts seconds from the live counter. Requires an unlocked gate.
func (m *Manager) Reduce(seconds int64) *dbus.Error {
	if !m.Ctrl.Unlocked() {
		return errLocked
	}
	m.Ctrl.Reduce(seconds)
	return nil
}

// Reset restores today's full budget. Requires an unlocked gate.
func (m *Manager) Reset() *dbus.Error {
	if !m.Ctrl.Unlocked() {
		return errLocked
	}
	m.Ctrl.ResetTimer()
	return nil
}
