// Package notify sends low-time desktop warnings over the session bus.
package notify

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const appName = "YourTime"

// Notifier talks to org.freedesktop.Notifications on the user's session bus.
type Notifier struct {
	conn *dbus.Conn
}

func New() (*Notifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Notifier{conn: conn}, nil
}

func (n *Notifier) Close() error {
	return n.conn.Close()
}

// Warn shows the "minutes left" warning.
func (n *Notifier) Warn(minutes int64) error {
	body := fmt.Sprintf("You have %d minute(s) of usage time remaining", minutes)
	return n.send("Usage Time Warning", body)
}

// Announce shows a plain informational message, used when the trigger fires.
func (n *Notifier) Announce(message string) error {
	return n.send(appName, message)
}

func (n *Notifier) send(summary, body string) error {
	obj := n.conn.Object("org.freedesktop.Notifications", "/org/freedesktop/Notifications")
	call := obj.Call("org.freedesktop.Notifications.Notify", 0,
		appName,
		uint32(0),
		"dialog-warning",
		summary,
		body,
		[]string{},
		map[string]dbus.Variant{
			"urgency": dbus.MakeVariant(byte(2)), // critical, the user is about to be locked out
		},
		int32(10000),
	)
	if call.Err != nil {
		return fmt.Errorf("failed to send notification: %w", call.Err)
	}
	return nil
}
