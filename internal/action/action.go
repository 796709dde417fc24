// Package action executes the corrective OS action through systemd-logind.
package action

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	log "github.com/sirupsen/logrus"
)

// Kind is the symbolic enforcement action from the configuration document.
type Kind string

const (
	Lock   Kind = "lock"
	Logoff Kind = "logoff"
)

// Executor performs an enforcement action for a user. Calls are
// fire-and-forget from the loop's point of view.
type Executor interface {
	Execute(kind Kind, username string) error
}

// LogindExecutor locks or terminates sessions via org.freedesktop.login1.
type LogindExecutor struct {
	conn *dbus.Conn
}

func NewLogindExecutor() (*LogindExecutor, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	return &LogindExecutor{conn: conn}, nil
}

func (e *LogindExecutor) Close() error {
	return e.conn.Close()
}

type sessionEntry struct {
	ID   string
	UID  uint32
	User string
	Seat string
	Path dbus.ObjectPath
}

// Execute applies kind to the user's active session.
func (e *LogindExecutor) Execute(kind Kind, username string) error {
	entry, err := e.activeSession(username)
	if err != nil {
		return err
	}

	manager := e.conn.Object("org.freedesktop.login1", "/org/freedesktop/login1")
	switch kind {
	case Lock:
		// skip when already locked, so a repeated trigger is harmless
		sessionObj := e.conn.Object("org.freedesktop.login1", entry.Path)
		locked, err := sessionObj.GetProperty("org.freedesktop.login1.Session.LockedHint")
		if err == nil {
			if isLocked, ok := locked.Value().(bool); ok && isLocked {
				log.WithField("session", entry.ID).Debug("session already locked, skipping")
				return nil
			}
		}
		if call := manager.Call("org.freedesktop.login1.Manager.LockSession", 0, entry.ID); call.Err != nil {
			return fmt.Errorf("failed to lock session %s: %w", entry.ID, call.Err)
		}
	case Logoff:
		if call := manager.Call("org.freedesktop.login1.Manager.TerminateSession", 0, entry.ID); call.Err != nil {
			return fmt.Errorf("failed to terminate session %s: %w", entry.ID, call.Err)
		}
	default:
		return fmt.Errorf("unknown action %q", kind)
	}

	log.WithFields(log.Fields{"action": kind, "session": entry.ID, "user": username}).Info("enforcement action executed")
	return nil
}

// activeSession finds the user's active logind session.
func (e *LogindExecutor) activeSession(username string) (sessionEntry, error) {
	manager := e.conn.Object("org.freedesktop.login1", "/org/freedesktop/login1")

	var sessions []sessionEntry
	if err := manager.Call("org.freedesktop.login1.Manager.ListSessions", 0).Store(&sessions); err != nil {
		return sessionEntry{}, fmt.Errorf("failed to list sessions: %w", err)
	}

	for _, s := range sessions {
		if s.User != username {
			continue
		}
		sessionObj := e.conn.Object("org.freedesktop.login1", s.Path)
		active, err := sessionObj.GetProperty("org.freedesktop.login1.Session.Active")
		if err != nil {
			continue
		}
		if isActive, ok := active.Value().(bool); ok && isActive {
			return s, nil
		}
	}
	return sessionEntry{}, fmt.Errorf("no active session for user %s", username)
}
