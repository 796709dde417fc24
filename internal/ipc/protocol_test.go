package ipc

import (
	"errors"
	"strings"
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestOwnershipError(t *testing.T) {
	if err := OwnershipError(dbus.RequestNameReplyPrimaryOwner, nil); err != nil {
		t.Errorf("expected primary ownership to be accepted, got %v", err)
	}

	// a clean reply that is not primary ownership means another daemon is
	// already enforcing; the message must stand on its own without a
	// request error to wrap
	err := OwnershipError(dbus.RequestNameReplyExists, nil)
	if err == nil {
		t.Fatal("expected an error when another instance owns the name")
	}
	if !strings.Contains(err.Error(), ServiceName) {
		t.Errorf("expected the message to name the contested service, got %q", err)
	}

	reqErr := errors.New("connection closed")
	if err := OwnershipError(dbus.RequestNameReplyExists, reqErr); !errors.Is(err, reqErr) {
		t.Errorf("expected the request error to be wrapped, got %v", err)
	}
}
