package identity

import (
	"os"
	"os/user"
	"strings"
)

// Current returns the account name the daemon is running as. Enforcement is
// compared against this case-insensitively; an empty result leaves the loop
// unarmed.
func Current() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return strings.TrimSpace(os.Getenv("USER"))
}
