package vault

import (
	"fmt"
	"os"
	"os/user"
	"runtime"

	"github.com/google/uuid"
)

// autoUnlockNamespace is the fixed namespace string spec.md §4.3 names for
// deriving a per-machine fallback machine ID; it never changes across
// releases, since doing so would silently break existing auto-unlocked
// vaults.
var autoUnlockNamespace = uuid.NewSHA1(uuid.Nil, []byte("timelocker-auto-unlock-v1"))

const autoUnlockSalt = "timelocker_auto_salt_v1"

// systemFingerprint derives the deterministic, host-specific string used as
// the "password" input to AutoUnlock's key derivation: machine-id (with the
// documented fallback chain), uid/username, and hostname.
func systemFingerprint() (string, error) {
	machineID, err := machineID()
	if err != nil {
		return "", err
	}

	who, err := currentUserIdentity()
	if err != nil {
		return "", err
	}

	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s|%s|%s", machineID, who, hostname), nil
}

// autoUnlockKey derives the auto-unlock master key directly (bypassing
// Unlock's on-disk salt file) using the fixed salt spec.md §4.3 names, so
// the same fingerprint always yields the same key regardless of which
// vault directory it's applied to.
func autoUnlockKey() ([]byte, error) {
	fp, err := systemFingerprint()
	if err != nil {
		return nil, err
	}
	return deriveKey(fp, []byte(autoUnlockSalt)), nil
}

func machineID() (string, error) {
	for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
		if raw, err := os.ReadFile(path); err == nil {
			id := trimNewline(string(raw))
			if id != "" {
				return id, nil
			}
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}
	who, err := currentUserIdentity()
	if err != nil {
		return "", err
	}
	return uuid.NewSHA1(autoUnlockNamespace, []byte(hostname+"|"+who)).String(), nil
}

func currentUserIdentity() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	if runtime.GOOS == "windows" {
		return u.Username, nil
	}
	return u.Uid, nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
