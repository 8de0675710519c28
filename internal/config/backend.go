package config

import (
	"fmt"
	"strings"
)

const (
	BackendIdentity = "identity"
	BackendCommand  = "command"
)

func NormalizeBackend(raw string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(raw))
	if backend == "" {
		backend = BackendIdentity
	}
	switch backend {
	case BackendIdentity, BackendCommand:
		return backend, nil
	case "none", "passthrough":
		return BackendIdentity, nil
	case "cmd", "exec":
		return BackendCommand, nil
	default:
		return "", fmt.Errorf(
			"invalid backend %q (expected %s|%s)",
			raw,
			BackendIdentity,
			BackendCommand,
		)
	}
}
