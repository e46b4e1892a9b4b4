package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"plexctl/internal/config"
	"plexctl/internal/plex"
	"plexctl/internal/transcode"
)

const (
	identityCheckName = "Client identity"
	serverCheckName   = "Media server"
	accountCheckName  = "Account"

	networkCheckTimeout = 10 * time.Second
)

// CheckIdentity verifies that a stable client identifier is configured or
// can be generated and persisted.
func CheckIdentity(cfg *config.Config) Result {
	id, err := cfg.ClientIdentifier()
	if err != nil {
		return Result{Name: identityCheckName, Detail: err.Error()}
	}
	source := "configured"
	if cfg.Client.Identifier == "" {
		source = cfg.Client.IdentifierFile
	}
	return Result{Name: identityCheckName, Passed: true, Detail: fmt.Sprintf("%s (%s)", id, source)}
}

// CheckServer verifies the server is reachable and accepts the token by
// listing its transcode sessions, which requires authentication.
func CheckServer(ctx context.Context, baseURL string, opts []plex.Option) Result {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		return Result{Name: serverCheckName, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, networkCheckTimeout)
	defer cancel()

	client, err := plex.New(base, opts...)
	if err != nil {
		return Result{Name: serverCheckName, Detail: err.Error()}
	}
	sessions, err := transcode.NewNegotiator(client).Sessions(checkCtx)
	if err != nil {
		return Result{Name: serverCheckName, Detail: summarizeError(err)}
	}
	return Result{
		Name:   serverCheckName,
		Passed: true,
		Detail: fmt.Sprintf("%s reachable (%d active transcodes)", base, len(sessions)),
	}
}

// CheckAccount verifies the identity service lists a server called name.
func CheckAccount(ctx context.Context, accountURL, name string, opts []plex.Option) Result {
	if strings.TrimSpace(accountURL) == "" {
		accountURL = plex.DefaultAccountURL
	}

	checkCtx, cancel := context.WithTimeout(ctx, networkCheckTimeout)
	defer cancel()

	client, err := plex.New(accountURL, opts...)
	if err != nil {
		return Result{Name: accountCheckName, Detail: err.Error()}
	}
	devices, err := client.Resources(checkCtx)
	if err != nil {
		return Result{Name: accountCheckName, Detail: summarizeError(err)}
	}
	servers := 0
	for _, device := range devices {
		if !device.IsServer() {
			continue
		}
		servers++
		if strings.EqualFold(device.Name, name) {
			return Result{
				Name:   accountCheckName,
				Passed: true,
				Detail: fmt.Sprintf("server %q found (%d connections)", device.Name, len(device.Connections)),
			}
		}
	}
	return Result{Name: accountCheckName, Detail: fmt.Sprintf("no server named %q among %d on the account", name, servers)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeError produces a human-readable summary for a failed network check.
func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (server unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (server unreachable)"
	}
	switch plex.StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return "auth failed (invalid token)"
	}
	return err.Error()
}
