package cluster

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cuemby/osd-activate/pkg/command"
	"github.com/cuemby/osd-activate/pkg/types"
)

const (
	// BootstrapName is the principal used to create and register OSDs
	BootstrapName = "client.bootstrap-osd"
)

// Client talks to the monitors through the ceph command-line tools
type Client struct {
	runner command.Runner
	logger zerolog.Logger
}

// NewClient creates a control-plane client
func NewClient(runner command.Runner, logger zerolog.Logger) *Client {
	return &Client{
		runner: runner,
		logger: logger,
	}
}

func (c *Client) ceph(ctx context.Context, cluster, keyring string, args ...string) ([]byte, error) {
	argv := append([]string{
		"--cluster", cluster,
		"--name", BootstrapName,
		"--keyring", keyring,
	}, args...)
	return c.runner.Run(ctx, "ceph", argv...)
}

// CreateIdentity asks the monitors for a new OSD id. The OSD fsid makes the
// request idempotent on the monitor side. The raw tool output is returned;
// callers validate it.
func (c *Client) CreateIdentity(ctx context.Context, cluster, fsid, keyring string) (string, error) {
	out, err := c.ceph(ctx, cluster, keyring, "osd", "create", "--concise", fsid)
	if err != nil {
		return "", fmt.Errorf("failed to allocate osd id: %w", err)
	}
	return string(out), nil
}

// GetMembershipSnapshot fetches the current monitor map
func (c *Client) GetMembershipSnapshot(ctx context.Context, cluster, keyring string) ([]byte, error) {
	out, err := c.ceph(ctx, cluster, keyring, "mon", "getmap")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch monmap: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("failed to fetch monmap: empty output")
	}
	return out, nil
}

// RegisterCredential registers the key at credentialPath under name with caps
func (c *Client) RegisterCredential(ctx context.Context, cluster, keyring, name, credentialPath string, caps []types.Capability) error {
	args := []string{"auth", "add", name, "-i", credentialPath}
	for _, cp := range caps {
		args = append(args, cp.Entity, cp.Grant)
	}

	if _, err := c.ceph(ctx, cluster, keyring, args...); err != nil {
		return fmt.Errorf("failed to register key for %s: %w", name, err)
	}

	c.logger.Debug().Str("cluster", cluster).Str("name", name).Msg("registered key")
	return nil
}

// LookupConfigValue reads key from the cluster configuration as seen by an
// OSD. ok is false when the key is unset; an empty value counts as unset.
func (c *Client) LookupConfigValue(ctx context.Context, cluster, key string) (value string, ok bool, err error) {
	out, err := c.runner.Run(ctx, "ceph-conf",
		"--cluster="+cluster,
		"--name=osd.",
		"--lookup", key,
	)
	if err != nil {
		// ceph-conf exits 1 for a key that is not set
		if command.ExitCode(err) == 1 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to look up %s: %w", key, err)
	}

	value = strings.TrimSpace(string(out))
	if value == "" {
		return "", false, nil
	}
	return value, true, nil
}
