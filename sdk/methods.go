package sdk

import (
	"context"
	"fmt"

	"github.com/yaroslav/nassession/models"
)

// Ping calls core.ping. Any answer marks the channel connected.
func (c *Client) Ping(ctx context.Context) error {
	var pong string
	if err := c.Call(ctx, MethodPing, nil, &pong); err != nil {
		return err
	}
	if pong != "pong" {
		return fmt.Errorf("unexpected ping reply %q", pong)
	}
	return nil
}

// HasRootPassword reports whether the superuser has a local password set.
func (c *Client) HasRootPassword(ctx context.Context) (bool, error) {
	var has bool
	if err := c.Call(ctx, MethodHasRootPassword, nil, &has); err != nil {
		return false, err
	}
	return has, nil
}

// FailoverStatus returns the node's HA role.
//
// Returns:
//   - models.FailoverStatus: The normalized status (e.g. SINGLE, MASTER, BACKUP)
//   - error: models.ErrInvalidStatus for an unknown value, or RPC/transport errors
func (c *Client) FailoverStatus(ctx context.Context) (models.FailoverStatus, error) {
	var raw string
	if err := c.Call(ctx, MethodFailoverStatus, nil, &raw); err != nil {
		return "", err
	}
	return models.ParseFailoverStatus(raw)
}

// FailoverIPs returns the management IPs advertised by the failover pair.
func (c *Client) FailoverIPs(ctx context.Context) ([]string, error) {
	var ips []string
	if err := c.Call(ctx, MethodFailoverIPs, nil, &ips); err != nil {
		return nil, err
	}
	return ips, nil
}

// FailoverDisabledReasons returns why failover (and login) is blocked.
func (c *Client) FailoverDisabledReasons(ctx context.Context) ([]models.DisabledReason, error) {
	var reasons []models.DisabledReason
	if err := c.Call(ctx, MethodFailoverDisabledReasons, nil, &reasons); err != nil {
		return nil, err
	}
	return reasons, nil
}
