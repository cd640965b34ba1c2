package sdk

import (
	"context"
	"time"
)

// LoginWithPassword authenticates the connection with credentials.
//
// Parameters:
//   - ctx: Request context for cancellation and timeouts
//   - username: Account name, usually "root"
//   - password: Account password
//
// Returns:
//   - bool: true if the appliance accepted the credentials
//   - error: *RPCError if the appliance answered with an error, or a transport
//     error (wrapping ErrAllInstancesFailed) if no endpoint answered.
//     A rejected login is (false, nil), not an error.
func (c *Client) LoginWithPassword(ctx context.Context, username, password string) (bool, error) {
	var ok bool
	if err := c.Call(ctx, MethodLogin, []any{username, password}, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// LoginWithToken authenticates the connection with a session token.
// It reports false when the token is expired or revoked.
func (c *Client) LoginWithToken(ctx context.Context, token string) (bool, error) {
	var ok bool
	if err := c.Call(ctx, MethodLoginWithToken, []any{token}, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// GenerateToken asks the appliance for a new session token valid for
// lifetime. The connection must already be authenticated.
//
// Parameters:
//   - ctx: Request context for cancellation and timeouts
//   - lifetime: Token validity, sent as whole seconds
//
// Returns:
//   - string: The new token; "" with a nil error means the appliance declined
//   - error: *RPCError with CodeNotAuthenticated if the session is not
//     logged in, or other RPC/transport errors
//
// Example:
//
//	tok, err := client.GenerateToken(ctx, 300*time.Second)
//	if err != nil {
//	    return fmt.Errorf("failed to generate token: %w", err)
//	}
func (c *Client) GenerateToken(ctx context.Context, lifetime time.Duration) (string, error) {
	var token string
	if err := c.Call(ctx, MethodGenerateToken, []any{int(lifetime / time.Second)}, &token); err != nil {
		return "", err
	}
	return token, nil
}

// Logout ends the authenticated session and forgets the session id.
func (c *Client) Logout(ctx context.Context) error {
	err := c.Call(ctx, MethodLogout, nil, nil)
	c.setSessionID("")
	return err
}
