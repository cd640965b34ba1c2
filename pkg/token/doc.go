// Package token issues and checks appliance session tokens.
//
// A session token is what the sign-in flow caches for silent re-login. The
// appliance (or the development simulator) never keeps the plaintext: it
// stores an HMAC-SHA256 of the token and compares in constant time.
//
//	tok, err := token.Generate()
//	if err != nil {
//	    return err
//	}
//	stored := token.Hash(tok, secret)
//	...
//	if token.Validate(presented, secret, stored) {
//	    // accepted
//	}
//
// Tokens must never be logged; use Redact when a log line needs to refer to one.
package token
