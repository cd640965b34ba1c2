package sdk

import "encoding/json"

// RPC methods used by the sign-in flow.
const (
	MethodPing                    = "core.ping"
	MethodHasRootPassword         = "user.has_root_password"
	MethodFailoverStatus          = "failover.status"
	MethodFailoverIPs             = "failover.get_ips"
	MethodFailoverDisabledReasons = "failover.disabled.reasons"
	MethodLogin                   = "auth.login"
	MethodLoginWithToken          = "auth.login_with_token"
	MethodGenerateToken           = "auth.generate_token"
	MethodLogout                  = "auth.logout"
)

// RPCPath is the HTTP path the JSON-RPC endpoint is served on.
const RPCPath = "/api/v1/rpc"

// HeaderSessionID carries the authenticated session between calls.
const HeaderSessionID = "X-Session-ID"

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}
