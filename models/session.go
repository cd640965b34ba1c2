package models

// SessionSnapshot is the read-only view of the sign-in state served to UIs.
type SessionSnapshot struct {
	// IsLoading is true while a bootstrap, login or token sequence runs
	IsLoading bool `json:"is_loading"`

	// HasRootPassword reports whether the superuser has a local password
	HasRootPassword bool `json:"has_root_password"`

	// Failover is nil until failover.status has been fetched
	Failover *FailoverInfo `json:"failover,omitempty"`

	// CanLogin is true when connected and the node is SINGLE or MASTER
	CanLogin bool `json:"can_login"`

	// HasFailoverPair is true when Failover is present and not SINGLE
	HasFailoverPair bool `json:"has_failover_pair"`

	// Connected mirrors the RPC channel connection signal
	Connected bool `json:"connected"`
}
