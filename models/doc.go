// Package models provides shared data structures for the nassession project.
//
// This package contains the appliance-facing types used by the RPC client SDK,
// the sign-in coordinator, the development simulator and the local API. Keeping
// them in a leaf package lets every component import them without cycles.
//
// The models in this package represent:
//   - FailoverStatus: the HA role of a storage appliance node
//   - DisabledReason: codes explaining why failover (and login) is blocked
//   - FailoverInfo: the failover snapshot shown on the sign-in screen
//   - SessionSnapshot: the read-only projection of the sign-in state
//
// All structs include JSON tags so they can be served by the local API and
// decoded from appliance RPC responses.
package models
