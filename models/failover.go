package models

import (
	"fmt"
	"slices"
	"strings"
)

// FailoverStatus is the HA role reported by failover.status.
type FailoverStatus string

const (
	// FailoverSingle means the appliance is not part of a failover pair.
	FailoverSingle FailoverStatus = "SINGLE"

	// FailoverMaster means this node is the active controller of the pair.
	FailoverMaster FailoverStatus = "MASTER"

	// FailoverBackup means this node is the standby controller.
	FailoverBackup FailoverStatus = "BACKUP"

	// FailoverElecting means the pair is deciding which node becomes active.
	FailoverElecting FailoverStatus = "ELECTING"

	// FailoverImporting means the active node is importing pools.
	FailoverImporting FailoverStatus = "IMPORTING"

	// FailoverError means the failover subsystem is in an error state.
	FailoverError FailoverStatus = "ERROR"
)

// ParseFailoverStatus normalizes and validates a status string.
func ParseFailoverStatus(s string) (FailoverStatus, error) {
	status := FailoverStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

// FailoverStatuses lists every known status.
func FailoverStatuses() []FailoverStatus {
	return []FailoverStatus{
		FailoverSingle, FailoverMaster, FailoverBackup,
		FailoverElecting, FailoverImporting, FailoverError,
	}
}

// Valid reports whether the status is one of the known values.
func (s FailoverStatus) Valid() bool {
	switch s {
	case FailoverSingle, FailoverMaster, FailoverBackup,
		FailoverElecting, FailoverImporting, FailoverError:
		return true
	}
	return false
}

// IsSingle reports whether the appliance has no failover pair.
func (s FailoverStatus) IsSingle() bool {
	return s == FailoverSingle
}

// AllowsLogin reports whether a user may log in to a node with this status.
func (s FailoverStatus) AllowsLogin() bool {
	return s == FailoverSingle || s == FailoverMaster
}

// DisabledReason is a code from failover.disabled.reasons.
// Unknown codes are kept verbatim so newer appliances still render.
type DisabledReason string

const (
	ReasonNoCriticalInterfaces  DisabledReason = "NO_CRITICAL_INTERFACES"
	ReasonMismatchDisks         DisabledReason = "MISMATCH_DISKS"
	ReasonNoVolume              DisabledReason = "NO_VOLUME"
	ReasonNoVIP                 DisabledReason = "NO_VIP"
	ReasonNoSystemReady         DisabledReason = "NO_SYSTEM_READY"
	ReasonNoPong                DisabledReason = "NO_PONG"
	ReasonNoFailover            DisabledReason = "NO_FAILOVER"
	ReasonNoLicense             DisabledReason = "NO_LICENSE"
	ReasonDisagreeVIP           DisabledReason = "DISAGREE_VIP"
	ReasonNoFenced              DisabledReason = "NO_FENCED"
	ReasonRemoteFailoverOngoing DisabledReason = "REM_FAILOVER_ONGOING"
	ReasonNoHeartbeatIface      DisabledReason = "NO_HEARTBEAT_IFACE"
	ReasonNoCarrierOnHeartbeat  DisabledReason = "NO_CARRIER_ON_HEARTBEAT"
	ReasonLocalFIPSRebootReq    DisabledReason = "LOC_FIPS_REBOOT_REQ"
	ReasonRemoteFIPSRebootReq   DisabledReason = "REM_FIPS_REBOOT_REQ"
)

var reasonText = map[DisabledReason]string{
	ReasonNoCriticalInterfaces:  "No network interfaces are marked critical for failover.",
	ReasonMismatchDisks:         "The controllers do not have the same quantity of disks.",
	ReasonNoVolume:              "No pools have been configured.",
	ReasonNoVIP:                 "No interfaces have been configured with a Virtual IP.",
	ReasonNoSystemReady:         "Other controller has not finished booting.",
	ReasonNoPong:                "Other controller is not reachable.",
	ReasonNoFailover:            "Failover is administratively disabled.",
	ReasonNoLicense:             "Other controller has no license.",
	ReasonDisagreeVIP:           "Nodes Virtual IP states do not agree.",
	ReasonNoFenced:              "Fenced is not running.",
	ReasonRemoteFailoverOngoing: "Other controller is failing over.",
	ReasonNoHeartbeatIface:      "Local heartbeat interface does not exist.",
	ReasonNoCarrierOnHeartbeat:  "Local heartbeat interface is down.",
	ReasonLocalFIPSRebootReq:    "This node needs to be rebooted to apply FIPS configuration.",
	ReasonRemoteFIPSRebootReq:   "Other node needs to be rebooted to apply FIPS configuration.",
}

// Description returns a human-readable explanation, or the raw code.
func (r DisabledReason) Description() string {
	if text, ok := reasonText[r]; ok {
		return text
	}
	return string(r)
}

// FailoverInfo is the failover snapshot shown on the sign-in screen.
//
// IPs and DisabledReasons are only populated once Status is known and
// non-SINGLE; for a SINGLE appliance both stay nil.
type FailoverInfo struct {
	// Status is the node's HA role
	Status FailoverStatus `json:"status"`

	// IPs are the management addresses advertised by the pair
	IPs []string `json:"ips,omitempty"`

	// DisabledReasons explain why failover or login is blocked
	DisabledReasons []DisabledReason `json:"disabled_reasons,omitempty"`
}

// Clone returns a deep copy so callers can't alias coordinator state.
func (f *FailoverInfo) Clone() *FailoverInfo {
	if f == nil {
		return nil
	}
	return &FailoverInfo{
		Status:          f.Status,
		IPs:             slices.Clone(f.IPs),
		DisabledReasons: slices.Clone(f.DisabledReasons),
	}
}

// HasPair reports whether the info describes a failover pair.
func (f *FailoverInfo) HasPair() bool {
	return f != nil && f.Status != "" && !f.Status.IsSingle()
}
