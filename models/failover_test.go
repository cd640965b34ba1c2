package models

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestParseFailoverStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    FailoverStatus
		wantErr bool
	}{
		{in: "SINGLE", want: FailoverSingle},
		{in: " master ", want: FailoverMaster},
		{in: "Backup", want: FailoverBackup},
		{in: "IMPORTING", want: FailoverImporting},
		{in: "", wantErr: true},
		{in: "STANDBY", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFailoverStatus(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidStatus) {
					t.Errorf("ParseFailoverStatus(%q) error = %v, want ErrInvalidStatus", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFailoverStatus(%q) unexpected error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseFailoverStatus(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFailoverStatus_AllowsLogin(t *testing.T) {
	for _, status := range FailoverStatuses() {
		if !status.Valid() {
			t.Errorf("%s.Valid() = false, want true", status)
		}

		want := status == FailoverSingle || status == FailoverMaster
		if got := status.AllowsLogin(); got != want {
			t.Errorf("%s.AllowsLogin() = %v, want %v", status, got, want)
		}
	}
	if FailoverStatus("").Valid() {
		t.Error("empty status reported as valid")
	}
}

func TestDisabledReason_Description(t *testing.T) {
	if got := ReasonRemoteFailoverOngoing.Description(); got != "Other controller is failing over." {
		t.Errorf("Description() = %q", got)
	}
	// Unknown codes fall back to the code itself
	if got := DisabledReason("NEW_REASON").Description(); got != "NEW_REASON" {
		t.Errorf("Description() = %q, want NEW_REASON", got)
	}
}

func TestFailoverInfo_Clone(t *testing.T) {
	var nilInfo *FailoverInfo
	if nilInfo.Clone() != nil {
		t.Error("Clone() of nil info should be nil")
	}
	if nilInfo.HasPair() {
		t.Error("nil info should not report a pair")
	}

	info := &FailoverInfo{
		Status:          FailoverMaster,
		IPs:             []string{"10.0.0.1"},
		DisabledReasons: []DisabledReason{ReasonNoVIP},
	}
	clone := info.Clone()
	if !reflect.DeepEqual(info, clone) {
		t.Fatalf("Clone() = %+v, want %+v", clone, info)
	}

	clone.IPs[0] = "10.0.0.9"
	clone.DisabledReasons[0] = ReasonNoPong
	if info.IPs[0] != "10.0.0.1" {
		t.Errorf("original IPs modified through clone: %v", info.IPs)
	}
	if info.DisabledReasons[0] != ReasonNoVIP {
		t.Errorf("original reasons modified through clone: %v", info.DisabledReasons)
	}

	if !info.HasPair() {
		t.Error("MASTER info should report a pair")
	}
	if (&FailoverInfo{Status: FailoverSingle}).HasPair() {
		t.Error("SINGLE info should not report a pair")
	}
}

func TestSessionSnapshot_JSON(t *testing.T) {
	snapshot := SessionSnapshot{
		HasRootPassword: true,
		Failover:        &FailoverInfo{Status: FailoverSingle},
		CanLogin:        true,
		Connected:       true,
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if fields["can_login"] != true {
		t.Errorf("can_login = %v, want true", fields["can_login"])
	}
	if fields["is_loading"] != false {
		t.Errorf("is_loading = %v, want false", fields["is_loading"])
	}
	want := map[string]any{"status": "SINGLE"}
	if !reflect.DeepEqual(fields["failover"], want) {
		t.Errorf("failover = %v, want %v", fields["failover"], want)
	}
}
