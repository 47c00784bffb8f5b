package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to ScanState
		ok       bool
	}{
		{ScanQueued, ScanRunning, true},
		{ScanQueued, ScanCancelled, true},
		{ScanQueued, ScanCompleted, false},
		{ScanRunning, ScanCompleted, true},
		{ScanRunning, ScanFailed, true},
		{ScanRunning, ScanCancelled, true},
		{ScanRunning, ScanQueued, false},
		{ScanCompleted, ScanCancelled, false},
		{ScanFailed, ScanRunning, false},
		{ScanCancelled, ScanRunning, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, CanTransition(tt.from, tt.to))
		})
	}
}

func TestScanRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     ScanRequest
		wantErr bool
	}{
		{"defaults on ip", ScanRequest{Target: "10.0.0.1"}, false},
		{"cidr", ScanRequest{Target: "192.168.1.0/24", Type: ScanTypeDiscovery}, false},
		{"hostname", ScanRequest{Target: "printer-01.lab", Type: ScanTypePort}, false},
		{"empty target", ScanRequest{}, true},
		{"bad type", ScanRequest{Target: "10.0.0.1", Type: "stealth"}, true},
		{"timeout too large", ScanRequest{Target: "10.0.0.1", Timeout: 301}, true},
		{"bad port", ScanRequest{Target: "10.0.0.1", Ports: []int{22, 70000}}, true},
		{"bad hostname", ScanRequest{Target: "-bad-.host"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Normalize().Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScanRequest_NormalizeDefaults(t *testing.T) {
	r := ScanRequest{Target: " 10.0.0.1 "}.Normalize()
	assert.Equal(t, "10.0.0.1", r.Target)
	assert.Equal(t, ScanTypeDiscovery, r.Type)
	assert.Equal(t, DefaultScanTimeout, r.Timeout)
}

func TestScanRequest_NormalizeCanonicalizesIPTargets(t *testing.T) {
	tests := map[string]string{
		"2001:DB8::1":     "2001:db8::1",
		"::ffff:10.0.0.5": "10.0.0.5",
		" 10.0.0.7 ":      "10.0.0.7",
		"192.168.1.0/24":  "192.168.1.0/24",
		"printer-01.lab":  "printer-01.lab",
	}
	for in, want := range tests {
		assert.Equal(t, want, ScanRequest{Target: in}.Normalize().Target, in)
	}
}

func TestCanonicalIP(t *testing.T) {
	assert.Equal(t, "2001:db8::1", CanonicalIP("2001:0DB8:0:0:0:0:0:1"))
	assert.Equal(t, "10.0.0.5", CanonicalIP("::FFFF:10.0.0.5"))
	assert.Equal(t, "not-an-ip", CanonicalIP(" not-an-ip "))
	assert.Equal(t, "", CanonicalIP(""))
}
