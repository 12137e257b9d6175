package protocol

import "testing"

func TestLookupKey(t *testing.T) {
	tests := []struct {
		name string
		want Key
	}{
		{"request", KeyRequest},
		{"ipv4", KeyIPv4},
		{"ipv6", KeyIPv6},
		{"leasestart", KeyLeaseStart},
		{"leasetime", KeyLeaseTime},
		{"errno", KeyErrno},
		{"errmsg", KeyErrmsg},
		{"", KeyUnknown},
		{"IPV4", KeyUnknown},
		{"ipv", KeyUnknown},
		{"ipv44", KeyUnknown},
		{"request ", KeyUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LookupKey(tt.name); got != tt.want {
				t.Errorf("LookupKey(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestKeyNamespaces(t *testing.T) {
	if !KeyRequest.IsCommand() || KeyRequest.IsAttribute() {
		t.Errorf("request should be a command only")
	}
	for _, k := range []Key{KeyIPv4, KeyIPv6, KeyLeaseStart, KeyLeaseTime, KeyErrno, KeyErrmsg} {
		if k.IsCommand() || !k.IsAttribute() {
			t.Errorf("%v should be an attribute only", k)
		}
	}
	for _, k := range []Key{KeyUnknown, keyEndCommand, keyEnd} {
		if k.IsCommand() || k.IsAttribute() {
			t.Errorf("Key(%d) should be neither command nor attribute", int(k))
		}
	}
}

func TestKeyStringRoundTrip(t *testing.T) {
	for k := KeyUnknown + 1; k < keyEnd; k++ {
		if k == keyEndCommand {
			continue
		}
		if got := LookupKey(k.String()); got != k {
			t.Errorf("LookupKey(%v.String()) = %v", k, got)
		}
	}
	if got := Key(99).String(); got != "Key(99)" {
		t.Errorf("Key(99).String() = %q", got)
	}
}
