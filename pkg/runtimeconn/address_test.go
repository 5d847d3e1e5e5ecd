package runtimeconn

import "testing"

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "192.168.0.0", want: "ws://192.168.0.0:5000"},
		{in: "10.0.0.2:7000", want: "ws://10.0.0.2:7000"},
		{in: " robot.local ", want: "ws://robot.local:5000"},
		{in: "ws://10.0.0.2", want: "ws://10.0.0.2:5000"},
		{in: "ws://10.0.0.2:5000", want: "ws://10.0.0.2:5000"},
		{in: "http://127.0.0.1:8080", want: "ws://127.0.0.1:8080"},
		{in: "wss://Runtime.Example:443", want: "wss://runtime.example:443"},
		{in: "[::1]", want: "ws://[::1]:5000"},
		{in: "", wantErr: true},
		{in: "ftp://host", wantErr: true},
		{in: "ws://", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := NormalizeAddress(tc.in, DefaultPort)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("NormalizeAddress(%q) = %q, want error", tc.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeAddress(%q) error = %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("NormalizeAddress(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeAddressSameTarget(t *testing.T) {
	a, _ := NormalizeAddress("10.0.0.2", DefaultPort)
	b, _ := NormalizeAddress("ws://10.0.0.2:5000", DefaultPort)
	if a != b {
		t.Errorf("%q != %q", a, b)
	}
}
