//go:build linux || freebsd || openbsd || netbsd || dragonfly

package capture

import (
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestPortalScreenshotOptions(t *testing.T) {
	prevToken := portalHandleToken
	portalHandleToken = func() string { return "test-token" }
	t.Cleanup(func() { portalHandleToken = prevToken })

	for _, interactive := range []bool{false, true} {
		values := portalScreenshotOptions(interactive)
		if got := boolVariant(t, values, "interactive"); got != interactive {
			t.Fatalf("interactive = %v, want %v", got, interactive)
		}
		if got := boolVariant(t, values, "modal"); got != interactive {
			t.Fatalf("modal = %v, want %v", got, interactive)
		}
		if got := stringVariant(t, values, "handle_token"); got != "test-token" {
			t.Fatalf("handle_token = %q, want %q", got, "test-token")
		}
		if len(values) != 3 {
			t.Fatalf("expected 3 options, got %d", len(values))
		}
	}
}

func TestPortalResponseURI(t *testing.T) {
	ok := map[string]dbus.Variant{"uri": dbus.MakeVariant("file:///tmp/shot.png")}
	tests := []struct {
		name    string
		body    []any
		want    string
		wantErr bool
	}{
		{name: "success", body: []any{uint32(0), ok}, want: "file:///tmp/shot.png"},
		{name: "cancelled", body: []any{uint32(1), ok}, wantErr: true},
		{name: "short", body: []any{uint32(0)}, wantErr: true},
		{name: "no uri", body: []any{uint32(0), map[string]dbus.Variant{}}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := portalResponseURI(tc.body)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("uri = %q, want %q", got, tc.want)
			}
		})
	}
}

func boolVariant(t *testing.T, values map[string]dbus.Variant, key string) bool {
	t.Helper()
	variant, ok := values[key]
	if !ok {
		t.Fatalf("missing key %q", key)
	}
	v, ok := variant.Value().(bool)
	if !ok {
		t.Fatalf("key %q value is %T, want bool", key, variant.Value())
	}
	return v
}

func stringVariant(t *testing.T, values map[string]dbus.Variant, key string) string {
	t.Helper()
	variant, ok := values[key]
	if !ok {
		t.Fatalf("missing key %q", key)
	}
	v, ok := variant.Value().(string)
	if !ok {
		t.Fatalf("key %q value is %T, want string", key, variant.Value())
	}
	return v
}
