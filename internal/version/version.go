// Package version exposes the build version stamped at link time.
package version

// value is overridden via -ldflags "-X .../internal/version.value=v1.2.3".
var value = "dev"

// Value returns the build version.
func Value() string {
	return value
}
