// Package version holds the pktindex release number. Set via build flags:
//
//	-ldflags "-X github.com/stlalpha/pktindex/internal/version.Number=1.0.0"
package version

import (
	"fmt"
	"runtime"
)

// Number is the release version.
var Number = "0.1.0"

// String returns "pktindex <Number> (<os>/<arch>)".
func String() string {
	return fmt.Sprintf("pktindex %s (%s/%s)", Number, runtime.GOOS, runtime.GOARCH)
}
