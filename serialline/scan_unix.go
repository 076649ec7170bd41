//go:build unix

package serialline

import "bytes"

// indexByteOptimized is the Unix-optimised delimiter scan named in spec
// §4.6; bytes.IndexByte is implemented with SIMD on the platforms Go
// supports, but must return the same first-match index as the portable
// indexByte loop.
func indexByteOptimized(b []byte, c byte) int {
	return bytes.IndexByte(b, c)
}
