//go:build !unix

package serialline

// indexByteOptimized falls back to the portable byte scan on non-Unix
// targets.
func indexByteOptimized(b []byte, c byte) int {
	return indexByte(b, c)
}
