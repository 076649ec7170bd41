package paramspace

import "bridgectl/wire"

// ResolvedDump is a thin convenience wrapper around wire.ParamDump that
// resolves Locations (name or index) to bytes.
type ResolvedDump struct {
	wire.ParamDump
}

// Get resolves loc and returns the byte at that offset.
func (d ResolvedDump) Get(loc Location) (byte, error) {
	idx, err := loc.Resolve()
	if err != nil {
		return 0, err
	}
	return d.Bytes[idx], nil
}

// GetByName is sugar for Get(ByName(name)).
func (d ResolvedDump) GetByName(name string) (byte, error) {
	return d.Get(ByName(name))
}
