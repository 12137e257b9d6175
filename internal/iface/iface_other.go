//go:build !linux

package iface

const familyInet6 = 10

// Addrs is only implemented on linux.
func Addrs(family int, fn func(Addr) error) error {
	return ErrUnsupported
}
