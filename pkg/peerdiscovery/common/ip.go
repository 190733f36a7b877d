package common

import (
	"net/netip"

	"go4.org/netipx"
)

// IsNetworkOrBroadcast checks if an address is the network or broadcast address of prefix.
// For IPv4, it checks both network and broadcast addresses.
// For IPv6, it checks network address and multicast addresses.
func IsNetworkOrBroadcast(addr netip.Addr, prefix netip.Prefix) bool {
	if !prefix.IsValid() {
		return false
	}
	prefix = prefix.Masked()
	addr = addr.Unmap()

	if addr == prefix.Addr() {
		return true
	}

	if addr.Is4() {
		return addr == netipx.PrefixLastIP(prefix)
	}

	return addr.IsMulticast()
}
