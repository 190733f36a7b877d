// Package prescan orders the addresses of an IPv4 block by how likely they are to
// answer a probe, so a capped discovery walk reaches live hosts sooner.
//
// Scores follow common last-octet allocation habits:
//   - 100: .1, .254 (routers, gateways)
//   - 90:  .2-.5, .250-.253 (reserved infrastructure)
//   - 80:  .6-.10 (first DHCP leases)
//   - 70:  .50, .100, .150 (DHCP pool starts)
//   - 50:  .51-.99, .101-.149, .151-.200 (DHCP pool)
//   - 20:  .11-.49, .201-.249 (long tail)
//   - 0:   network and broadcast (never returned)
//
// Example:
//
//	// top quarter of a /24, best candidates first
//	addrs, err := prescan.SelectIPs(netip.MustParsePrefix("192.168.1.0/24"), 0.25)
package prescan
