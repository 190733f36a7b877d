// Package pingsweep decides whether hosts are alive with ICMP echo requests.
//
// A Prober owns one raw ICMP socket per address family, opened on first use, and a
// receiver goroutine per socket that matches echo replies to pending requests by
// identifier and sequence number. Any number of goroutines may probe at once.
//
// Example usage:
//
//	prober, err := pingsweep.NewProber(pingsweep.DefaultOptions)
//	if err != nil {
//		return err
//	}
//	defer prober.Close()
//	alive := prober.IsAlive(ctx, netip.MustParseAddr("192.168.1.1"))
//
// Privilege Requirements:
// - Raw ICMP sockets require root/admin privileges on most systems
//
// Limitations:
// - Hosts with ICMP disabled or firewalled are reported down
// - Some networks rate-limit ICMP traffic
package pingsweep
