// Package arp decides whether IPv4 hosts on the local segment are alive from the
// ARP table.
//
// A host already present in the table with a hardware address is alive. Otherwise
// an ARP request is sent (raw socket through arping where available, a UDP datagram
// that makes the kernel resolve the address elsewhere) and the table is read again
// once it had time to settle.
//
// Only hosts sharing a link with the scanner can answer, so this prober suits
// local network scans.
package arp
