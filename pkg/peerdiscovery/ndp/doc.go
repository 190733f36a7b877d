// Package ndp decides whether IPv6 hosts on the local segment are alive from the
// neighbor discovery table.
//
// Hosts missing from the table get a UDP datagram, which makes the kernel send a
// neighbor solicitation; the table is read again once it had time to settle.
package ndp
