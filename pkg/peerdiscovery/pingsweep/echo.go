package pingsweep

import (
	"fmt"
	"net"
	"net/netip"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

var echoPayload = []byte("HELLO-R-U-THERE")

func marshalEcho(isIPv6 bool, id, seq int) ([]byte, error) {
	var msgType icmp.Type = ipv4.ICMPTypeEcho
	if isIPv6 {
		msgType = ipv6.ICMPTypeEchoRequest
	}

	msg := &icmp.Message{
		Type: msgType,
		Code: 0,
		Body: &icmp.Echo{ID: id, Seq: seq, Data: echoPayload},
	}
	data, err := msg.Marshal(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ICMP message: %w", err)
	}
	return data, nil
}

// parseEchoReply returns the identifier and sequence of an echo reply
func parseEchoReply(isIPv6 bool, data []byte) (id, seq int, ok bool) {
	var replyType icmp.Type = ipv4.ICMPTypeEchoReply
	protocol := ipv4.ICMPTypeEchoReply.Protocol()
	if isIPv6 {
		replyType = ipv6.ICMPTypeEchoReply
		protocol = ipv6.ICMPTypeEchoReply.Protocol()
	}

	msg, err := icmp.ParseMessage(protocol, data)
	if err != nil || msg.Type != replyType {
		return 0, 0, false
	}
	echo, ok := msg.Body.(*icmp.Echo)
	if !ok {
		return 0, 0, false
	}
	return echo.ID, echo.Seq, true
}

func sendPing(conn net.PacketConn, addr netip.Addr, id, seq int) error {
	data, err := marshalEcho(addr.Is6(), id, seq)
	if err != nil {
		return err
	}
	_, err = conn.WriteTo(data, &net.IPAddr{IP: addr.AsSlice(), Zone: addr.Zone()})
	return err
}

// receiveReplies matches replies read from conn until the prober is closed
func (p *Prober) receiveReplies(conn net.PacketConn, isIPv6 bool) {
	reply := make([]byte, 1500)
	for {
		select {
		case <-p.done:
			return
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond)); err != nil {
			return
		}
		n, peer, err := conn.ReadFrom(reply)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}

		id, seq, ok := parseEchoReply(isIPv6, reply[:n])
		if !ok {
			continue
		}
		peerAddr, ok := peer.(*net.IPAddr)
		if !ok {
			continue
		}
		from, ok := netip.AddrFromSlice(peerAddr.IP)
		if !ok {
			continue
		}
		p.deliver(from, id, seq)
	}
}
