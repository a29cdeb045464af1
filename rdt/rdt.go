/*
Package rdt implements stop-and-wait reliable delivery (the alternating-bit
protocol) of datagrams over an unreliable net.PacketConn.

Data packet format:

	seq uint8 // 0 or 1, alternates per delivered packet
	Payload   // up to MaxPayloadSize bytes, delimited by the datagram

Acknowledgement format (ASCII, no payload):

	"ACK0" | "ACK1"

A sender transmits one packet and retransmits it unchanged every
RetransmitTimeout until the matching ACK arrives, then flips its sequence bit.
A receiver delivers a packet whose seq equals the expected bit, acks it and
flips; any other packet is a duplicate caused by a lost ACK, so the previous
bit is re-acked and the payload discarded.

All exported functions and methods in this package are safe for concurrent use
by multiple goroutines.
*/
package rdt

import (
	"bytes"
	"time"
)

const (
	// MaxPayloadSize is the largest payload that fits in one packet.
	// Larger data must be split by the caller.
	MaxPayloadSize = 1024

	// MaxNetPktSize is the largest datagram the protocol reads.
	MaxNetPktSize = SeqHdrSize + MaxPayloadSize

	// SeqHdrSize is the size of the sequence number prefix.
	SeqHdrSize = 1

	// RetransmitTimeout is the default time to wait for an ACK.
	RetransmitTimeout = 400 * time.Millisecond
)

// A seqbit is an alternating-bit sequence number.
type seqbit uint8

func (sn seqbit) flip() seqbit { return 1 - sn }

var ackPkts = [2][]byte{[]byte("ACK0"), []byte("ACK1")}

func ackPkt(sn seqbit) []byte { return ackPkts[sn] }

// parseAck reports whether data is an ACK and which bit it acknowledges.
func parseAck(data []byte) (seqbit, bool) {
	for sn, ack := range ackPkts {
		if bytes.Equal(data, ack) {
			return seqbit(sn), true
		}
	}
	return 0, false
}

// isDataPkt reports whether data looks like a data packet.
func isDataPkt(data []byte) bool {
	return len(data) >= SeqHdrSize && data[0] <= 1
}
