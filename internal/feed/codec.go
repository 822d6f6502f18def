package feed

import (
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"time"

	"fx-arb-watch/internal/market"
)

const (
	// RecordSize is the fixed length of one wire quote record.
	RecordSize = 32
	// MaxQuotesPerDatagram bounds how many records a provider packs into one
	// datagram.
	MaxQuotesPerDatagram = 50
	// MaxDatagramSize is the largest well-formed provider datagram.
	MaxDatagramSize = RecordSize * MaxQuotesPerDatagram

	microsPerNano = int64(time.Microsecond)
)

// DecodeBatch converts a provider datagram into quotes, in wire order.
// Record layout: bytes 0-2 and 3-5 are ASCII currency codes, 6-9 an IEEE-754
// float32 price (little-endian), 10-17 a big-endian uint64 of microseconds
// since the Unix epoch; bytes 18-31 are reserved. Trailing bytes shorter than
// a full record are ignored.
func DecodeBatch(buf []byte) ([]market.Quote, error) {
	quotes := make([]market.Quote, 0, len(buf)/RecordSize)

	for off := 0; off+RecordSize <= len(buf); off += RecordSize {
		record := buf[off : off+RecordSize]

		base, err := market.ParseCurrency(string(record[0:3]))
		if err != nil {
			return nil, fmt.Errorf("record at offset %d: %w", off, err)
		}
		term, err := market.ParseCurrency(string(record[3:6]))
		if err != nil {
			return nil, fmt.Errorf("record at offset %d: %w", off, err)
		}

		price := math.Float32frombits(binary.LittleEndian.Uint32(record[6:10]))
		micros := binary.BigEndian.Uint64(record[10:18])

		quotes = append(quotes, market.Quote{
			Cross: market.Cross{Base: base, Term: term},
			Price: float64(price),
			Time:  time.Unix(0, int64(micros)*microsPerNano).UTC(),
		})
	}

	return quotes, nil
}

// EncodeSubscription serializes the subscriber's reachable address for the
// provider handshake: 4 bytes IPv4 followed by a big-endian uint16 port.
func EncodeSubscription(ip net.IP, port int) ([]byte, error) {
	ip4 := ip.To4()
	if ip4 == nil {
		return nil, fmt.Errorf("subscription address must be IPv4, got %s", ip)
	}
	if port <= 0 || port > math.MaxUint16 {
		return nil, fmt.Errorf("subscription port out of range: %d", port)
	}

	payload := make([]byte, 6)
	copy(payload, ip4)
	binary.BigEndian.PutUint16(payload[4:], uint16(port))
	return payload, nil
}

// EncodeRecord serializes a quote into the 32-byte wire layout. Used by the
// replay tooling and tests; the subscriber itself only decodes.
func EncodeRecord(q market.Quote) []byte {
	record := make([]byte, RecordSize)
	copy(record[0:3], q.Cross.Base.String())
	copy(record[3:6], q.Cross.Term.String())
	binary.LittleEndian.PutUint32(record[6:10], math.Float32bits(float32(q.Price)))
	binary.BigEndian.PutUint64(record[10:18], uint64(q.Time.UnixMicro()))
	return record
}
