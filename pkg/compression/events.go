package compression

import (
	"fmt"
	"math"
	"math/cmplx"

	"google.golang.org/protobuf/encoding/protowire"

	"zetawatch/pkg/sweep"
)

// Field numbers of the ZeroEvent message:
//
//	message ZeroEvent { int64 seq = 1; double t = 2; double magnitude = 3; bool verified = 4; }
//	message ZeroEvents { repeated ZeroEvent events = 1; }
const (
	fieldSeq       protowire.Number = 1
	fieldParameter protowire.Number = 2
	fieldMagnitude protowire.Number = 3
	fieldVerified  protowire.Number = 4

	fieldEvents protowire.Number = 1
)

func abs(z complex128) float64 { return cmplx.Abs(z) }

// MarshalEvent appends the protobuf encoding of ev to b.
func MarshalEvent(b []byte, ev sweep.ZeroEvent) []byte {
	b = protowire.AppendTag(b, fieldSeq, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(ev.Seq))
	b = protowire.AppendTag(b, fieldParameter, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(ev.Parameter))
	b = protowire.AppendTag(b, fieldMagnitude, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(ev.Magnitude))
	if ev.Verified {
		b = protowire.AppendTag(b, fieldVerified, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	return b
}

// UnmarshalEvent decodes one ZeroEvent message. Unknown fields are skipped.
func UnmarshalEvent(b []byte) (sweep.ZeroEvent, error) {
	var ev sweep.ZeroEvent
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return ev, fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == fieldSeq && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return ev, fmt.Errorf("%w: seq: %v", ErrCorrupt, protowire.ParseError(n))
			}
			ev.Seq = int(v)
			b = b[n:]
		case (num == fieldParameter || num == fieldMagnitude) && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return ev, fmt.Errorf("%w: field %d: %v", ErrCorrupt, num, protowire.ParseError(n))
			}
			if num == fieldParameter {
				ev.Parameter = math.Float64frombits(v)
			} else {
				ev.Magnitude = math.Float64frombits(v)
			}
			b = b[n:]
		case num == fieldVerified && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return ev, fmt.Errorf("%w: verified: %v", ErrCorrupt, protowire.ParseError(n))
			}
			ev.Verified = protowire.DecodeBool(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return ev, fmt.Errorf("%w: field %d: %v", ErrCorrupt, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return ev, nil
}

// MarshalEvents encodes a log as a ZeroEvents message.
func MarshalEvents(events []sweep.ZeroEvent) []byte {
	var b, msg []byte
	for _, ev := range events {
		msg = MarshalEvent(msg[:0], ev)
		b = protowire.AppendTag(b, fieldEvents, protowire.BytesType)
		b = protowire.AppendBytes(b, msg)
	}
	return b
}

// UnmarshalEvents decodes a ZeroEvents message.
func UnmarshalEvents(b []byte) ([]sweep.ZeroEvent, error) {
	var events []sweep.ZeroEvent
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
		}
		b = b[n:]
		if num != fieldEvents || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		msg, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
		}
		ev, err := UnmarshalEvent(msg)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
		b = b[n:]
	}
	return events, nil
}
