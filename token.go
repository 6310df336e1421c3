// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package seam

// Token is a reserved byte marking a structural boundary in the stream:
// collection start/end, element separators, the enum marker, and the
// unit/some markers used by options.
//
// Token bytes are legible ASCII where possible so that encoded data can be
// eyeballed in a hex dump. Separators and end markers only ever appear at
// element boundaries, where the decoder knows to look for them.
type Token byte

// The token vocabulary. This is a closed set: the codec never emits any
// other structural byte.
const (
	// TokenUnit encodes the unit value and the None case of an option.
	TokenUnit Token = 0x05 // ENQ
	// TokenSome precedes the payload of a Some option value. It also marks
	// a non-empty collection: inside sequence and map framing it sits
	// between the start token and the first element, so the byte after a
	// start token is always a reserved one and a first element can never
	// be mistaken for the end token.
	TokenSome Token = 0x2B // '+'
	// TokenSeqStart opens a sequence.
	TokenSeqStart Token = 0x5B // '['
	// TokenSeqSep separates sequence elements. It is written before every
	// element except the first.
	TokenSeqSep Token = 0x2C // ','
	// TokenSeqEnd closes a sequence.
	TokenSeqEnd Token = 0x5D // ']'
	// TokenMapStart opens a map or struct.
	TokenMapStart Token = 0x7B // '{'
	// TokenMapKeySep separates a map key from its value.
	TokenMapKeySep Token = 0x3A // ':'
	// TokenMapSep separates map entries. It is written before every entry
	// except the first.
	TokenMapSep Token = 0x3B // ';'
	// TokenMapEnd closes a map or struct.
	TokenMapEnd Token = 0x7D // '}'
	// TokenEnum precedes the uint32 ordinal of a tagged union variant.
	TokenEnum Token = 0x40 // '@'
)

// String implements fmt.Stringer.
func (t Token) String() string {
	switch t {
	case TokenUnit:
		return "Unit"
	case TokenSome:
		return "Some"
	case TokenSeqStart:
		return "SeqStart"
	case TokenSeqSep:
		return "SeqSep"
	case TokenSeqEnd:
		return "SeqEnd"
	case TokenMapStart:
		return "MapStart"
	case TokenMapKeySep:
		return "MapKeySep"
	case TokenMapSep:
		return "MapSep"
	case TokenMapEnd:
		return "MapEnd"
	case TokenEnum:
		return "Enum"
	}
	return "Invalid"
}

// TraceFunc receives token boundary events during encoding or decoding. The
// offset is the byte position of the token within the stream. Tracing is a
// debugging aid; the codec behaves identically with or without it.
type TraceFunc func(offset int, tok Token)
