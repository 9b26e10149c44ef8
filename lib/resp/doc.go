// Package resp implements the wire protocol of wirekv: a subset of the
// RESP framing format. A frame is one self-describing protocol unit,
// tagged by its first byte:
//
//   - '+' simple string, CRLF terminated
//   - '-' error string, CRLF terminated
//   - ':' signed 64-bit integer in decimal ASCII, CRLF terminated
//   - '$' bulk byte string, length prefixed ("$-1\r\n" encodes Null)
//   - '*' array (part of the grammar but not implemented)
//
// Decoding is split into two passes so callers can avoid allocating
// frames for data that is not fully buffered yet: Check determines
// whether a buffer's prefix holds a complete frame and how many bytes it
// occupies, Parse performs the actual decode. Encode writes the
// byte-exact wire form of a frame to a writer.
package resp
