// Package symbol converts entity identifiers to and from the payload
// printed in data-matrix labels. The payload is self-contained: the id is
// recoverable from the symbol alone, with no store lookup.
//
// Payload layout: a fixed "HC1" version prefix, 26 characters of Crockford
// base32 covering the 128 id bits, and a 4-character check suffix derived
// from the CRC-32 of the raw id bytes. The alphabet omits I, L, O and U so
// scanned text survives human transcription.
package symbol

import (
	"encoding/base32"
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/google/uuid"
)

const (
	// Prefix versions the payload format. Bump on any layout change.
	Prefix = "HC1"

	bodyLen  = 26
	checkLen = 4

	// PayloadLen is the total length of every valid payload.
	PayloadLen = len(Prefix) + bodyLen + checkLen

	alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
)

var encoding = base32.NewEncoding(alphabet).WithPadding(base32.NoPadding)

// DecodeError reports a malformed or corrupted payload. Decoding never
// panics; every failure mode surfaces as this type.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "cannot decode symbol payload: " + e.Reason
}

// Encode maps an identifier to its label payload. The mapping is
// deterministic and injective: distinct ids always produce distinct
// payloads.
func Encode(id uuid.UUID) string {
	var b strings.Builder
	b.Grow(PayloadLen)
	b.WriteString(Prefix)
	b.WriteString(encoding.EncodeToString(id[:]))
	b.WriteString(checkChars(id))
	return b.String()
}

// Decode is the inverse of Encode. Input is normalized first (lowercase and
// the confusable glyphs I, L and O are folded), so hand-typed payloads decode
// as long as they are otherwise intact.
func Decode(payload string) (uuid.UUID, error) {
	p, err := normalize(payload)
	if err != nil {
		return uuid.Nil, err
	}
	if !strings.HasPrefix(p, Prefix) {
		return uuid.Nil, &DecodeError{Reason: fmt.Sprintf("missing %q prefix", Prefix)}
	}
	body := p[len(Prefix) : len(Prefix)+bodyLen]
	check := p[len(Prefix)+bodyLen:]

	raw, err := encoding.DecodeString(body)
	if err != nil || len(raw) != 16 {
		return uuid.Nil, &DecodeError{Reason: "body is not valid base32"}
	}
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.Nil, &DecodeError{Reason: "body does not hold an id"}
	}
	// The last base32 character carries three unused bits. Reject encodings
	// that set them so each id has exactly one accepted payload.
	if encoding.EncodeToString(id[:]) != body {
		return uuid.Nil, &DecodeError{Reason: "body is not in canonical form"}
	}
	if checkChars(id) != check {
		return uuid.Nil, &DecodeError{Reason: "check characters do not match"}
	}
	return id, nil
}

// checkChars derives the 4-character check suffix: the low 20 bits of the
// CRC-32 of the id bytes, base32 encoded most-significant group first.
func checkChars(id uuid.UUID) string {
	sum := crc32.ChecksumIEEE(id[:]) & 0xFFFFF
	out := make([]byte, checkLen)
	for i := checkLen - 1; i >= 0; i-- {
		out[i] = alphabet[sum&0x1F]
		sum >>= 5
	}
	return string(out)
}

// normalize uppercases the payload and folds the glyphs the alphabet
// excludes. Length and character-set errors are caught here so the caller
// gets one clear reason instead of a base32 parse failure.
func normalize(payload string) (string, error) {
	if len(payload) != PayloadLen {
		return "", &DecodeError{Reason: fmt.Sprintf("length %d, want %d", len(payload), PayloadLen)}
	}
	out := make([]byte, 0, PayloadLen)
	for i := 0; i < len(payload); i++ {
		c := payload[i]
		if 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		switch c {
		case 'I', 'L':
			c = '1'
		case 'O':
			c = '0'
		case 'U':
			return "", &DecodeError{Reason: fmt.Sprintf("character %q at position %d is not in the payload alphabet", payload[i], i)}
		}
		if !(('0' <= c && c <= '9') || ('A' <= c && c <= 'Z')) {
			return "", &DecodeError{Reason: fmt.Sprintf("character %q at position %d is not in the payload alphabet", payload[i], i)}
		}
		out = append(out, c)
	}
	return string(out), nil
}
