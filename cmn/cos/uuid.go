// Package cos provides low-level helpers shared across every StreamLab
// package.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"fmt"
	ratomic "sync/atomic"

	"github.com/teris-io/shortid"
)

// Alphabet for generating short IDs, similar to shortid's own default but
// kept local so a collision can be tie-broken deterministically (see
// GenTie below). NOTE: len(uuidABC) > 0x3f - GenTie relies on that.
const uuidABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

const (
	// LenShortID is the nominal length of a generated ID, per
	// https://github.com/teris-io/shortid#id-length
	LenShortID = 9
	tooLongID  = 32
)

var (
	sid  *shortid.Shortid
	rtie uint32 // mutated only via genTieByte, see below
)

// InitIDGen must be called before any GenUUID call (the pool calls it
// from an init-once guard before drawing its first pipeline ID).
func InitIDGen(seed uint64) {
	sid = shortid.MustNew(4 /*worker*/, uuidABC, seed)
}

// GenUUID produces a short, URL-safe, collision-resistant ID used for
// pipeline instance IDs and pool submission IDs. The first/last byte is
// tie-broken if it would otherwise look like a stray separator, so IDs
// are always safe to embed in log lines and file names unescaped.
func GenUUID() string {
	uuid := sid.MustGenerate()
	var h, t string
	if !isAlpha(uuid[0]) {
		h = string(rune('A' + int(genTieByte())%26))
	}
	if c := uuid[len(uuid)-1]; c == '-' || c == '_' {
		t = string(rune('a' + int(genTieByte())%26))
	}
	return h + uuid + t
}

func genTieByte() uint32 {
	return ratomic.AddUint32(&rtie, 1)
}

// GenTie returns a 3-character tie-breaker, used when two independently
// generated UUIDs collide (practically never, but cheap to guard against).
func GenTie() string {
	tie := genTieByte()
	b0 := uuidABC[tie&0x3f]
	b1 := uuidABC[(^tie)&0x3f]
	b2 := uuidABC[(tie>>2)&0x3f]
	return string([]byte{b0, b1, b2})
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// IsAlphaNice reports whether s is a well-formed ID: letters, digits,
// dashes, and underscores only, bounded length, not starting/ending on a
// separator.
func IsAlphaNice(s string) bool {
	l := len(s)
	if l == 0 || l > tooLongID {
		return false
	}
	for i := 0; i < l; i++ {
		c := s[i]
		if isAlpha(c) || (c >= '0' && c <= '9') {
			continue
		}
		if c != '-' && c != '_' {
			return false
		}
		if i == 0 || i == l-1 {
			return false
		}
	}
	return true
}

func IsValidUUID(uuid string) bool {
	return len(uuid) >= LenShortID && IsAlphaNice(uuid)
}

func checkAlphaNice(s, tag string) error {
	if !IsAlphaNice(s) {
		return fmt.Errorf("%s %q is invalid: must contain only letters, digits, dashes, underscores", tag, s)
	}
	return nil
}

// ValidateID validates a user-declared node id from the graph document.
func ValidateID(id string) error { return checkAlphaNice(id, "node id") }
