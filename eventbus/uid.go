// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/include/libnetworkd/Event.hpp
//

package eventbus

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/google/uuid"
)

// UIDSize is the wire length of an [Event]'s UID: a framing artifact carried
// over from the original 1-counter-byte-plus-timeval layout, not a
// uniqueness guarantee (see NewUID).
const UIDSize = 25

// UID identifies an [Event] for parent-child correlation.
type UID [UIDSize]byte

var processSalt = uuid.New()
var counter uint32

// NewUID returns a fresh [UID]. The original implementation combined a
// single incrementing byte with a coarse timestamp, which spec.md's design
// notes call out as insufficient under burst; this widens the counter to 32
// bits and mixes in a 16-byte per-process random salt, while keeping the
// 25-byte wire size.
func NewUID() UID {
	var u UID
	n := atomic.AddUint32(&counter, 1)
	binary.BigEndian.PutUint32(u[0:4], n)
	salt, _ := processSalt.MarshalBinary()
	copy(u[4:20], salt)
	return u
}
