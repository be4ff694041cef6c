// Package xid generates prefixed entity ids: prod- for products, tx- for
// transactions, exp- for expenses. The prefix makes an id self-describing
// in logs and invoices without a lookup.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New returns an id of the form prefix-<unixnano>-<8 random bytes hex>.
// The timestamp keeps ids roughly sortable by creation; the random tail
// makes collisions within the same nanosecond a non-issue. If the system
// randomness source fails, the timestamp alone is used.
func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}
