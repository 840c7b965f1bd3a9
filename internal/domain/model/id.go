package model

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// NewRecordID generates a fresh record identifier: a fixed prefix, the
// creation instant in base-36 nanoseconds, and a random suffix. IDs are not
// required to sort by creation order; they only need to be collision-free,
// and the random suffix keeps same-nanosecond generations distinct.
func NewRecordID() string {
	return fmt.Sprintf("pwd_%s_%s",
		strconv.FormatInt(time.Now().UnixNano(), 36),
		uuid.NewString()[:8],
	)
}
