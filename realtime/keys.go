package realtime

import (
	"fmt"

	"github.com/google/uuid"
)

// newPushKey returns a UUIDv7 string. V7 keys sort by creation time, so
// key order is insertion order, like push IDs in hosted realtime databases.
func newPushKey() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating push key: %w", err)
	}
	return id.String(), nil
}
