package queue

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// generateRUID allocates a tracking id: "room_" followed by 16 lowercase
// hex characters drawn from a CSPRNG.
func generateRUID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand.Read on a supported platform does not fail; a fallback
		// keeps generateRUID total without ever propagating an error through
		// submit's synchronous return path.
		panic(fmt.Sprintf("queue: crypto/rand unavailable: %v", err))
	}
	return "room_" + hex.EncodeToString(buf)
}
