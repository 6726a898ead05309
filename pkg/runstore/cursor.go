package runstore

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// Cursors are opaque to callers: a base64 token encoding the keyset
// position (timestamp, scenario run ID) of the last row on a page.
// For a given (scope, cursor) pair the resulting page is stable, and
// consecutive pages never overlap.

func encodeCursor(timestamp int64, scenarioRunID string) string {
	raw := strconv.FormatInt(timestamp, 10) + "|" + scenarioRunID

	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (int64, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, "", fmt.Errorf("invalid cursor: %w", err)
	}

	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return 0, "", fmt.Errorf("invalid cursor format")
	}

	timestamp, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid cursor timestamp: %w", err)
	}

	return timestamp, id, nil
}
