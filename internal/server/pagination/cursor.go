// Package pagination encodes keyset positions for the newest-first news listing.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const cursorSeparator = ","

// EncodeCursor creates an opaque cursor string from a stored pub_date and ID.
func EncodeCursor(pubDate string, id int64) string {
	key := fmt.Sprintf("%s%s%d", pubDate, cursorSeparator, id)
	return base64.URLEncoding.EncodeToString([]byte(key))
}

// DecodeCursor parses the opaque cursor string back into pub_date and ID.
func DecodeCursor(encodedCursor string) (string, int64, error) {
	decodedBytes, err := base64.URLEncoding.DecodeString(encodedCursor)
	if err != nil {
		return "", 0, fmt.Errorf("invalid cursor encoding: %w", err)
	}

	// The id follows the last separator; unrepaired dates may contain commas.
	key := string(decodedBytes)
	sep := strings.LastIndex(key, cursorSeparator)
	if sep < 0 {
		return "", 0, fmt.Errorf("invalid cursor format")
	}
	pubDate, idStr := key[:sep], key[sep+1:]
	if pubDate == "" {
		return "", 0, fmt.Errorf("empty pub_date in cursor")
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid id in cursor: %w", err)
	}

	return pubDate, id, nil
}
