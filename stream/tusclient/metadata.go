package tusclient

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
)

// Metadata holds the key/value pairs sent in the Upload-Metadata header
// during session creation. Values are base64-encoded on the wire.
type Metadata map[string]string

// Encode serializes the metadata as the Upload-Metadata header value:
// comma-separated "key base64(value)" pairs in deterministic key order.
// Empty values are dropped entirely rather than sent as empty strings.
func (m Metadata) Encode() string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		encoded := base64.StdEncoding.EncodeToString([]byte(m[k]))
		pairs = append(pairs, fmt.Sprintf("%s %s", k, encoded))
	}

	return strings.Join(pairs, ",")
}
