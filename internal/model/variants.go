package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Variant selections persist as a small delimited blob in the equipped-slot
// row: "v1;head:1;hair:0". The unversioned legacy form "head:1;hair:0" is
// still accepted on read. Malformed segments decode to nothing so defaults
// apply; decoding never fails.

const variantsV1Prefix = "v1"

// EncodeVariants serializes componentId -> selected index. Keys are sorted
// so the encoding is deterministic.
func EncodeVariants(selections map[string]int) string {
	if len(selections) == 0 {
		return ""
	}

	keys := make([]string, 0, len(selections))
	for k := range selections {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, variantsV1Prefix)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", k, selections[k]))
	}
	return strings.Join(parts, ";")
}

// DecodeVariants parses a stored blob. Unknown versions and malformed pairs
// are dropped silently.
func DecodeVariants(data string) map[string]int {
	result := make(map[string]int)

	data = strings.TrimSpace(data)
	if data == "" {
		return result
	}

	parts := strings.Split(data, ";")
	if len(parts) > 0 && parts[0] == variantsV1Prefix {
		parts = parts[1:]
	} else if len(parts) > 0 && strings.HasPrefix(parts[0], "v") && !strings.Contains(parts[0], ":") {
		// future version we don't understand
		return result
	}

	for _, part := range parts {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}
		componentID := strings.TrimSpace(kv[0])
		if componentID == "" {
			continue
		}
		index, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil {
			continue
		}
		result[componentID] = index
	}

	return result
}
