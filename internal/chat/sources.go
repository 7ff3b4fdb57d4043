package chat

import (
	"encoding/json"

	"github.com/mystuffai/mystuff/internal/log"
)

// normalizeSources resolves the two historical wire encodings of a
// message's sources field into one in-memory value:
//
//   - structured JSON (array or object) passes through as decoded
//   - a JSON string containing encoded JSON is decoded a second time
//   - absent, null or malformed input degrades to nil with a warning,
//     never an error — a bad sources payload must not block the transcript
func normalizeSources(raw json.RawMessage, logger log.Logger) any {
	if len(raw) == 0 {
		return nil
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		logger.Warn("malformed sources payload", "error", err)
		return nil
	}

	encoded, ok := value.(string)
	if !ok {
		return value // already structured (or null → nil)
	}

	var inner any
	if err := json.Unmarshal([]byte(encoded), &inner); err != nil {
		logger.Warn("malformed encoded sources string", "error", err)
		return nil
	}
	return inner
}
