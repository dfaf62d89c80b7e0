package scenario

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// DecodeLenient decodes hand-typed payloads into v, trying in order:
// strict JSON, repaired JSON (unquoted keys, trailing commas, single quotes),
// then Hjson.
func DecodeLenient(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("empty payload")
	}

	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	if repaired, err := jsonrepair.RepairJSON(raw); err == nil {
		if err := json.Unmarshal([]byte(repaired), v); err == nil {
			return nil
		}
	}

	if err := decodeHJSON([]byte(raw), v); err == nil {
		return nil
	}

	return fmt.Errorf("payload is neither JSON nor Hjson")
}

// decodeHJSON goes through a generic value so json struct tags and
// TextUnmarshalers apply exactly as for plain JSON.
func decodeHJSON(data []byte, v any) error {
	var generic any
	if err := hjson.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("hjson: %w", err)
	}
	b, err := json.Marshal(generic)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
