package marketplace

import "github.com/erp/ordersync/internal/domain/integration"

// NormalizeLists rewrites every repeatable key so its value is a list,
// recursing through nested trees and lists.
func NormalizeLists(p integration.Payload, repeatable map[string]bool) integration.Payload {
	return normalizeValue(map[string]any(p), repeatable).(map[string]any)
}

func normalizeValue(v any, repeatable map[string]bool) any {
	switch val := v.(type) {
	case integration.Payload:
		return normalizeValue(map[string]any(val), repeatable)
	case map[string]any:
		for k, child := range val {
			child = normalizeValue(child, repeatable)
			if _, isList := child.([]any); repeatable[k] && !isList && child != nil {
				child = []any{child}
			}
			val[k] = child
		}
		return val
	case []any:
		for i := range val {
			val[i] = normalizeValue(val[i], repeatable)
		}
		return val
	default:
		return v
	}
}

func keySet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// PayloadDecoder turns pushed notification bodies into payloads shaped like
// API responses, so handlers read both the same way.
type PayloadDecoder struct {
	repeatable map[string]bool
}

// NewPayloadDecoder uses DefaultRepeatableKeys when keys is empty
func NewPayloadDecoder(keys []string) *PayloadDecoder {
	if len(keys) == 0 {
		keys = DefaultRepeatableKeys
	}
	return &PayloadDecoder{repeatable: keySet(keys)}
}

// Decode parses a JSON object and normalises its repeatable keys
func (d *PayloadDecoder) Decode(data []byte) (integration.Payload, error) {
	payload, err := integration.PayloadFromJSON(data)
	if err != nil {
		return nil, err
	}
	return NormalizeLists(payload, d.repeatable), nil
}
