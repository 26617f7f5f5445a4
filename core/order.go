package core

import "encoding/json"

// Apply shallow-merges recognized keys from a decoded JSON object over the
// order context. Unknown keys are ignored; values of the wrong type leave
// the existing field untouched.
func (o *OrderContext) Apply(overrides map[string]any) {
	if overrides == nil {
		return
	}
	if v, ok := asString(overrides["id"]); ok {
		o.ID = v
	}
	if v, ok := asString(overrides["sku"]); ok {
		o.SKU = v
	}
	if v, ok := asFloat(overrides["quantity"]); ok {
		o.Quantity = int(v)
	}
	if v, ok := asFloat(overrides["slaHours"]); ok {
		o.SLAHours = v
	}
	if v, ok := overrides["isVip"].(bool); ok {
		o.IsVIP = v
	}
	if v, ok := asFloat(overrides["penaltyCost"]); ok {
		o.PenaltyCost = v
	}
	if v, ok := asFloat(overrides["basePrice"]); ok {
		o.BasePrice = v
	}
}

// MergeJSON parses raw as a JSON object and applies it over the context.
// Malformed input is a no-op: the context keeps its current values.
func (o *OrderContext) MergeJSON(raw string) {
	if raw == "" {
		return
	}
	var overrides map[string]any
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
		return
	}
	o.Apply(overrides)
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// asFloat accepts the numeric types JSON and YAML decoding produce.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
