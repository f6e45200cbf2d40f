package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// VariantAttributes is the typed metadata stored with a product variant.
// Extra holds free-form scalar attributes (size, colour, ...).
type VariantAttributes struct {
	Brand string         `json:"brand,omitempty"`
	Extra map[string]any `json:"extra,omitempty"`
}

// Validate rejects empty keys and non-scalar extra values.
func (a VariantAttributes) Validate() error {
	for key, value := range a.Extra {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("variant attributes: empty key")
		}
		switch value.(type) {
		case string, bool, float64, float32, int, int32, int64, json.Number:
		default:
			return fmt.Errorf("variant attributes: %q must be a scalar, got %T", key, value)
		}
	}
	return nil
}

// String returns the extra attribute for key when it is a string.
func (a VariantAttributes) String(key string) (string, bool) {
	v, ok := a.Extra[key].(string)
	return v, ok
}

// Value implements driver.Valuer.
func (a VariantAttributes) Value() (driver.Value, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (a *VariantAttributes) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*a = VariantAttributes{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("variant attributes: unsupported source %T", value)
	}
	if len(raw) == 0 {
		*a = VariantAttributes{}
		return nil
	}

	var parsed VariantAttributes
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("variant attributes: %w", err)
	}
	if err := parsed.Validate(); err != nil {
		return err
	}
	*a = parsed
	return nil
}
