package youtube

import (
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"
)

// Values is the typed view of the form's values.
type Values struct {
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Channel     string    `json:"channel"`
	Social      Social    `json:"social"`
	PhoneNumber []string  `json:"phoneNumber"`
	PhNumbers   []Phone   `json:"phNumbers"`
	Age         float64   `json:"age"`
	DOB         time.Time `json:"dob"`
}

// Social holds the optional social handles.
type Social struct {
	Twitter  string `json:"twitter"`
	Facebook string `json:"facebook"`
}

// Phone is one entry of the phone number list.
type Phone struct {
	Number string `json:"number"`
}

// DecodeValues converts a values snapshot into Values.
func DecodeValues(snapshot map[string]any) (Values, error) {
	raw, err := json.Marshal(dropNaN(snapshot))
	if err != nil {
		return Values{}, fmt.Errorf("youtube: encode values: %w", err)
	}
	var v Values
	if err := json.Unmarshal(raw, &v); err != nil {
		return Values{}, fmt.Errorf("youtube: decode values: %w", err)
	}
	return v, nil
}

// dropNaN replaces NaN numbers, left behind by unparsable input, with nil so
// the snapshot can be encoded.
func dropNaN(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) {
			return nil
		}
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = dropNaN(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = dropNaN(item)
		}
		return out
	}
	return v
}
