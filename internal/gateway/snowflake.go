package gateway

import (
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// Snowflake is Discord's opaque 64-bit identifier. It appears on the wire
// either as a JSON integer or a JSON string of digits; Snowflake accepts
// both and always re-emits integer form. Equality is bitwise.
type Snowflake uint64

// UnmarshalJSON accepts a u64 integer or a digit string; any other shape
// is an error.
func (s *Snowflake) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("gateway: snowflake: empty value")
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("gateway: snowflake: %w", err)
		}
		v, err := strconv.ParseUint(str, 10, 64)
		if err != nil {
			return fmt.Errorf("gateway: snowflake: not a digit string: %w", err)
		}
		*s = Snowflake(v)
		return nil
	}

	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("gateway: snowflake: not an integer or digit string: %w", err)
	}
	*s = Snowflake(v)
	return nil
}

// MarshalJSON always emits integer form.
func (s Snowflake) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint64(s))
}

func (s Snowflake) String() string {
	return strconv.FormatUint(uint64(s), 10)
}
