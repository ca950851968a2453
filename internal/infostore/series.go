package infostore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Series is a float slice whose JSON form keeps NaN and infinities as the
// strings "NaN", "Infinity" and "-Infinity".
type Series []float64

// Clone returns a copy of s.
func (s Series) Clone() Series {
	if s == nil {
		return nil
	}
	out := make(Series, len(s))
	copy(out, s)
	return out
}

func (s Series) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	buf := make([]byte, 0, 2+len(s)*12)
	buf = append(buf, '[')
	for i, v := range s {
		if i > 0 {
			buf = append(buf, ',')
		}
		switch {
		case math.IsNaN(v):
			buf = append(buf, `"NaN"`...)
		case math.IsInf(v, 1):
			buf = append(buf, `"Infinity"`...)
		case math.IsInf(v, -1):
			buf = append(buf, `"-Infinity"`...)
		default:
			buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
		}
	}
	return append(buf, ']'), nil
}

func (s *Series) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Series, len(raw))
	for i, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '"' {
			var word string
			if err := json.Unmarshal(item, &word); err != nil {
				return err
			}
			switch word {
			case "NaN":
				out[i] = math.NaN()
			case "Infinity":
				out[i] = math.Inf(1)
			case "-Infinity":
				out[i] = math.Inf(-1)
			default:
				return fmt.Errorf("series element %d: unexpected string %q", i, word)
			}
			continue
		}
		v, err := strconv.ParseFloat(string(item), 64)
		if err != nil {
			return fmt.Errorf("series element %d: %w", i, err)
		}
		out[i] = v
	}
	*s = out
	return nil
}
