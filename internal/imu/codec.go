package imu

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPayload is returned for anything that is not exactly three numeric axes.
var ErrInvalidPayload = errors.New("invalid payload")

// ParseTriple decodes a JSON payload into an AxisTriple. Both the array form
// sent by the phone ([x,y,z]) and an object form ({"x":..,"y":..,"z":..}) are accepted.
func ParseTriple(data []byte) (AxisTriple, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return AxisTriple{}, fmt.Errorf("%w: empty", ErrInvalidPayload)
	}

	if trimmed[0] == '{' {
		var obj map[string]*float64
		if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
			return AxisTriple{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		x, y, z := obj["x"], obj["y"], obj["z"]
		if len(obj) != 3 || x == nil || y == nil || z == nil {
			return AxisTriple{}, fmt.Errorf("%w: want keys x, y, z", ErrInvalidPayload)
		}
		return AxisTriple{X: *x, Y: *y, Z: *z}, nil
	}

	// null elements decode as nil and are rejected.
	var arr []*float64
	if err := json.Unmarshal([]byte(trimmed), &arr); err != nil {
		return AxisTriple{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	vals := make([]float64, 0, len(arr))
	for i, v := range arr {
		if v == nil {
			return AxisTriple{}, fmt.Errorf("%w: axis %d is null", ErrInvalidPayload, i)
		}
		vals = append(vals, *v)
	}
	return TripleFromSlice(vals)
}

// TripleFromSlice builds an AxisTriple from exactly three values.
func TripleFromSlice(v []float64) (AxisTriple, error) {
	if len(v) != 3 {
		return AxisTriple{}, fmt.Errorf("%w: want 3 axes, got %d", ErrInvalidPayload, len(v))
	}
	return AxisTriple{X: v[0], Y: v[1], Z: v[2]}, nil
}

// CSVHeader names the six columns of a combined sample line.
func CSVHeader() []string {
	return []string{"accel_x", "accel_y", "accel_z", "gyro_x", "gyro_y", "gyro_z"}
}

// Fields returns the six CSV fields, accel first.
func (s CombinedSample) Fields() []string {
	return []string{
		ftoa(s.Accel.X), ftoa(s.Accel.Y), ftoa(s.Accel.Z),
		ftoa(s.Gyro.X), ftoa(s.Gyro.Y), ftoa(s.Gyro.Z),
	}
}

// CSV returns the sample as accel.x,accel.y,accel.z,gyro.x,gyro.y,gyro.z.
func (s CombinedSample) CSV() string {
	return strings.Join(s.Fields(), ",")
}

// ParseCSV is the inverse of CSV. Only Accel and Gyro are populated.
func ParseCSV(line string) (CombinedSample, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 6 {
		return CombinedSample{}, fmt.Errorf("%w: want 6 fields, got %d", ErrInvalidPayload, len(parts))
	}

	vals := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return CombinedSample{}, fmt.Errorf("%w: field %d: %v", ErrInvalidPayload, i, err)
		}
		vals[i] = v
	}

	return CombinedSample{
		Accel: AxisTriple{X: vals[0], Y: vals[1], Z: vals[2]},
		Gyro:  AxisTriple{X: vals[3], Y: vals[4], Z: vals[5]},
	}, nil
}

// ftoa uses the shortest representation that parses back to the same float.
func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
