package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSON is the free-form metadata attached to ledger transactions,
// stored as a jsonb column.
type JSON map[string]interface{}

// Value serializes the map for the database driver.
func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

// Scan restores the map from a jsonb column value.
func (j *JSON) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, &j)
}

// MarshalJSON renders a nil map as null rather than an empty object.
func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return json.Marshal(j)
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return errors.New("nil pointer")
	}
	return json.Unmarshal(data, &j)
}
