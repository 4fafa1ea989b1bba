package utils

import (
	"encoding/json"
)

// MarshalJSON marshals data to JSON
func MarshalJSON(data interface{}) ([]byte, error) {
	return json.Marshal(data)
}

// UnmarshalJSON unmarshals JSON data
func UnmarshalJSON(data []byte, target interface{}) error {
	return json.Unmarshal(data, target)
}
