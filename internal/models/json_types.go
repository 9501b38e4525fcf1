// Package models defines the domain entities shared across the scanner pipeline
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrInvalidJSON indicates a database value that could not be decoded as JSON
	ErrInvalidJSON = errors.New("invalid JSON value")
)

// StringArray represents a slice that can be stored as JSON in a database column
type StringArray []string

// Scan implements the sql.Scanner interface for database deserialization
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = make(StringArray, 0)
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("%w: cannot scan type %T into StringArray", ErrInvalidJSON, value)
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		*a = make(StringArray, 0)
		return nil
	}
	return json.Unmarshal(bytes, a)
}

// Value implements the driver.Valuer interface for database serialization
func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	bytes, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("error marshaling StringArray: %w", err)
	}
	return string(bytes), nil
}

// FindingList represents a slice of findings stored as JSON in a database column
type FindingList []Finding

// Scan implements the sql.Scanner interface for database deserialization
func (l *FindingList) Scan(value interface{}) error {
	if value == nil {
		*l = make(FindingList, 0)
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("%w: cannot scan type %T into FindingList", ErrInvalidJSON, value)
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		*l = make(FindingList, 0)
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// Value implements the driver.Valuer interface for database serialization
func (l FindingList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	bytes, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("error marshaling FindingList: %w", err)
	}
	return string(bytes), nil
}
