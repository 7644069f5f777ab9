package types

import (
	"database/sql/driver"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// ID is a UUID wrapper for type safety
type ID string

// NewID generates a new random ID
func NewID() ID {
	return ID(uuid.New().String())
}

// ParseID parses a string into an ID
func ParseID(s string) (ID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid ID: %w", err)
	}
	return ID(s), nil
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsZero checks if the ID is empty
func (id ID) IsZero() bool {
	return id == ""
}

// Value implements driver.Valuer for database serialization
func (id ID) Value() (driver.Value, error) {
	if id.IsZero() {
		return nil, nil
	}
	return string(id), nil
}

// Scan implements sql.Scanner for database deserialization
func (id *ID) Scan(value interface{}) error {
	if value == nil {
		*id = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*id = ID(v)
	case []byte:
		*id = ID(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ID", value)
	}
	return nil
}

const reportIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// ReportIDPrefix is prepended to every citizen report identifier.
const ReportIDPrefix = "RG-"

// NewReportID generates a citizen-facing report identifier: the fixed prefix
// followed by 8 random lowercase alphanumerics (e.g. "RG-k3x09qa2").
func NewReportID() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = reportIDAlphabet[rand.Intn(len(reportIDAlphabet))]
	}
	return ReportIDPrefix + string(b)
}

// IsReportID reports whether s has the report identifier shape.
func IsReportID(s string) bool {
	if len(s) != len(ReportIDPrefix)+8 || s[:len(ReportIDPrefix)] != ReportIDPrefix {
		return false
	}
	for i := len(ReportIDPrefix); i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
