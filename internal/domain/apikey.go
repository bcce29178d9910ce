package domain

import (
	"fmt"
	"time"
)

// KeyType is the environment an API key is issued for.
type KeyType string

const (
	KeyTypeDev  KeyType = "dev"
	KeyTypeProd KeyType = "prod"
)

// ParseKeyType parses a key type. An empty value defaults to dev.
func ParseKeyType(s string) (KeyType, error) {
	switch KeyType(s) {
	case "", KeyTypeDev:
		return KeyTypeDev, nil
	case KeyTypeProd:
		return KeyTypeProd, nil
	}
	return "", fmt.Errorf("%w: unknown key type %q", ErrInvalidInput, s)
}

// KeyRecord is a persisted API key.
// Field names follow the api_keys collection.
type KeyRecord struct {
	ID        string    `json:"id" db:"id" bson:"id"`
	Name      string    `json:"name" db:"name" bson:"name"`
	Type      KeyType   `json:"type" db:"type" bson:"type"`
	Secret    string    `json:"key" db:"key" bson:"key"`
	Usage     int64     `json:"usage" db:"usage" bson:"usage"`
	CreatedAt time.Time `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" bson:"updated_at"`
}

// Clone returns a copy of the record.
func (k *KeyRecord) Clone() *KeyRecord {
	if k == nil {
		return nil
	}
	c := *k
	return &c
}

// NewKey holds the caller-supplied fields of a key to insert.
// The store assigns the ID, timestamps and a zero usage count.
type NewKey struct {
	Name   string
	Type   KeyType
	Secret string
}

// KeyUpdate is a partial update. Nil fields are left untouched.
type KeyUpdate struct {
	Name *string
}

// CreateKeyRequest is the request body for creating an API key.
type CreateKeyRequest struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// UpdateKeyRequest is the request body for renaming an API key.
type UpdateKeyRequest struct {
	Name *string `json:"name,omitempty"`
}

// ValidateKeyRequest is the request body for the validation endpoint.
type ValidateKeyRequest struct {
	Key string `json:"key"`
}
