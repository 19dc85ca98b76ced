package credential

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors for credential validation and retrieval
var (
	ErrAccessKeyNotFound      = errors.New("access key not found")
	ErrInvalidAccessKeyLength = errors.New("access key must be at least 3 characters")
	ErrInvalidSecretKeyLength = errors.New("secret key must be at least 8 characters")
	ErrContainsReservedChars  = errors.New("access key contains reserved characters '=' or ','")
	ErrEmptyCredentials       = errors.New("access key and secret key cannot be empty")
)

const (
	// Minimum length for access key (following MinIO conventions)
	accessKeyMinLen = 3

	// Minimum length for secret key (following MinIO conventions)
	secretKeyMinLen = 8

	// Reserved characters that cannot be used in access keys
	reservedChars = "=,"
)

// Entry is a single AWS-style credential with optional signing scope
// defaults. Region and Service, when present, let a caller resolve a full
// signing identity from the access key alone.
type Entry struct {
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	Region    string `json:"region,omitempty"`
	Service   string `json:"service,omitempty"`
}

// Validate checks if the credential entry is valid.
func (e *Entry) Validate() error {
	if e.AccessKey == "" && e.SecretKey == "" {
		return ErrEmptyCredentials
	}

	if len(e.AccessKey) < accessKeyMinLen {
		return fmt.Errorf("%w: got %d characters", ErrInvalidAccessKeyLength, len(e.AccessKey))
	}

	if len(e.SecretKey) < secretKeyMinLen {
		return fmt.Errorf("%w: got %d characters", ErrInvalidSecretKeyLength, len(e.SecretKey))
	}

	if strings.ContainsAny(e.AccessKey, reservedChars) {
		return ErrContainsReservedChars
	}

	return nil
}

// Store defines the interface for credential storage and retrieval.
// Implementations can use different backends (file, memory, database, etc.)
type Store interface {
	// Get retrieves the entry for the given access key.
	// Returns the entry and true if found, a zero entry and false otherwise.
	Get(accessKey string) (entry Entry, found bool)

	// GetName returns a descriptive name of the store implementation.
	GetName() string
}
