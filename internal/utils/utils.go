package utils

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateID generates a 20-char URL-safe identifier
func GenerateID() string {
	id, err := gonanoid.Generate(idAlphabet, 20)
	if err != nil {
		// gonanoid only fails when the system RNG does
		panic(err)
	}
	return id
}

// PtrValue returns the value of a pointer or a default value if nil
func PtrValue[T any](ptr *T, defaultValue T) T {
	if ptr == nil {
		return defaultValue
	}
	return *ptr
}

// Ptr returns a pointer to the given value
func Ptr[T any](v T) *T {
	return &v
}
