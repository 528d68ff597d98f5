package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var ErrEmptyBody = errors.New("request body is empty")

// EncodeJSON encodes value for an HTTP response body
func EncodeJSON[T any](value T) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T response: %w", value, err)
	}
	return data, nil
}

// DecodeJSON decodes a request body holding exactly one JSON value of type T
func DecodeJSON[T any](data []byte) (T, error) {
	var result T
	if len(bytes.TrimSpace(data)) == 0 {
		return result, ErrEmptyBody
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&result); err != nil {
		return result, fmt.Errorf("malformed %T body: %w", result, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return result, fmt.Errorf("unexpected data after %T body", result)
	}
	return result, nil
}
