package utils

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionCode(t *testing.T) {
	code, err := NewSessionCode()
	require.NoError(t, err)
	assert.Len(t, code, CodeLength)
	assert.True(t, IsValidCode(code))
	assert.NotContains(t, code, "0")
	assert.NotContains(t, code, "O")
}

func TestIsValidCode(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"AB3DEF9Z", true},
		{"ab3d-ef9z", true},
		{"AB3D EF9Z", true},
		{"short", false},
		{"TOOLONG99", false},
		{"AB3D_EF9Z", false},
		{"AB0DEF9Z", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidCode(tt.code))
		})
	}
}

func TestFormatCode(t *testing.T) {
	assert.Equal(t, "AB3D-EF9Z", FormatCode("ab3def9z"))
	assert.Equal(t, "AB3DEF9Z", NormalizeCode(FormatCode("AB3DEF9Z")))
	assert.Equal(t, "SHORT", FormatCode("short"))
}

func TestDecodeJSON(t *testing.T) {
	v, err := DecodeJSON[map[string]int]([]byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, 1, v["a"])

	_, err = DecodeJSON[map[string]int]([]byte("  \n"))
	assert.ErrorIs(t, err, ErrEmptyBody)

	_, err = DecodeJSON[map[string]int]([]byte(`{"a":1} {"b":2}`))
	assert.ErrorContains(t, err, "unexpected data")

	_, err = DecodeJSON[map[string]int]([]byte(`{"a":`))
	assert.ErrorContains(t, err, "malformed")
}

func TestEncodeJSON(t *testing.T) {
	data, err := EncodeJSON(map[string]string{"kind": "io"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"io"}`, string(data))

	_, err = EncodeJSON(make(chan int))
	assert.Error(t, err)
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "0 B", FormatFileSize(0))
	assert.Equal(t, "1023 B", FormatFileSize(1023))
	assert.Equal(t, "1.0 KB", FormatFileSize(1024))
	assert.Equal(t, "1.5 MB", FormatFileSize(3*512*1024))
	assert.Equal(t, "2.0 GB", FormatFileSize(2<<30))
}

func TestAskForCode(t *testing.T) {
	var out bytes.Buffer
	code, err := AskForCode(context.Background(), strings.NewReader("nope\nab3d-ef9z\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "AB3DEF9Z", code)
	assert.Contains(t, out.String(), "Invalid code")
}

func TestAskForCodeEOF(t *testing.T) {
	_, err := AskForCode(context.Background(), strings.NewReader(""), io.Discard)
	assert.ErrorIs(t, err, io.EOF)
}
