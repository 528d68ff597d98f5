package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlMessageRoundTrip(t *testing.T) {
	data, err := SerializeControl("stream-started", map[string]any{"contentLength": 42})
	require.NoError(t, err)
	assert.JSONEq(t, `{"topic":"stream-started","payload":{"contentLength":42}}`, string(data))

	msg, err := DeserializeControl(data)
	require.NoError(t, err)
	assert.Equal(t, "stream-started", msg.Topic)

	var payload struct {
		ContentLength int64 `json:"contentLength"`
	}
	require.NoError(t, msg.Decode(&payload))
	assert.Equal(t, int64(42), payload.ContentLength)
}

func TestDeserializeControlErrors(t *testing.T) {
	_, err := DeserializeControl([]byte("not json"))
	assert.Error(t, err)

	_, err = DeserializeControl([]byte(`{"payload":{}}`))
	assert.ErrorContains(t, err, "no topic")

	msg, err := DeserializeControl([]byte(`{"topic":"stream-finished"}`))
	require.NoError(t, err)
	var v map[string]any
	assert.ErrorContains(t, msg.Decode(&v), "no payload")
}
