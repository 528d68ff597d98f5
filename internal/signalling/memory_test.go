package signalling

import (
	"context"
	"testing"
	"time"

	"onlycut/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryServer_OfferAnswer(t *testing.T) {
	m := NewMemoryServer()
	ctx := context.Background()

	code, err := m.CreateSession(ctx, "offer-sdp")
	require.NoError(t, err)
	assert.True(t, utils.IsValidCode(code))

	offer, err := m.GetOffer(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, "offer-sdp", offer)

	answerCh := make(chan string, 1)
	go func() {
		answer, err := m.WaitForAnswer(ctx, code)
		if err == nil {
			answerCh <- answer
		}
	}()

	require.NoError(t, m.UpdateAnswer(ctx, code, "answer-sdp"))

	select {
	case answer := <-answerCh:
		assert.Equal(t, "answer-sdp", answer)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForAnswer did not return")
	}
}

func TestMemoryServer_AnswerOnlyOnce(t *testing.T) {
	m := NewMemoryServer()
	ctx := context.Background()

	code, err := m.CreateSession(ctx, "offer")
	require.NoError(t, err)
	require.NoError(t, m.UpdateAnswer(ctx, code, "first"))
	assert.Error(t, m.UpdateAnswer(ctx, code, "second"))

	answer, err := m.WaitForAnswer(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, "first", answer)
}

func TestMemoryServer_UnknownSession(t *testing.T) {
	m := NewMemoryServer()
	ctx := context.Background()

	_, err := m.GetOffer(ctx, "NOPE1234")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.UpdateAnswer(ctx, "NOPE1234", "a"), ErrSessionNotFound)
	_, err = m.WaitForAnswer(ctx, "NOPE1234")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryServer_WaitHonorsContext(t *testing.T) {
	m := NewMemoryServer()
	code, err := m.CreateSession(context.Background(), "offer")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.WaitForAnswer(ctx, code)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryServer_DeleteSession(t *testing.T) {
	m := NewMemoryServer()
	ctx := context.Background()

	code, err := m.CreateSession(ctx, "offer")
	require.NoError(t, err)
	require.NoError(t, m.DeleteSession(ctx, code))

	_, err = m.GetOffer(ctx, code)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
