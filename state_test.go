package connect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpaqueStateCodecRoundTrip(t *testing.T) {
	codec := OpaqueStateCodec{}

	for _, platform := range Platforms() {
		state := &CallbackState{
			UserID:   "user-123",
			Platform: platform,
		}

		encoded, err := codec.Encode(state)
		require.NoError(t, err, platform)

		decoded, err := codec.Decode(encoded)
		require.NoError(t, err, platform)

		assert.Equal(t, state.UserID, decoded.UserID)
		assert.Equal(t, state.Platform, decoded.Platform)
	}
}

func TestOpaqueStateCodecRejectsIncomplete(t *testing.T) {
	codec := OpaqueStateCodec{}

	_, err := codec.Encode(nil)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = codec.Encode(&CallbackState{Platform: PlatformSpotify})
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = codec.Encode(&CallbackState{UserID: "user-123", Platform: "linkedin"})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestOpaqueStateCodecDecodeGarbage(t *testing.T) {
	codec := OpaqueStateCodec{}

	for _, token := range []string{
		"",
		"not base64!!!",
		"bm90IGpzb24=",         // valid base64, not JSON
		"eyJ1IjoiIiwicCI6IiJ9", // JSON with empty fields
	} {
		_, err := codec.Decode(token)
		assert.ErrorIs(t, err, ErrInvalidState, token)
	}
}

func TestSignedStateCodecRoundTrip(t *testing.T) {
	codec := NewSignedStateCodec([]byte("0123456789abcdef0123456789abcdef"), 10*time.Minute)

	for _, platform := range Platforms() {
		state := &CallbackState{
			UserID:   "user-123",
			Platform: platform,
		}

		encoded, err := codec.Encode(state)
		require.NoError(t, err, platform)

		decoded, err := codec.Decode(encoded)
		require.NoError(t, err, platform)

		assert.Equal(t, state.UserID, decoded.UserID)
		assert.Equal(t, state.Platform, decoded.Platform)
	}
}

func TestSignedStateCodecExpired(t *testing.T) {
	codec := NewSignedStateCodec([]byte("0123456789abcdef0123456789abcdef"), 10*time.Minute)

	encoded, err := codec.Encode(&CallbackState{
		UserID:   "user-123",
		Platform: PlatformSpotify,
	})
	require.NoError(t, err)

	codec.now = func() time.Time { return time.Now().Add(time.Hour) }

	_, err = codec.Decode(encoded)
	assert.ErrorIs(t, err, ErrStateExpired)
}

func TestSignedStateCodecRejectsTampered(t *testing.T) {
	codec := NewSignedStateCodec([]byte("0123456789abcdef0123456789abcdef"), 0)

	encoded, err := codec.Encode(&CallbackState{
		UserID:   "user-123",
		Platform: PlatformSpotify,
	})
	require.NoError(t, err)

	other := NewSignedStateCodec([]byte("fedcba9876543210fedcba9876543210"), 0)
	_, err = other.Decode(encoded)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSignedStateCodecRejectsOpaqueToken(t *testing.T) {
	opaque := OpaqueStateCodec{}
	encoded, err := opaque.Encode(&CallbackState{
		UserID:   "user-123",
		Platform: PlatformTikTok,
	})
	require.NoError(t, err)

	signed := NewSignedStateCodec([]byte("0123456789abcdef0123456789abcdef"), 0)
	_, err = signed.Decode(encoded)
	assert.ErrorIs(t, err, ErrInvalidState)
}
