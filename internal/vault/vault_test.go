package vault

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher("secret", "salt-salt")
	require.NoError(t, err)

	ct, err := c.Encrypt("220.00")
	require.NoError(t, err)
	assert.NotEqual(t, "220.00", ct)

	again, err := c.Encrypt("220.00")
	require.NoError(t, err)
	assert.NotEqual(t, ct, again, "nonce must differ between calls")

	pt, err := c.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "220.00", pt)
}

func TestCipherRejectsForeignKeyAndTampering(t *testing.T) {
	a, err := NewCipher("secret", "salt-salt")
	require.NoError(t, err)
	b, err := NewCipher("other", "salt-salt")
	require.NoError(t, err)

	ct, err := a.Encrypt(`{"blue":2,"green":0,"red":0}`)
	require.NoError(t, err)

	_, err = b.Decrypt(ct)
	assert.True(t, errors.Is(err, ErrCiphertext))

	raw, err := base64.StdEncoding.DecodeString(ct)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	_, err = a.Decrypt(base64.StdEncoding.EncodeToString(raw))
	assert.True(t, errors.Is(err, ErrCiphertext))

	_, err = a.Decrypt("not base64!")
	assert.True(t, errors.Is(err, ErrCiphertext))
}

func TestNewCipherRequiresSecret(t *testing.T) {
	_, err := NewCipher("", "salt")
	assert.Error(t, err)
}
