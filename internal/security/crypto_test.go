package security_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/sqlgate/internal/security"
)

func TestEncryptor_EncryptDecrypt(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	encryptor, err := security.NewEncryptor(key)
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext string
	}{
		{"empty", ""},
		{"short", "hello"},
		{"special", "special chars: !@#$%^&*()_+-=[]{}|;':\",./<>?"},
		{"unicode", "unicode: 日本語 中文 한국어"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := encryptor.Encrypt([]byte(tt.plaintext))
			require.NoError(t, err)

			decrypted, err := encryptor.Decrypt(ciphertext)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, string(decrypted))
		})
	}
}

func TestEncryptor_InvalidKey(t *testing.T) {
	for _, n := range []int{0, 15, 31, 33} {
		_, err := security.NewEncryptor(make([]byte, n))
		assert.Error(t, err, "key length %d", n)
	}
}

func TestEncryptor_NonceIsRandom(t *testing.T) {
	key, err := security.GenerateKey()
	require.NoError(t, err)
	encryptor, err := security.NewEncryptor(key)
	require.NoError(t, err)

	a, err := encryptor.Encrypt([]byte("same"))
	require.NoError(t, err)
	b, err := encryptor.Encrypt([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEncryptor_TamperedCiphertext(t *testing.T) {
	encryptor, err := security.NewEncryptorFromSecret("operator secret")
	require.NoError(t, err)

	ciphertext, err := encryptor.Encrypt([]byte("password"))
	require.NoError(t, err)
	ciphertext[len(ciphertext)-1] ^= 0xff

	_, err = encryptor.Decrypt(ciphertext)
	assert.Error(t, err)

	_, err = encryptor.Decrypt([]byte{1, 2})
	assert.ErrorIs(t, err, security.ErrCiphertextTooShort)
}

func TestNewEncryptorFromSecret_IsDeterministic(t *testing.T) {
	first, err := security.NewEncryptorFromSecret("operator secret")
	require.NoError(t, err)
	second, err := security.NewEncryptorFromSecret("operator secret")
	require.NoError(t, err)
	other, err := security.NewEncryptorFromSecret("another secret")
	require.NoError(t, err)

	ciphertext, err := first.Encrypt([]byte("password"))
	require.NoError(t, err)

	plaintext, err := second.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "password", string(plaintext))

	_, err = other.Decrypt(ciphertext)
	assert.Error(t, err)

	_, err = security.NewEncryptorFromSecret("")
	assert.Error(t, err)
}
