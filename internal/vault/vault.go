// Package vault шифрует денежные значения перед записью в базу.
// Экономика видит только интерфейс Vault и не зависит от схемы шифрования.
package vault

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Vault — непрозрачное шифрование строковых значений.
type Vault interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// ErrCiphertext — значение повреждено или зашифровано другим ключом.
var ErrCiphertext = errors.New("некорректный шифротекст")

// Параметры Argon2id для вывода ключа из секрета.
// Менять нельзя: старые балансы перестанут расшифровываться.
const (
	kdfMemory      uint32 = 64 * 1024
	kdfIterations  uint32 = 3
	kdfParallelism uint8  = 2
)

// Cipher — XChaCha20-Poly1305 с ключом, выведенным Argon2id из секрета и соли.
// Формат: base64(nonce || ciphertext || tag).
type Cipher struct {
	key []byte
}

// NewCipher выводит ключ один раз при старте. Вывод ключа намеренно дорогой (~64 MB памяти).
func NewCipher(secret, salt string) (*Cipher, error) {
	if secret == "" || salt == "" {
		return nil, fmt.Errorf("секрет и соль хранилища обязательны")
	}
	key := argon2.IDKey([]byte(secret), []byte(salt), kdfIterations, kdfMemory, kdfParallelism, chacha20poly1305.KeySize)
	return &Cipher{key: key}, nil
}

// Encrypt шифрует значение со случайным nonce.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("ошибка инициализации шифра: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt расшифровывает значение, записанное Encrypt.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertext, err)
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("ошибка инициализации шифра: %w", err)
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", ErrCiphertext
	}

	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrCiphertext
	}
	return string(plain), nil
}
