package cmdb

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"io"
	"io/ioutil"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
)

// EncryptedPrefix marks a sealed attribute value.
const EncryptedPrefix = "v2:"

const nonceSize = 24

// Decrypter opens sealed attribute values.
type Decrypter interface {
	Decrypt(value string) (string, error)
}

func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, EncryptedPrefix)
}

// SecretboxKey seals and opens values as "v2:" + base64(nonce || box).
type SecretboxKey [32]byte

// LoadSecretboxKey reads a hex encoded 32 byte key.
func LoadSecretboxKey(path string) (*SecretboxKey, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read key file %s", path)
	}
	return ParseSecretboxKey(strings.TrimSpace(string(data)))
}

func ParseSecretboxKey(s string) (*SecretboxKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "key is not hex encoded")
	}
	if len(raw) != 32 {
		return nil, errors.Errorf("key must be 32 bytes, got %d", len(raw))
	}
	k := &SecretboxKey{}
	copy(k[:], raw)
	return k, nil
}

func (k *SecretboxKey) Encrypt(clear string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", errors.Wrap(err, "failed to generate nonce")
	}
	sealed := secretbox.Seal(nonce[:], []byte(clear), &nonce, (*[32]byte)(k))
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

func (k *SecretboxKey) Decrypt(value string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, EncryptedPrefix))
	if err != nil {
		return "", errors.Wrap(err, "value is not base64 encoded")
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", errors.New("sealed value is too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	clear, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, (*[32]byte)(k))
	if !ok {
		return "", errors.New("wrong key or corrupted value")
	}
	return string(clear), nil
}
