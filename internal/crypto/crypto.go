package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// blob format: version | nonce | ciphertext[GCM]
const blobVersion = 0x01

// Cipher 租户厂家凭据加密器（写库前加密，读取时解密）
// 密钥经 sha256 归一为 32 字节，密文带版本前缀并以 base64 文本落库。
type Cipher struct {
	key [32]byte
}

// NewCipher 创建加密器，key 为空时返回错误
func NewCipher(key string) (*Cipher, error) {
	if key == "" {
		return nil, fmt.Errorf("encryption key is required")
	}
	return &Cipher{key: sha256.Sum256([]byte(key))}, nil
}

// EncryptString 加密明文，返回 base64(version|nonce|ciphertext)
func (c *Cipher) EncryptString(plain string) (string, error) {
	gcm, err := c.newGCM()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	ct := gcm.Seal(nil, nonce, []byte(plain), nil)
	out := make([]byte, 1+len(nonce)+len(ct))
	out[0] = blobVersion
	copy(out[1:1+len(nonce)], nonce)
	copy(out[1+len(nonce):], ct)
	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptString 解密 EncryptString 的输出；密文损坏或密钥不符时返回错误
func (c *Cipher) DecryptString(encoded string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("invalid ciphertext encoding: %w", err)
	}
	if len(blob) < 2 {
		return "", fmt.Errorf("invalid ciphertext blob")
	}
	if blob[0] != blobVersion {
		return "", fmt.Errorf("unsupported ciphertext version %d", blob[0])
	}
	gcm, err := c.newGCM()
	if err != nil {
		return "", err
	}
	if len(blob) < 1+gcm.NonceSize() {
		return "", fmt.Errorf("invalid ciphertext blob")
	}
	nonce := blob[1 : 1+gcm.NonceSize()]
	ct := blob[1+gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plain), nil
}

func (c *Cipher) newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
