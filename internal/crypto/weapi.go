// Package crypto implements the two request-encoding schemes required by
// the upstream music service: the legacy web surface ("weapi") and the
// mobile-app surface ("eapi"). Both are stateless and safe for concurrent
// use; the constants must match the service byte-for-byte or requests are
// rejected.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"
)

const (
	weapiPresetKey = "0CoJUm6Qyw8W8jud"
	weapiIV        = "0102030405060708"

	weapiRSAModulusHex = "00e0b509f6259df8642dbc35662901477df22677ec152b5ff68ace615bb7" +
		"b725152b3ab17a876aea8a5aa76d2e417629ec4ee341f56135fccf695280" +
		"104e0312ecbda92557c93870114af6c9d05c4f7f0c3685b7a46bee255932" +
		"575cce10b424d813cfe4875d3e82047b97ddef52741d546b8e289dc6935b" +
		"3ece0462db0a22b8e7"
)

var (
	weapiRSAModulus, _ = new(big.Int).SetString(weapiRSAModulusHex, 16)
	weapiRSAExponent   = big.NewInt(0x010001)
)

const secretKeyChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newSecretKey generates a random 16-byte alphanumeric session key.
func newSecretKey() ([]byte, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate secret key: %w", err)
	}
	for i, b := range buf {
		buf[i] = secretKeyChars[int(b)%len(secretKeyChars)]
	}
	return buf, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

// aesCBCEncrypt runs AES-128-CBC with the fixed weapi IV and returns the
// ciphertext base64-encoded, matching the upstream's expected encoding.
func aesCBCEncrypt(plaintext, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, []byte(weapiIV)).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

// rsaEncryptKey applies the service's textbook RSA to the session key:
// the key bytes are reversed, interpreted as a big-endian integer, raised
// to the public exponent modulo the fixed 1024-bit modulus, and rendered
// as lowercase hex zero-padded to 256 characters. No padding scheme is
// involved; this is an upstream quirk, not a security primitive.
func rsaEncryptKey(secretKey []byte) string {
	reversed := make([]byte, len(secretKey))
	for i, b := range secretKey {
		reversed[len(secretKey)-1-i] = b
	}
	m := new(big.Int).SetBytes(reversed)
	c := new(big.Int).Exp(m, weapiRSAExponent, weapiRSAModulus)
	return fmt.Sprintf("%0256x", c)
}

// WeapiEncrypt encodes a request body for the legacy web surface. The body
// is serialized to compact JSON, AES-CBC-encrypted under the preset key,
// encrypted again under a fresh random session key, and the session key is
// RSA-encrypted separately. The result is the params/encSecKey form pair.
func WeapiEncrypt(body any) (url.Values, error) {
	key, err := newSecretKey()
	if err != nil {
		return nil, err
	}
	return weapiEncryptWithKey(body, key)
}

// weapiEncryptWithKey is the deterministic core of WeapiEncrypt, split out
// so a fixed session key can reproduce known ciphertext.
func weapiEncryptWithKey(body any, secretKey []byte) (url.Values, error) {
	text, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	first, err := aesCBCEncrypt(text, []byte(weapiPresetKey))
	if err != nil {
		return nil, fmt.Errorf("first encryption round: %w", err)
	}
	second, err := aesCBCEncrypt([]byte(first), secretKey)
	if err != nil {
		return nil, fmt.Errorf("second encryption round: %w", err)
	}

	return url.Values{
		"params":    {second},
		"encSecKey": {rsaEncryptKey(secretKey)},
	}, nil
}
