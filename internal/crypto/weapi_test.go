package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type urlRequest struct {
	Ids   string `json:"ids"`
	Level string `json:"level"`
}

// Golden vector: with a fixed session key every step of the scheme is
// deterministic, so the output must reproduce byte-for-byte.
func TestWeapiEncryptWithKey_GoldenVector(t *testing.T) {
	body := urlRequest{Ids: "[210049]", Level: "exhigh"}
	key := []byte("TestSessionKey01")

	form, err := weapiEncryptWithKey(body, key)
	require.NoError(t, err)

	assert.Equal(t,
		"gN68YuPcMdN7I7rUuraWD9D3hI9puN6RTJRSrCPDkm659dCRlxtVCXspnzFh9fNBU1PLZQ7xW+440kifbH0kT1JoofmiTePsMS3XkiyTiMI=",
		form.Get("params"))
	assert.Equal(t,
		"5109380056fdcb02ed2f6a542c40971912742a527c89889a3ae3dfbc11ac717b"+
			"d33b4682437d997e03e4565f62187c569e159151a59a4dcbdc73343e8c074b49"+
			"f08a867423ed1a6915d7ba80bce6dcfd0e7154a2389452f95289c7f910a791ba"+
			"32494f6c2b1fc5651a5af85900e0c96215e52d54b74136a2c293a4d69c85efa7",
		form.Get("encSecKey"))
}

func TestWeapiEncrypt_FirstRoundDeterministic(t *testing.T) {
	// The inner layer depends only on the preset key, so it is stable
	// regardless of the random session key.
	body := urlRequest{Ids: "[210049]", Level: "exhigh"}
	first, err := aesCBCEncrypt([]byte(`{"ids":"[210049]","level":"exhigh"}`), []byte(weapiPresetKey))
	require.NoError(t, err)
	assert.Equal(t, "qIB5dbNfVR0G2XqtMW0LILeNJS5Ns9iHxmvKgu4huZRkLtfhqLlxBtOeuDDHRuy6", first)

	form, err := WeapiEncrypt(body)
	require.NoError(t, err)
	assert.NotEmpty(t, form.Get("params"))
	assert.Len(t, form.Get("encSecKey"), 256)
}

func TestNewSecretKey_Alphanumeric(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		key, err := newSecretKey()
		require.NoError(t, err)
		require.Len(t, key, 16)
		for _, b := range key {
			assert.Contains(t, secretKeyChars, string(b))
		}
		seen[string(key)] = true
	}
	assert.Greater(t, len(seen), 1, "keys should be random")
}

func TestPKCS7Pad(t *testing.T) {
	tests := []struct {
		name    string
		in      int
		wantLen int
		wantPad byte
	}{
		{"empty", 0, 16, 16},
		{"one short", 15, 16, 1},
		{"exact block", 16, 32, 16},
		{"one over", 17, 32, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := pkcs7Pad(make([]byte, tt.in), 16)
			assert.Len(t, out, tt.wantLen)
			assert.Equal(t, tt.wantPad, out[len(out)-1])
		})
	}
}

func TestAESCBCEncrypt_Base64Output(t *testing.T) {
	out, err := aesCBCEncrypt([]byte("hello"), []byte(weapiPresetKey))
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(out)
	require.NoError(t, err)
	assert.Len(t, raw, 16)
}
