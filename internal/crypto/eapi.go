package crypto

import (
	"crypto/aes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	eapiKey       = "e82ckenh8dichen8"
	eapiSeparator = "-36cd479b6b5-"
)

// EapiPath rewrites an /api/... path into the /eapi/... form the mobile
// surface serves. The digest below always binds the original /api path.
func EapiPath(apiPath string) string {
	return strings.Replace(apiPath, "/api/", "/eapi/", 1)
}

// EapiEncrypt encodes a request for the mobile-app surface. The API path
// and compact-JSON body are bound together with an md5 digest, the whole
// message is AES-128-ECB-encrypted under the scheme key, and emitted as a
// single uppercase-hex params field.
func EapiEncrypt(apiPath string, body any) (url.Values, error) {
	text, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	digest := md5.Sum([]byte("nobody" + apiPath + "use" + string(text) + "md5forencrypt"))
	message := apiPath + eapiSeparator + string(text) + eapiSeparator + hex.EncodeToString(digest[:])

	block, err := aes.NewCipher([]byte(eapiKey))
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad([]byte(message), aes.BlockSize)
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += aes.BlockSize {
		block.Encrypt(out[i:i+aes.BlockSize], padded[i:i+aes.BlockSize])
	}

	return url.Values{
		"params": {strings.ToUpper(hex.EncodeToString(out))},
	}, nil
}

// EapiCookies builds the synthetic mobile-device cookie set the eapi
// surface requires. The device id is random per call; everything else
// mimics a current desktop client build.
func EapiCookies() []*http.Cookie {
	pairs := map[string]string{
		"appver":      "8.20.21",
		"buildver":    strconv.FormatInt(time.Now().Unix(), 10),
		"os":          "pc",
		"osver":       "Microsoft-Windows-10",
		"channel":     "netease",
		"deviceId":    uuid.New().String(),
		"requestId":   strconv.FormatInt(time.Now().UnixMilli(), 10),
		"mobilename":  "",
		"resolution":  "1920x1080",
		"versioncode": "140",
	}
	cookies := make([]*http.Cookie, 0, len(pairs))
	for name, value := range pairs {
		cookies = append(cookies, &http.Cookie{Name: name, Value: value})
	}
	return cookies
}
