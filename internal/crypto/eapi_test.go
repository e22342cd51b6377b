package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEapiEncrypt_GoldenVector(t *testing.T) {
	body := urlRequest{Ids: "[210049]", Level: "lossless"}

	form, err := EapiEncrypt("/api/song/enhance/player/url/v1", body)
	require.NoError(t, err)

	assert.Equal(t,
		"FA90B329E9614F79E79598F37DC2EDB487F00D1BC4C9B24CD57E6C318B907356"+
			"9338432CD7D98D1A3626E997A2C53121A2C6F4A4C7BF8AB439D2E4E6EAF8FFD6"+
			"E39F618F769F75275D5AA678A77CDCD69EED3CB4C8531345AA88E6B778D503A5"+
			"494598E6637D13F40759F73A8CAB950560E2CE65A3A8036FC2F6142E76EC5C4D",
		form.Get("params"))
}

func TestEapiPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/api/song/enhance/player/url/v1", "/eapi/song/enhance/player/url/v1"},
		{"/api/v3/song/detail", "/eapi/v3/song/detail"},
		{"/eapi/already", "/eapi/already"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EapiPath(tt.in))
	}
}

func TestEapiCookies(t *testing.T) {
	cookies := EapiCookies()

	byName := map[string]string{}
	for _, c := range cookies {
		byName[c.Name] = c.Value
	}

	for _, name := range []string{"appver", "buildver", "os", "deviceId", "channel", "osver"} {
		assert.NotEmpty(t, byName[name], "cookie %s", name)
	}
	assert.Equal(t, "pc", byName["os"])

	// Device ids are random per cookie set.
	again := EapiCookies()
	var first, second string
	for _, c := range again {
		if c.Name == "deviceId" {
			second = c.Value
		}
	}
	first = byName["deviceId"]
	assert.NotEqual(t, first, second)
}
