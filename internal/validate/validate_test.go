package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/gsdash/internal/models"
)

func validRequest() models.ServerRequest {
	return models.ServerRequest{
		Name:    "Survival",
		Type:    models.TypeMinecraft,
		Address: "mc.example.com",
		Port:    25565,
	}
}

func TestAddress(t *testing.T) {
	cases := map[string]bool{
		"mc.example.com": true,
		"192.168.1.10":   true,
		"localhost":      true,
		"node-1.eu":      true,
		"300.1.1.1":      false,
		"1.2.3":          false,
		"":               false,
		"-bad.example":   false,
		"bad_host.com":   false,
		"exa mple.com":   false,
	}

	for addr, want := range cases {
		assert.Equal(t, want, Address(addr), addr)
	}
	assert.False(t, Address(strings.Repeat("a", 254)))
}

func TestPort(t *testing.T) {
	assert.False(t, Port(0))
	assert.True(t, Port(1))
	assert.True(t, Port(25565))
	assert.True(t, Port(65535))
	assert.False(t, Port(65536))
}

func TestHTTPURL(t *testing.T) {
	assert.True(t, HTTPURL("https://example.com/pack.zip"))
	assert.True(t, HTTPURL("http://example.com"))
	assert.False(t, HTTPURL("ftp://example.com/pack.zip"))
	assert.False(t, HTTPURL("example.com/pack.zip"))
	assert.False(t, HTTPURL("https://"))
}

func TestDefaultPort(t *testing.T) {
	assert.Equal(t, 25565, DefaultPort(models.TypeMinecraft))
	assert.Equal(t, 27015, DefaultPort(models.TypeCS2))
}

func TestServerValid(t *testing.T) {
	req := validRequest()
	req.Name = "  Survival  "
	req.Address = " mc.example.com "
	req.DownloadURL = "https://example.com/pack.zip"

	require.NoError(t, Server(&req))
	assert.Equal(t, "Survival", req.Name)
	assert.Equal(t, "mc.example.com", req.Address)
}

func TestServerInvalid(t *testing.T) {
	tests := []struct {
		mutate func(*models.ServerRequest)
		field  string
	}{
		{func(r *models.ServerRequest) { r.Name = "   " }, "name"},
		{func(r *models.ServerRequest) { r.Name = strings.Repeat("n", 101) }, "name"},
		{func(r *models.ServerRequest) { r.Type = "quake" }, "type"},
		{func(r *models.ServerRequest) { r.Address = "300.1.1.1" }, "address"},
		{func(r *models.ServerRequest) { r.Port = 0 }, "port"},
		{func(r *models.ServerRequest) { r.Port = 65536 }, "port"},
		{func(r *models.ServerRequest) { r.Description = strings.Repeat("d", 1001) }, "description"},
		{func(r *models.ServerRequest) { r.DownloadURL = "not a url" }, "download_url"},
		{func(r *models.ServerRequest) { r.Changelog = strings.Repeat("c", 20001) }, "changelog"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			err := Server(&req)
			require.Error(t, err)
			assert.True(t, IsValidation(err))

			var errs Errors
			require.ErrorAs(t, err, &errs)
			assert.Contains(t, errs, tt.field)
		})
	}
}

func TestPortMessage(t *testing.T) {
	req := validRequest()
	req.Port = 70000

	var errs Errors
	require.ErrorAs(t, Server(&req), &errs)
	assert.Equal(t, "must be between 1 and 65535", errs["port"])
}

func TestLogin(t *testing.T) {
	require.NoError(t, Login(models.LoginRequest{Username: "admin", Password: "secret"}))

	var errs Errors
	require.ErrorAs(t, Login(models.LoginRequest{Username: " ", Password: ""}), &errs)
	assert.Contains(t, errs, "username")
	assert.Contains(t, errs, "password")
}

func TestPasswordChange(t *testing.T) {
	require.NoError(t, PasswordChange("old-secret", "new-secret", "new-secret"))

	var errs Errors
	require.ErrorAs(t, PasswordChange("old-secret", "short", "short"), &errs)
	assert.Contains(t, errs, "new_password")

	errs = nil
	require.ErrorAs(t, PasswordChange("same-pass", "same-pass", "same-pass"), &errs)
	assert.Contains(t, errs, "new_password")

	errs = nil
	require.ErrorAs(t, PasswordChange("old-secret", "new-secret", "other-secret"), &errs)
	assert.Contains(t, errs, "confirm_password")

	errs = nil
	require.ErrorAs(t, PasswordChange("", "new-secret", "new-secret"), &errs)
	assert.Contains(t, errs, "current_password")
}

func TestErrorsMessageIsSorted(t *testing.T) {
	err := Errors{"port": "bad", "address": "bad"}
	assert.Equal(t, "validation failed: address: bad; port: bad", err.Error())
}
