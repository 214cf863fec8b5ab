package infrastructure

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwilioValidateSignature(t *testing.T) {
	c := NewTwilioClient("AC123", "12345", "whatsapp:+14155238886")

	fullURL := "https://mycompany.com/myapp.php?foo=1&bar=2"
	params := map[string]string{
		"Digits":  "1234",
		"To":      "+18005551212",
		"From":    "+14158675310",
		"Caller":  "+14158675310",
		"CallSid": "CA1234567890ABCDE",
	}

	assert.True(t, c.ValidateSignature(fullURL, params, "GvWf1cFY/Q7PnoempGyD5oXAezc="))
	assert.False(t, c.ValidateSignature(fullURL, params, "bogus"))

	params["Digits"] = "9999"
	assert.False(t, c.ValidateSignature(fullURL, params, "GvWf1cFY/Q7PnoempGyD5oXAezc="))
}

func TestTwilioValidateSignatureWithoutToken(t *testing.T) {
	c := NewTwilioClient("", "", "")
	assert.False(t, c.ValidateSignature("https://example.com/", nil, ""))
}

func TestTwilioConfigured(t *testing.T) {
	assert.False(t, NewTwilioClient("", "", "").Configured())
	assert.False(t, NewTwilioClient("AC123", "", "whatsapp:+1").Configured())
	assert.True(t, NewTwilioClient("AC123", "token", "whatsapp:+1").Configured())
}

func TestTwilioSendMessage(t *testing.T) {
	var gotPath, gotBody, gotTo string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotBody = r.PostFormValue("Body")
		gotTo = r.PostFormValue("To")
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "token", pass)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewTwilioClient("AC123", "token", "whatsapp:+14155238886")
	c.baseURL = srv.URL

	err := c.SendMessage("whatsapp:+254700000001", "Your SACCO OTP: 123456")
	require.NoError(t, err)
	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", gotPath)
	assert.Equal(t, "Your SACCO OTP: 123456", gotBody)
	assert.Equal(t, "whatsapp:+254700000001", gotTo)
}

func TestTwilioSendMessageErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewTwilioClient("AC123", "token", "whatsapp:+14155238886")
	c.baseURL = srv.URL

	err := c.SendMessage("whatsapp:+254700000001", "hi")
	assert.Error(t, err)
}

func TestTwilioSendMessageUnconfigured(t *testing.T) {
	c := NewTwilioClient("", "", "")
	assert.Error(t, c.SendMessage("whatsapp:+254700000001", "hi"))
}

func TestTelegramSendMessageUnconfigured(t *testing.T) {
	c := NewTelegramClient("")
	assert.False(t, c.Configured())
	assert.Error(t, c.SendMessage("123", "hi"))
}
