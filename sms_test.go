package amyrose_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunset-developer/amyrose"
)

func TestSMSSenderDeliversMessage(t *testing.T) {
	var got struct {
		path string
		from string
		to   string
		body string
		auth bool
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got.path = r.URL.Path
		got.from = r.PostFormValue("From")
		got.to = r.PostFormValue("To")
		got.body = r.PostFormValue("Body")

		user, pass, ok := r.BasicAuth()
		got.auth = ok && user == "AC123" && pass == "secret-token"

		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sender := amyrose.NewSMSSender(amyrose.TwilioConfig{
		SID:   "AC123",
		Token: "secret-token",
		From:  "+15550001111",
	}).WithEndpoint(srv.URL)

	err := sender.Send(context.Background(), "15552223333", "Your verification code is ABC1234.")
	require.NoError(t, err)

	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", got.path)
	assert.Equal(t, "+15550001111", got.from)
	assert.Equal(t, "+15552223333", got.to)
	assert.Equal(t, "Your verification code is ABC1234.", got.body)
	assert.True(t, got.auth)
}

func TestSMSSenderSurfacesProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	sender := amyrose.NewSMSSender(amyrose.TwilioConfig{
		SID:   "AC123",
		Token: "secret-token",
		From:  "+15550001111",
	}).WithEndpoint(srv.URL)

	err := sender.Send(context.Background(), "15552223333", "hello")
	assert.Error(t, err)
}

func TestSMSSenderRequiresCredentials(t *testing.T) {
	sender := amyrose.NewSMSSender(amyrose.TwilioConfig{})

	err := sender.Send(context.Background(), "15552223333", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials")
}

func TestMailerRequiresCredentials(t *testing.T) {
	mailer := amyrose.NewMailer(amyrose.SMTPConfig{})

	err := mailer.Send("someone@example.com", "subject", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials")
}
