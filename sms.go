package amyrose

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-errors"
)

// SMSSender delivers messages through the Twilio REST API. Same transport
// policy as the mailer: no retries, and missing credentials fail fast at
// call time.
type SMSSender struct {
	sid    string
	token  string
	from   string
	base   string
	client *http.Client
}

func NewSMSSender(cfg TwilioConfig) *SMSSender {
	return &SMSSender{
		sid:    cfg.SID,
		token:  cfg.Token,
		from:   cfg.From,
		base:   "https://api.twilio.com",
		client: http.DefaultClient,
	}
}

// WithEndpoint redirects API calls, for tests.
func (s *SMSSender) WithEndpoint(base string) *SMSSender {
	s.base = base
	return s
}

// Send delivers one message to the given number.
func (s *SMSSender) Send(ctx context.Context, to, body string) error {
	if s.sid == "" || s.token == "" || s.from == "" {
		return errors.New("twilio credentials not found", errors.CategoryOperation)
	}

	form := url.Values{}
	form.Set("From", s.from)
	form.Set("To", "+"+strings.TrimPrefix(to, "+"))
	form.Set("Body", body)

	endpoint := s.base + "/2010-04-01/Accounts/" + s.sid + "/Messages.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "could not build sms request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.sid, s.token)

	res, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "could not send sms")
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return errors.New("sms provider rejected the message", errors.CategoryOperation).
			WithMetadata(map[string]any{"status": res.StatusCode})
	}
	return nil
}
