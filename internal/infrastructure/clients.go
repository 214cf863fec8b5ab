package infrastructure

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// TelegramClient is the push-style bot API sender.
type TelegramClient struct {
	Bot *tgbotapi.BotAPI
}

func NewTelegramClient(token string) *TelegramClient {
	if token == "" {
		return &TelegramClient{}
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Warn().Err(err).Msg("Telegram bot token issue, Telegram features disabled")
		return &TelegramClient{}
	}
	return &TelegramClient{Bot: bot}
}

func (t *TelegramClient) Configured() bool {
	return t.Bot != nil
}

func (t *TelegramClient) SendMessage(to, content string) error {
	if t.Bot == nil {
		return errors.New("telegram not configured")
	}
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", to, err)
	}
	msg := tgbotapi.NewMessage(chatID, content)
	_, err = t.Bot.Send(msg)
	return err
}

// TwilioClient sends messages through the Twilio REST API and validates
// inbound webhook signatures.
type TwilioClient struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
}

func NewTwilioClient(accountSID, authToken, from string) *TwilioClient {
	return &TwilioClient{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    "https://api.twilio.com",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *TwilioClient) Configured() bool {
	return t.accountSID != "" && t.authToken != "" && t.from != ""
}

func (t *TwilioClient) SendMessage(to, content string) error {
	if !t.Configured() {
		return errors.New("twilio not configured")
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, t.accountSID)
	form := url.Values{}
	form.Set("Body", content)
	form.Set("From", t.from)
	form.Set("To", to)

	req, err := http.NewRequest("POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("twilio send failed: status %d", resp.StatusCode)
	}
	return nil
}

// ValidateSignature checks an X-Twilio-Signature header: HMAC-SHA1 over
// the full request URL plus each POST parameter appended as key+value in
// sorted key order, base64 encoded.
func (t *TwilioClient) ValidateSignature(fullURL string, params map[string]string, signature string) bool {
	if t.authToken == "" {
		return false
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(fullURL)
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(params[k])
	}

	mac := hmac.New(sha1.New, []byte(t.authToken))
	mac.Write([]byte(sb.String()))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
