package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindwellAPI/internal/logger"
)

func TestSendGridSenderPostsMail(t *testing.T) {
	var got sgRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewSendGridSender("sg-key", "noreply@mindwell.app").WithEndpoint(srv.URL)
	err := sender.Send(context.Background(), Email{To: "a@example.com", Subject: "Hi", Body: "Hello"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sg-key", auth)
	assert.Equal(t, "Hi", got.Subject)
	require.Len(t, got.Personalizations, 1)
	assert.Equal(t, "a@example.com", got.Personalizations[0].To[0].Email)
	assert.Equal(t, "noreply@mindwell.app", got.From.Email)
}

func TestSendGridSenderReportsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := NewSendGridSender("x", "y@z.io").WithEndpoint(srv.URL).Send(context.Background(), Email{To: "a@b.c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=401")
}

type fakeMessaging struct {
	sent []*messaging.Message
	fail map[string]bool
}

func (f *fakeMessaging) Send(_ context.Context, m *messaging.Message) (string, error) {
	if f.fail[m.Token] {
		return "", errors.New("unregistered")
	}
	f.sent = append(f.sent, m)
	return "id", nil
}

func TestFCMSendPushPerPlatform(t *testing.T) {
	fake := &fakeMessaging{fail: map[string]bool{"bad": true}}
	svc := &FCMService{client: fake, log: logger.Nop()}

	err := svc.SendPush(context.Background(), []DeviceToken{
		{Token: "droid", Platform: "android"},
		{Token: "phone", Platform: "ios"},
		{Token: "bad"},
	}, "Level up", "You reached level 3", map[string]any{"level": 3})
	require.NoError(t, err)

	require.Len(t, fake.sent, 2)
	assert.NotNil(t, fake.sent[0].Android)
	assert.NotNil(t, fake.sent[1].APNS)
	assert.Equal(t, "3", fake.sent[0].Data["level"])
}

func TestFCMSendPushAllFailed(t *testing.T) {
	fake := &fakeMessaging{fail: map[string]bool{"bad": true}}
	svc := &FCMService{client: fake, log: logger.Nop()}

	assert.Error(t, svc.SendPush(context.Background(), []DeviceToken{{Token: "bad"}}, "t", "b", nil))
	assert.NoError(t, svc.SendPush(context.Background(), nil, "t", "b", nil))
}
