package notify_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alejandrodnm/prophet/internal/adapters/notify"
	"github.com/alejandrodnm/prophet/internal/domain"
	"github.com/go-telegram/bot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// telegramServer simula la Bot API y guarda los cuerpos de sendMessage.
func telegramServer(t *testing.T, status int) (*httptest.Server, *[]string) {
	t.Helper()
	var mu sync.Mutex
	bodies := []string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.HasSuffix(r.URL.Path, "/sendMessage") {
			mu.Lock()
			bodies = append(bodies, string(body))
			mu.Unlock()
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`))
	}))
	return srv, &bodies
}

func TestNewTelegram_Validation(t *testing.T) {
	_, err := notify.NewTelegram("", []string{"1"})
	assert.Error(t, err)

	_, err = notify.NewTelegram("123:abc", []string{" ", ""})
	assert.Error(t, err)
}

func TestTelegram_NotifyRelay_SendsToEveryChat(t *testing.T) {
	srv, bodies := telegramServer(t, http.StatusOK)
	defer srv.Close()

	tg, err := notify.NewTelegram("123:abc", []string{"111", "222"}, bot.WithServerURL(srv.URL))
	require.NoError(t, err)

	err = tg.NotifyRelay(context.Background(), []domain.RelayReport{
		{Question: "Will <BTC> moon?", Status: domain.RelayResolved, TxID: "sig1"},
		{Question: "Quiet market", Status: domain.RelayLive},
	})
	require.NoError(t, err)

	require.Len(t, *bodies, 2)
	assert.Contains(t, (*bodies)[0], "Will &lt;BTC&gt; moon?")
	assert.Contains(t, (*bodies)[0], "sig1")
	assert.NotContains(t, (*bodies)[0], "Quiet market")
}

func TestTelegram_NotifyRelay_AllLiveSendsNothing(t *testing.T) {
	srv, bodies := telegramServer(t, http.StatusOK)
	defer srv.Close()

	tg, err := notify.NewTelegram("123:abc", []string{"111"}, bot.WithServerURL(srv.URL))
	require.NoError(t, err)

	require.NoError(t, tg.NotifyRelay(context.Background(), []domain.RelayReport{
		{Question: "Q", Status: domain.RelayLive},
	}))
	assert.Empty(t, *bodies)
}

func TestTelegram_NotifyRelay_AllChatsFail(t *testing.T) {
	srv, _ := telegramServer(t, http.StatusBadRequest)
	defer srv.Close()

	tg, err := notify.NewTelegram("123:abc", []string{"111"}, bot.WithServerURL(srv.URL))
	require.NoError(t, err)

	err = tg.NotifyRelay(context.Background(), []domain.RelayReport{
		{Question: "Q", Status: domain.RelayFailed, Err: errors.New("boom")},
	})
	assert.Error(t, err)
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) NotifyRelay(context.Context, []domain.RelayReport) error {
	f.calls++
	return errors.New("down")
}

func TestMulti_CallsAllAndJoinsErrors(t *testing.T) {
	a, b := &failingNotifier{}, &failingNotifier{}
	err := notify.Multi{a, b}.NotifyRelay(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}
