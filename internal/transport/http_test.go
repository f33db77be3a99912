package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/companion-chat/internal/models"
)

func newTestServer(t *testing.T, provider *fakeProvider) *httptest.Server {
	t.Helper()
	services := newTestServices(t, provider, nil)
	ts := httptest.NewServer(NewHTTPServer(":0", services, 5*time.Second).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeError(t *testing.T, body []byte) models.ErrorResponse {
	t.Helper()
	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	return errResp
}

func TestHTTPHealth(t *testing.T) {
	ts := newTestServer(t, &fakeProvider{content: "hi"})

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestHTTPCharacters(t *testing.T) {
	ts := newTestServer(t, &fakeProvider{content: "hi"})

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/api/characters", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		DefaultLanguage string           `json:"defaultLanguage"`
		Characters      []map[string]any `json:"characters"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, "zh-TW", list.DefaultLanguage)

	var ids []string
	for _, ch := range list.Characters {
		ids = append(ids, ch["id"].(string))
		assert.NotContains(t, ch, "responses")
	}
	assert.Equal(t, []string{"ethan", "alex", "kaito"}, ids)
}

func TestHTTPChat(t *testing.T) {
	provider := &fakeProvider{content: "Hmph. Hello."}
	ts := newTestServer(t, provider)

	resp, body := doRequest(t, http.MethodPost, ts.URL+"/api/chat",
		`{"characterId":"ethan","messages":[{"text":"Hello","sender":"user"}],"language":"en"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"response":"Hmph. Hello."}`, string(body))
}

func TestHTTPChatErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		provider *fakeProvider
		status   int
		code     string
	}{
		{
			name:     "malformed json",
			body:     `{"characterId":`,
			provider: &fakeProvider{content: "x"},
			status:   http.StatusBadRequest,
			code:     models.ErrorInvalidRequest,
		},
		{
			name:     "missing messages",
			body:     `{"characterId":"ethan"}`,
			provider: &fakeProvider{content: "x"},
			status:   http.StatusBadRequest,
			code:     models.ErrorInvalidRequest,
		},
		{
			name:     "unknown character",
			body:     `{"characterId":"nobody","messages":[{"text":"hi","sender":"user"}]}`,
			provider: &fakeProvider{content: "x"},
			status:   http.StatusNotFound,
			code:     models.ErrorCharacterNotFound,
		},
		{
			name:     "llm failure",
			body:     `{"characterId":"ethan","messages":[{"text":"hi","sender":"user"}]}`,
			provider: &fakeProvider{err: errors.New("HTTP 500")},
			status:   http.StatusBadGateway,
			code:     models.ErrorLLMFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.provider)
			resp, body := doRequest(t, http.MethodPost, ts.URL+"/api/chat", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			errResp := decodeError(t, body)
			assert.Equal(t, tt.code, errResp.Code)
			assert.NotEmpty(t, errResp.Message)
		})
	}
}

func TestHTTPSummarize(t *testing.T) {
	ts := newTestServer(t, &fakeProvider{content: "They talked about cats."})

	resp, body := doRequest(t, http.MethodPost, ts.URL+"/api/summarize",
		`{"characterId":"ethan","characterName":"Ethan","messages":[{"text":"I like cats","sender":"user"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"summary":"They talked about cats."}`, string(body))

	resp, body = doRequest(t, http.MethodPost, ts.URL+"/api/summarize",
		`{"characterId":"ethan","messages":[{"text":"I like cats","sender":"user"}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.ErrorInvalidRequest, decodeError(t, body).Code)
}

func TestHTTPConversationLifecycle(t *testing.T) {
	ts := newTestServer(t, &fakeProvider{content: "Whatever."})
	base := ts.URL + "/api/conversations"

	// Opening a fresh conversation shows the greeting
	resp, body := doRequest(t, http.MethodGet, base+"/ethan", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var conv models.ConversationResponse
	require.NoError(t, json.Unmarshal(body, &conv))
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "You messaged me. What do you want?", conv.Messages[0].Text)
	assert.Nil(t, conv.Summary)

	resp, body = doRequest(t, http.MethodPost, base+"/ethan/messages", `{"text":"Hello"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	conv = models.ConversationResponse{}
	require.NoError(t, json.Unmarshal(body, &conv))
	require.Len(t, conv.Messages, 3)
	assert.Equal(t, "Hello", conv.Messages[1].Text)
	assert.Equal(t, models.SenderUser, conv.Messages[1].Sender)
	require.NotNil(t, conv.Reply)
	assert.Equal(t, "Whatever.", conv.Reply.Text)
	assert.Equal(t, *conv.Reply, conv.Messages[2])

	resp, body = doRequest(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"characterIds":["ethan"]}`, string(body))

	resp, body = doRequest(t, http.MethodDelete, base+"/ethan", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	conv = models.ConversationResponse{}
	require.NoError(t, json.Unmarshal(body, &conv))
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, models.SenderCharacter, conv.Messages[0].Sender)

	resp, body = doRequest(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"characterIds":[]}`, string(body))
}

func TestHTTPConversationErrors(t *testing.T) {
	ts := newTestServer(t, &fakeProvider{content: "x"})
	base := ts.URL + "/api/conversations"

	resp, body := doRequest(t, http.MethodGet, base+"/nobody", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.ErrorCharacterNotFound, decodeError(t, body).Code)

	resp, body = doRequest(t, http.MethodPost, base+"/nobody/messages", `{"text":"hi"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.ErrorCharacterNotFound, decodeError(t, body).Code)

	resp, body = doRequest(t, http.MethodPost, base+"/ethan/messages", `{"message":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.ErrorInvalidRequest, decodeError(t, body).Code)

	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/api/chat", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHTTPSendBlankText(t *testing.T) {
	provider := &fakeProvider{content: "x"}
	ts := newTestServer(t, provider)

	resp, body := doRequest(t, http.MethodPost, ts.URL+"/api/conversations/ethan/messages", `{"text":"   "}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var conv models.ConversationResponse
	require.NoError(t, json.Unmarshal(body, &conv))
	assert.Empty(t, conv.Messages)
	assert.Nil(t, conv.Reply)
	assert.Zero(t, provider.calls)
}
