package transport

import (
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/companion-chat/internal/config"
	"github.com/avvvet/companion-chat/internal/models"
)

const requestTimeout = 5 * time.Second

func runNATSServer(t *testing.T) string {
	t.Helper()
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	s := natsserver.RunServer(&opts)
	t.Cleanup(s.Shutdown)
	return s.ClientURL()
}

type natsFixture struct {
	transport *NATSTransport
	client    *nats.Conn
}

func newNATSFixture(t *testing.T, provider *fakeProvider) *natsFixture {
	t.Helper()
	url := runNATSServer(t)

	cfg := &config.Config{
		ServiceName:       "companion-chat-test",
		NatsURL:           url,
		NatsSubjectPrefix: "chat",
		NatsTimeout:       requestTimeout,
	}
	nt, err := NewNATSTransport(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = nt.Close() })

	services := newTestServices(t, provider, nt)
	require.NoError(t, nt.Start(services))

	client, err := nats.Connect(url)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return &natsFixture{transport: nt, client: client}
}

func (f *natsFixture) request(t *testing.T, subject string, body string, v any) {
	t.Helper()
	msg, err := f.client.Request(subject, []byte(body), requestTimeout)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(msg.Data, v), string(msg.Data))
}

func TestNATSSubjects(t *testing.T) {
	nt := &NATSTransport{config: &config.Config{NatsSubjectPrefix: "crushie"}}
	assert.Equal(t, "crushie.send", nt.Subject(SubjectSend))
	assert.Equal(t, "crushie.updates", nt.Subject(SubjectUpdates))
}

func TestNATSReply(t *testing.T) {
	f := newNATSFixture(t, &fakeProvider{content: "Hmph."})

	var resp models.ChatResponse
	f.request(t, "chat.reply", `{"characterId":"ethan","messages":[{"text":"Hi","sender":"user"}]}`, &resp)
	assert.Equal(t, "Hmph.", resp.Response)

	var errResp models.ErrorResponse
	f.request(t, "chat.reply", `{"characterId":"nobody","messages":[{"text":"Hi","sender":"user"}]}`, &errResp)
	assert.Equal(t, models.ErrorCharacterNotFound, errResp.Code)
}

func TestNATSSummarize(t *testing.T) {
	f := newNATSFixture(t, &fakeProvider{content: "They met."})

	var resp models.SummarizeResponse
	f.request(t, "chat.summarize", `{"characterId":"ethan","characterName":"Ethan","messages":[{"text":"Hi","sender":"user"}]}`, &resp)
	assert.Equal(t, "They met.", resp.Summary)

	var errResp models.ErrorResponse
	f.request(t, "chat.summarize", `{"characterId":"ethan","messages":[]}`, &errResp)
	assert.Equal(t, models.ErrorInvalidRequest, errResp.Code)
}

func TestNATSSendPublishesUpdates(t *testing.T) {
	f := newNATSFixture(t, &fakeProvider{content: "What?"})

	updates, err := f.client.SubscribeSync("chat.updates.ethan")
	require.NoError(t, err)
	require.NoError(t, f.client.Flush())

	var conv models.ConversationResponse
	f.request(t, "chat.send", `{"characterId":"ethan","text":"Hello"}`, &conv)
	require.Len(t, conv.Messages, 2)
	require.NotNil(t, conv.Reply)
	assert.Equal(t, "What?", conv.Reply.Text)

	var senders []models.Sender
	for i := 0; i < 2; i++ {
		msg, err := updates.NextMsg(requestTimeout)
		require.NoError(t, err)
		var update models.ConversationUpdate
		require.NoError(t, json.Unmarshal(msg.Data, &update))
		assert.Equal(t, "ethan", update.CharacterID)
		assert.Equal(t, i+1, update.Count)
		senders = append(senders, update.Message.Sender)
	}
	assert.Equal(t, []models.Sender{models.SenderUser, models.SenderCharacter}, senders)
}

func TestNATSHistoryAndClear(t *testing.T) {
	f := newNATSFixture(t, &fakeProvider{content: "Fine."})

	var conv models.ConversationResponse
	f.request(t, "chat.send", `{"characterId":"alex","text":"Hello"}`, &conv)
	require.Len(t, conv.Messages, 2)

	conv = models.ConversationResponse{}
	f.request(t, "chat.history", `{"characterId":"alex"}`, &conv)
	assert.Equal(t, "alex", conv.CharacterID)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "Hello", conv.Messages[0].Text)
	assert.Equal(t, "Fine.", conv.Messages[1].Text)

	conv = models.ConversationResponse{}
	f.request(t, "chat.clear", `{"characterId":"alex"}`, &conv)
	require.Len(t, conv.Messages, 1, "greeting only")
	assert.Equal(t, models.SenderCharacter, conv.Messages[0].Sender)

	var errResp models.ErrorResponse
	f.request(t, "chat.history", `{"characterId":""}`, &errResp)
	assert.Equal(t, models.ErrorInvalidRequest, errResp.Code)

	errResp = models.ErrorResponse{}
	f.request(t, "chat.clear", `not json`, &errResp)
	assert.Equal(t, models.ErrorInvalidRequest, errResp.Code)
}
