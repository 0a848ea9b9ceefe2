package bot

import (
	"errors"
	"github.com/asaskevich/EventBus"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/seek-applier/internal/events"
	"github.com/maxaizer/seek-applier/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

type mockApi struct {
	mu           sync.Mutex
	SentMessages []botApi.MessageConfig
	err          error
}

func (m *mockApi) Send(chattable botApi.Chattable) (botApi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := chattable.(botApi.MessageConfig); ok {
		m.SentMessages = append(m.SentMessages, msg)
	}
	return botApi.Message{}, m.err
}

func (m *mockApi) sent() []botApi.MessageConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]botApi.MessageConfig(nil), m.SentMessages...)
}

type mockUpdates struct {
	ch chan botApi.Update
}

func newMockUpdates() *mockUpdates {
	return &mockUpdates{ch: make(chan botApi.Update, 10)}
}

func (m *mockUpdates) GetUpdatesChan(_ botApi.UpdateConfig) botApi.UpdatesChannel {
	return m.ch
}

func (m *mockUpdates) StopReceivingUpdates() {
	close(m.ch)
}

func commandUpdate(chatID int64, text string) botApi.Update {
	return botApi.Update{Message: &botApi.Message{
		Text:     text,
		Chat:     &botApi.Chat{ID: chatID, Type: "private"},
		Entities: []botApi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}}
}

func recordedEvent() events.ApplicationRecorded {
	return events.ApplicationRecorded{
		JobID:           "81234567",
		Position:        "Go Developer",
		Company:         "Acme",
		Link:            "https://www.seek.com.au/job/81234567",
		Similarity:      0.73,
		ViaSeek:         true,
		ViaEmail:        true,
		EmailsContacted: []string{"jobs@acme.com"},
		AppliedOn:       time.Now(),
	}
}

func Test_ApplicationRecorded_ShouldNotifyConfiguredChat(t *testing.T) {
	bus := EventBus.New()
	api := &mockApi{}
	_, err := newBot(api, newMockUpdates(), 42, bus, logger.Discard())
	require.NoError(t, err)

	bus.Publish(events.ApplicationRecordedTopic, recordedEvent())
	bus.WaitAsync()

	sent := api.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(42), sent[0].ChatID)
	assert.Contains(t, sent[0].Text, "Go Developer at Acme")
	assert.Contains(t, sent[0].Text, "Seek; email to jobs@acme.com")
	assert.Contains(t, sent[0].Text, "0.73")
}

func Test_ApplicationRecorded_WithoutChat_ShouldOnlyCount(t *testing.T) {
	bus := EventBus.New()
	api := &mockApi{}
	b, err := newBot(api, newMockUpdates(), 0, bus, logger.Discard())
	require.NoError(t, err)

	bus.Publish(events.ApplicationRecordedTopic, recordedEvent())
	bus.WaitAsync()

	assert.Empty(t, api.sent())
	assert.Contains(t, b.status(), ": 1")
	assert.Contains(t, b.status(), "Last: Go Developer at Acme")
}

func Test_ApplicationRecorded_WhenSendFails_ShouldNotPanic(t *testing.T) {
	bus := EventBus.New()
	api := &mockApi{err: errors.New("telegram is down")}
	_, err := newBot(api, newMockUpdates(), 42, bus, logger.Discard())
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		bus.Publish(events.ApplicationRecordedTopic, recordedEvent())
		bus.WaitAsync()
	})
}

func Test_Run_StartCommand_ShouldAdoptChatWhenNoneConfigured(t *testing.T) {
	bus := EventBus.New()
	api := &mockApi{}
	updates := newMockUpdates()
	b, err := newBot(api, updates, 0, bus, logger.Discard())
	require.NoError(t, err)

	updates.ch <- commandUpdate(7, "/start")
	updates.ch <- commandUpdate(7, "/status")
	updates.ch <- commandUpdate(7, "/dance")
	b.Stop()
	b.Run()

	sent := api.sent()
	require.Len(t, sent, 3)
	assert.Contains(t, sent[0].Text, "chat 7")
	assert.Contains(t, sent[1].Text, "Applications recorded since")
	assert.Equal(t, "Unknown command", sent[2].Text)
	assert.Equal(t, int64(7), b.notifyChat())
}

func Test_Run_ShouldIgnoreGroupChats(t *testing.T) {
	bus := EventBus.New()
	api := &mockApi{}
	updates := newMockUpdates()
	b, err := newBot(api, updates, 0, bus, logger.Discard())
	require.NoError(t, err)

	update := commandUpdate(-100, "/start")
	update.Message.Chat.Type = "group"
	updates.ch <- update
	b.Stop()
	b.Run()

	assert.Empty(t, api.sent())
	assert.Equal(t, int64(0), b.notifyChat())
}

func Test_NewBot_WhenBusNil_ShouldFail(t *testing.T) {
	_, err := newBot(&mockApi{}, newMockUpdates(), 1, nil, logger.Discard())
	assert.Error(t, err)
}
