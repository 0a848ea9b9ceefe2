package bot

import (
	"errors"
	"fmt"
	"github.com/asaskevich/EventBus"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/seek-applier/internal/events"
	"github.com/maxaizer/seek-applier/internal/logger"
	log "github.com/sirupsen/logrus"
	"strings"
	"sync"
	"time"
)

type apiInterface interface {
	Send(chattable botApi.Chattable) (botApi.Message, error)
}

type updatesSource interface {
	GetUpdatesChan(config botApi.UpdateConfig) botApi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot notifies the operator about recorded applications and answers a couple of commands.
type Bot struct {
	api     apiInterface
	updates updatesSource
	log     log.FieldLogger

	mu       sync.Mutex
	chatID   int64
	recorded int
	lastJob  *events.ApplicationRecorded
	started  time.Time
}

func NewBot(token string, chatID int64, bus EventBus.Bus, logger log.FieldLogger) (*Bot, error) {

	api, err := botApi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	logger.Infof("Authorized on account %s", api.Self.UserName)

	return newBot(api, api, chatID, bus, logger)
}

func newBot(api apiInterface, updates updatesSource, chatID int64, bus EventBus.Bus, logger log.FieldLogger) (*Bot, error) {

	if bus == nil {
		return nil, errors.New("bus is nil")
	}

	createdBot := &Bot{
		api:     api,
		updates: updates,
		log:     logger.WithField("component", "bot"),
		chatID:  chatID,
		started: time.Now(),
	}

	err := bus.SubscribeAsync(events.ApplicationRecordedTopic, createdBot.onApplicationRecorded, true)
	if err != nil {
		return nil, err
	}
	return createdBot, nil
}

// Run handles incoming commands until the updates channel is closed by Stop.
func (b *Bot) Run() {

	updateConfig := botApi.NewUpdate(0)
	updateConfig.Timeout = 60

	for update := range b.updates.GetUpdatesChan(updateConfig) {

		if update.Message == nil || update.Message.Chat == nil {
			continue
		}

		if update.Message.Chat.IsGroup() || update.Message.Chat.IsSuperGroup() {
			continue
		}

		b.handleCommand(update.Message.Chat.ID, update.Message.Command())
	}
}

func (b *Bot) Stop() {
	b.updates.StopReceivingUpdates()
}

func (b *Bot) handleCommand(chatID int64, command string) {

	var text string

	switch command {
	case "start":
		b.mu.Lock()
		if b.chatID == 0 {
			b.chatID = chatID
		}
		b.mu.Unlock()
		text = fmt.Sprintf("Notifications for recorded applications go to chat %d", b.notifyChat())
	case "status":
		text = b.status()
	case "":
		return
	default:
		text = "Unknown command"
	}

	b.send(botApi.NewMessage(chatID, text))
}

func (b *Bot) status() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Applications recorded since %s: %d", b.started.Format(time.DateTime), b.recorded)
	if b.lastJob != nil {
		fmt.Fprintf(&sb, "\nLast: %s at %s", b.lastJob.Position, b.lastJob.Company)
	}
	return sb.String()
}

func (b *Bot) notifyChat() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chatID
}

func (b *Bot) onApplicationRecorded(event events.ApplicationRecorded) {

	b.mu.Lock()
	b.recorded++
	b.lastJob = &event
	chatID := b.chatID
	b.mu.Unlock()

	if chatID == 0 {
		b.log.Debugf("no chat to notify about job %s", event.JobID)
		return
	}

	b.send(botApi.NewMessage(chatID, formatApplication(event)))
}

func formatApplication(event events.ApplicationRecorded) string {

	var channels []string
	if event.ViaSeek {
		channels = append(channels, "Seek")
	}
	if event.ViaEmail {
		channels = append(channels, "email to "+strings.Join(event.EmailsContacted, ", "))
	}
	if len(channels) == 0 {
		channels = append(channels, "no channel succeeded")
	}

	return fmt.Sprintf("Applied: %s at %s (similarity %.2f)\nVia: %s\n%s",
		event.Position, event.Company, event.Similarity, strings.Join(channels, "; "), event.Link)
}

func (b *Bot) send(chattable botApi.Chattable) {
	if _, err := b.api.Send(chattable); err != nil {
		b.log.WithField(logger.ErrorTypeField, logger.ErrorTypeTgApi).
			Errorf("error occured while sending message: %v", err)
	}
}
