package notifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/asaskevich/EventBus"
	"github.com/avwatch/pilot-tracker/internal/config"
	"github.com/avwatch/pilot-tracker/internal/events"
	"github.com/avwatch/pilot-tracker/internal/logger"
	"github.com/avwatch/pilot-tracker/internal/services"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Notifier forwards reconciliation deltas to Telegram. It is send-only: one
// summary per cycle plus an individual message per opened, updated and closed
// job, rate-limited and deduplicated so a flapping source can't spam a chat.
type Notifier struct {
	api        *botApi.BotAPI
	bus        EventBus.Bus
	recipients []int64
	limiter    *rate.Limiter
	sent       *gocache.Cache
}

func NewNotifier(cfg config.TelegramConfig, bus EventBus.Bus) (*Notifier, error) {

	api, err := botApi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	log.Infof("Authorized on account %s", api.Self.UserName)

	if bus == nil {
		return nil, errors.New("bus is nil")
	}

	var recipients []int64
	if cfg.ChatID != 0 {
		recipients = append(recipients, cfg.ChatID)
	}
	if cfg.GroupID != 0 {
		recipients = append(recipients, cfg.GroupID)
	}
	if len(recipients) == 0 {
		return nil, errors.New("no telegram recipients configured")
	}

	n := &Notifier{
		api:        api,
		bus:        bus,
		recipients: recipients,
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
		sent:       gocache.New(notificationDedupeWindow, 2*notificationDedupeWindow),
	}

	if err = bus.Subscribe(events.JobOpenedTopic, n.onJobOpened); err != nil {
		return nil, err
	}
	if err = bus.Subscribe(events.JobUpdatedTopic, n.onJobUpdated); err != nil {
		return nil, err
	}
	if err = bus.Subscribe(events.JobClosedTopic, n.onJobClosed); err != nil {
		return nil, err
	}
	if err = bus.Subscribe(events.CycleCompletedTopic, n.onCycleCompleted); err != nil {
		return nil, err
	}

	return n, nil
}

func (n *Notifier) Stop() {
	_ = n.bus.Unsubscribe(events.JobOpenedTopic, n.onJobOpened)
	_ = n.bus.Unsubscribe(events.JobUpdatedTopic, n.onJobUpdated)
	_ = n.bus.Unsubscribe(events.JobClosedTopic, n.onJobClosed)
	_ = n.bus.Unsubscribe(events.CycleCompletedTopic, n.onCycleCompleted)
}

func (n *Notifier) onJobOpened(event events.JobOpened) {
	status := statusOpened
	if event.Reopened {
		status = statusReopened
	}
	n.sendOnce(dedupeKey(string(status), event.Job.Source, event.Job.ExternalID,
		services.ComputeContentHash(event.Job)), formatJobMessage(event.Job, status))
}

func (n *Notifier) onJobUpdated(event events.JobUpdated) {
	n.sendOnce(dedupeKey(string(statusUpdated), event.Job.Source, event.Job.ExternalID,
		services.ComputeContentHash(event.Job)), formatJobMessage(event.Job, statusUpdated))
}

func (n *Notifier) onJobClosed(event events.JobClosed) {
	n.sendOnce(dedupeKey(string(statusClosed), event.Job.Source, event.Job.ExternalID,
		services.ComputeContentHash(closedRecord(event.Job))), formatClosedMessage(event.Job))
}

func (n *Notifier) onCycleCompleted(event events.CycleCompleted) {
	n.send(formatSummaryMessage(event))
}

// sendOnce suppresses messages already sent within the dedupe window, e.g.
// when a job flaps between cycles because a source is unstable.
func (n *Notifier) sendOnce(key string, text string) {
	if _, found := n.sent.Get(key); found {
		return
	}
	n.send(text)
	if err := n.sent.Add(key, "", gocache.DefaultExpiration); err != nil {
		log.Errorf("failed to record sent notification: %v", err)
	}
}

func (n *Notifier) send(text string) {

	for _, recipient := range n.recipients {

		if err := n.limiter.Wait(context.Background()); err != nil {
			return
		}

		message := botApi.NewMessage(recipient, text)
		message.ParseMode = botApi.ModeMarkdown
		message.DisableWebPagePreview = true

		if _, err := n.api.Send(message); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeTgApi).
				Errorf("failed to send notification to %v: %v", recipient, err)
		}
	}
}

func dedupeKey(parts ...string) string {
	joined := ""
	for _, part := range parts {
		joined += part + "|"
	}
	digest := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(digest[:])
}
