package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/maxaizer/seek-applier/internal/entities"
	"github.com/samber/lo"
	"sort"
	"strings"
	"time"
)

const LedgerDocumentID = "ledger"

type ledgerData struct {
	Jobs         map[string]entities.Application  `json:"jobs"`
	EmailHistory map[string]entities.EmailContact `json:"email_history"`
}

func emptyLedger() ledgerData {
	return ledgerData{
		Jobs:         map[string]entities.Application{},
		EmailHistory: map[string]entities.EmailContact{},
	}
}

// Ledger is the durable record of applied jobs and contacted addresses. Mutations stay in memory
// until Flush.
type Ledger struct {
	store    Blob
	cooldown time.Duration
	data     ledgerData
}

func NewLedger(store Blob, cooldown time.Duration) *Ledger {
	return &Ledger{store: store, cooldown: cooldown, data: emptyLedger()}
}

// Load replaces the in-memory state with the stored one; a missing ledger loads as empty.
func (l *Ledger) Load(ctx context.Context) error {

	raw, err := l.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("error reading ledger: %w", err)
	}

	data := emptyLedger()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("error decoding ledger: %w", err)
		}
		if data.Jobs == nil {
			data.Jobs = map[string]entities.Application{}
		}
		data.EmailHistory = normalizeEmailHistory(data.EmailHistory)
	}

	l.data = data
	return nil
}

func (l *Ledger) IsJobApplied(jobID string) bool {
	_, ok := l.data.Jobs[jobID]
	return ok
}

func (l *Ledger) Application(jobID string) (entities.Application, bool) {
	application, ok := l.data.Jobs[jobID]
	return application, ok
}

func (l *Ledger) JobsCount() int {
	return len(l.data.Jobs)
}

// ShouldSkipEmail reports whether the address was contacted within the cooldown window.
func (l *Ledger) ShouldSkipEmail(email string, now time.Time) bool {
	contact, ok := l.data.EmailHistory[emailKey(email)]
	if !ok {
		return false
	}
	return now.Sub(contact.LastContacted.Time) < l.cooldown
}

func (l *Ledger) EmailContact(email string) (entities.EmailContact, bool) {
	contact, ok := l.data.EmailHistory[emailKey(email)]
	return contact, ok
}

func (l *Ledger) RecordApplication(jobID string, application entities.Application) {
	if application.EmailsContacted == nil {
		application.EmailsContacted = []string{}
	}
	l.data.Jobs[jobID] = application
}

func (l *Ledger) RecordEmailContact(email, jobID string, now time.Time) {
	key := emailKey(email)
	contact := l.data.EmailHistory[key]
	contact.LastContacted = entities.NewTimestamp(now)
	contact.JobsContacted = append(contact.JobsContacted, jobID)
	l.data.EmailHistory[key] = contact
}

// Flush rewrites the whole ledger.
func (l *Ledger) Flush(ctx context.Context) error {

	raw, err := json.MarshalIndent(l.data, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding ledger: %w", err)
	}

	if err := l.store.Save(ctx, raw); err != nil {
		return fmt.Errorf("error writing ledger: %w", err)
	}
	return nil
}

// normalizeEmailHistory re-keys entries written with raw addresses. Entries that collide are merged
// into the latest contact time and the union of their jobs.
func normalizeEmailHistory(history map[string]entities.EmailContact) map[string]entities.EmailContact {

	normalized := make(map[string]entities.EmailContact, len(history))

	keys := lo.Keys(history)
	sort.Strings(keys)

	for _, raw := range keys {
		contact := history[raw]
		key := emailKey(raw)

		existing, ok := normalized[key]
		if !ok {
			normalized[key] = contact
			continue
		}

		if contact.LastContacted.After(existing.LastContacted.Time) {
			existing.LastContacted = contact.LastContacted
		}
		existing.JobsContacted = lo.Uniq(append(existing.JobsContacted, contact.JobsContacted...))
		normalized[key] = existing
	}

	return normalized
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
