// Package dispatch delivers pending invitations of an event, one calendar
// per guest, and reports per-guest outcomes.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"eventease/internal/ics"
	appLog "eventease/internal/log"
	"eventease/internal/mail"
	"eventease/internal/model"
)

const (
	DefaultWorkers     = 4
	DefaultSendTimeout = 30 * time.Second
)

// ErrInProgress is returned when a batch for the same event is already running.
var ErrInProgress = errors.New("dispatch already in progress for event")

// EventReader loads the event a batch belongs to.
type EventReader interface {
	GetEvent(ctx context.Context, id string) (model.Event, error)
}

// InvitationQueue is the invitation state the dispatcher reads and flips.
type InvitationQueue interface {
	ListPendingByEvent(ctx context.Context, eventID string) ([]model.Invitation, error)
	MarkSent(ctx context.Context, id string) error
}

// Options tunes a Dispatcher. Zero values select the defaults.
type Options struct {
	Workers     int
	SendTimeout time.Duration
}

// Failure is one invitation that was not delivered.
type Failure struct {
	InvitationID string `json:"invitation_id"`
	GuestEmail   string `json:"guest_email"`
	Cause        string `json:"cause"`
	Err          error  `json:"-"`
}

// Report summarizes one SendPending call.
type Report struct {
	EventID      string    `json:"event_id"`
	Attempted    int       `json:"attempted"`
	SuccessCount int       `json:"success_count"`
	FailureCount int       `json:"failure_count"`
	Failures     []Failure `json:"failures"`
	NothingToDo  bool      `json:"nothing_to_do"`
}

// Dispatcher sends invitation calendars through a mail.Transport.
type Dispatcher struct {
	events    EventReader
	queue     InvitationQueue
	gen       ics.Generator
	transport mail.Transport
	workers   int
	timeout   time.Duration

	mu       sync.Mutex
	inflight map[string]bool
}

// New wires a Dispatcher.
func New(events EventReader, queue InvitationQueue, gen ics.Generator, transport mail.Transport, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	return &Dispatcher{
		events:    events,
		queue:     queue,
		gen:       gen,
		transport: transport,
		workers:   opts.Workers,
		timeout:   opts.SendTimeout,
		inflight:  make(map[string]bool),
	}
}

type workItem struct {
	idx int
	inv model.Invitation
}

type workResult struct {
	idx int
	err error
}

// SendPending attempts every not-yet-sent invitation of eventID once.
// Individual delivery failures are reported, not returned; the error is
// reserved for failures that prevent the batch from starting.
func (d *Dispatcher) SendPending(ctx context.Context, eventID string) (Report, error) {
	report := Report{EventID: eventID, Failures: []Failure{}}

	if !d.acquire(eventID) {
		return report, ErrInProgress
	}
	defer d.release(eventID)

	ev, err := d.events.GetEvent(ctx, eventID)
	if err != nil {
		return report, fmt.Errorf("load event %s: %w", eventID, err)
	}
	pending, err := d.queue.ListPendingByEvent(ctx, eventID)
	if err != nil {
		return report, fmt.Errorf("list pending invitations: %w", err)
	}
	if len(pending) == 0 {
		report.NothingToDo = true
		appLog.Info("dispatch: nothing to send", "event_id", eventID)
		return report, nil
	}

	workers := d.workers
	if workers > len(pending) {
		workers = len(pending)
	}
	workCh := make(chan workItem)
	doneCh := make(chan workResult, len(pending))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range workCh {
				doneCh <- workResult{idx: w.idx, err: d.deliver(ctx, ev, w.inv)}
			}
		}()
	}
	for i, inv := range pending {
		workCh <- workItem{idx: i, inv: inv}
	}
	close(workCh)
	wg.Wait()
	close(doneCh)

	errs := make([]error, len(pending))
	for r := range doneCh {
		errs[r.idx] = r.err
	}

	report.Attempted = len(pending)
	for i, inv := range pending {
		if errs[i] == nil {
			report.SuccessCount++
			continue
		}
		report.FailureCount++
		report.Failures = append(report.Failures, Failure{
			InvitationID: inv.ID,
			GuestEmail:   inv.GuestEmail,
			Cause:        errs[i].Error(),
			Err:          errs[i],
		})
	}
	appLog.Info("dispatch: batch finished", "event_id", eventID,
		"attempted", report.Attempted, "sent", report.SuccessCount, "failed", report.FailureCount)
	return report, nil
}

// deliver runs generate, send and mark for one invitation.
func (d *Dispatcher) deliver(ctx context.Context, ev model.Event, inv model.Invitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := d.Compose(ev, inv)
	if err != nil {
		appLog.Error("dispatch: generate failed", err, "event_id", ev.ID, "invitation_id", inv.ID)
		return fmt.Errorf("generate calendar: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	err = d.transport.Send(sendCtx, msg)
	cancel()
	if err != nil {
		appLog.Error("dispatch: send failed", err, "event_id", ev.ID, "invitation_id", inv.ID, "guest", inv.GuestEmail)
		return fmt.Errorf("send: %w", err)
	}

	// Use the parent context: the send already happened and must be recorded.
	if err := d.queue.MarkSent(context.WithoutCancel(ctx), inv.ID); err != nil {
		appLog.Error("dispatch: mark sent failed", err, "event_id", ev.ID, "invitation_id", inv.ID)
		return fmt.Errorf("mark sent: %w", err)
	}
	appLog.Debug("dispatch: sent", "event_id", ev.ID, "invitation_id", inv.ID, "guest", inv.GuestEmail)
	return nil
}

// Compose builds the invitation message for one guest.
func (d *Dispatcher) Compose(ev model.Event, inv model.Invitation) (mail.Message, error) {
	data, err := d.gen.Generate(ev, inv)
	if err != nil {
		return mail.Message{}, err
	}
	start, end, err := d.gen.Window(ev)
	if err != nil {
		return mail.Message{}, err
	}
	return mail.Message{
		To:      inv.GuestEmail,
		ToName:  inv.GuestName,
		Subject: "Invitation: " + ev.Title,
		Body:    body(ev, inv, start, end),
		Attachment: &mail.Attachment{
			Filename:    ics.AttachmentName,
			ContentType: "text/calendar",
			Data:        data,
		},
	}, nil
}

func (d *Dispatcher) acquire(eventID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inflight[eventID] {
		return false
	}
	d.inflight[eventID] = true
	return true
}

func (d *Dispatcher) release(eventID string) {
	d.mu.Lock()
	delete(d.inflight, eventID)
	d.mu.Unlock()
}
