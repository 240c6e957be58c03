package bridge

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/Cloudbox/internal/mq"
)

const (
	defaultEventBuffer    = 256
	defaultPublishTimeout = 5 * time.Second
)

// pendingEvent — отложенная публикация.
type pendingEvent struct {
	kind    mq.MessageType
	publish func(ctx context.Context) error
}

// eventRelay публикует события в своей горутине.
//
// Воркер только кладёт событие в буфер и никогда не ждёт брокер.
// При переполненном буфере событие отбрасывается, каждая публикация
// ограничена publishTimeout.
type eventRelay struct {
	events  EventPublisher
	pending chan pendingEvent
	timeout time.Duration
	logger  *slog.Logger
}

func newEventRelay(events EventPublisher, buffer int, timeout time.Duration, logger *slog.Logger) *eventRelay {
	if events == nil {
		return nil
	}
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	return &eventRelay{
		events:  events,
		pending: make(chan pendingEvent, buffer),
		timeout: orDefault(timeout, defaultPublishTimeout),
		logger:  logger,
	}
}

// run публикует события до отмены ctx. Оставшиеся в буфере теряются.
func (r *eventRelay) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.pending:
			r.publish(ctx, ev)
		}
	}
}

func (r *eventRelay) publish(ctx context.Context, ev pendingEvent) {
	pubCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := ev.publish(pubCtx); err != nil {
		eventsTotal.WithLabelValues(string(ev.kind), "error").Inc()
		r.logger.Warn("failed to publish event", "type", ev.kind, "error", err)
		return
	}
	eventsTotal.WithLabelValues(string(ev.kind), "ok").Inc()
}

// enqueue не блокируется. nil relay — события отключены.
func (r *eventRelay) enqueue(ev pendingEvent) {
	if r == nil {
		return
	}
	select {
	case r.pending <- ev:
	default:
		eventsTotal.WithLabelValues(string(ev.kind), "dropped").Inc()
		r.logger.Warn("event buffer full, event dropped", "type", ev.kind)
	}
}

func (r *eventRelay) fileUploaded(p mq.FileUploadedPayload) {
	if r == nil {
		return
	}
	r.enqueue(pendingEvent{kind: mq.MessageTypeFileUploaded, publish: func(ctx context.Context) error {
		return r.events.PublishFileUploaded(ctx, p)
	}})
}

func (r *eventRelay) uploadFailed(p mq.UploadFailedPayload) {
	if r == nil {
		return
	}
	r.enqueue(pendingEvent{kind: mq.MessageTypeUploadFailed, publish: func(ctx context.Context) error {
		return r.events.PublishUploadFailed(ctx, p)
	}})
}

func (r *eventRelay) filesDeleted(p mq.FilesDeletedPayload) {
	if r == nil {
		return
	}
	r.enqueue(pendingEvent{kind: mq.MessageTypeFileDeleted, publish: func(ctx context.Context) error {
		return r.events.PublishFilesDeleted(ctx, p)
	}})
}
