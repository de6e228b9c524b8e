package mail

import (
	"context"
	"sync"
)

// Event is dispatched around each send.
type Event interface {
	Message() *Message
}

// BeforeSend is dispatched right before a message is handed to the transport.
// Listeners may cancel sending with PreventSendingMessage.
type BeforeSend struct {
	message *Message
	prevent bool
}

// NewBeforeSend creates a BeforeSend event for message.
func NewBeforeSend(message *Message) *BeforeSend {
	return &BeforeSend{message: message}
}

// Message returns the message being sent.
func (e *BeforeSend) Message() *Message { return e.message }

// PreventSendingMessage cancels sending of the message.
func (e *BeforeSend) PreventSendingMessage() { e.prevent = true }

// IsSendingPrevented reports whether a listener cancelled sending.
func (e *BeforeSend) IsSendingPrevented() bool { return e.prevent }

// AfterSend is dispatched after the transport accepted a message.
type AfterSend struct {
	message *Message
}

// NewAfterSend creates an AfterSend event for message.
func NewAfterSend(message *Message) *AfterSend {
	return &AfterSend{message: message}
}

// Message returns the sent message.
func (e *AfterSend) Message() *Message { return e.message }

// Dispatcher delivers events to observers and returns the resulting event.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) Event
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, event Event) Event

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(ctx context.Context, event Event) Event {
	return f(ctx, event)
}

var _ Dispatcher = (*Listeners)(nil)

// Listeners is a synchronous Dispatcher calling typed listeners in
// registration order. It is safe for concurrent use.
type Listeners struct {
	mx     sync.RWMutex
	before []func(ctx context.Context, event *BeforeSend)
	after  []func(ctx context.Context, event *AfterSend)
}

// NewListeners creates an empty listener registry.
func NewListeners() *Listeners {
	return &Listeners{}
}

// OnBeforeSend registers fn for BeforeSend events.
func (l *Listeners) OnBeforeSend(fn func(ctx context.Context, event *BeforeSend)) {
	l.mx.Lock()
	defer l.mx.Unlock()
	l.before = append(l.before, fn)
}

// OnAfterSend registers fn for AfterSend events.
func (l *Listeners) OnAfterSend(fn func(ctx context.Context, event *AfterSend)) {
	l.mx.Lock()
	defer l.mx.Unlock()
	l.after = append(l.after, fn)
}

// Dispatch calls the listeners registered for the event type. Dispatching
// BeforeSend stops at the first listener preventing the send.
func (l *Listeners) Dispatch(ctx context.Context, event Event) Event {
	l.mx.RLock()
	before := l.before
	after := l.after
	l.mx.RUnlock()

	switch e := event.(type) {
	case *BeforeSend:
		for _, fn := range before {
			if e.IsSendingPrevented() {
				break
			}
			fn(ctx, e)
		}
	case *AfterSend:
		for _, fn := range after {
			fn(ctx, e)
		}
	}
	return event
}
