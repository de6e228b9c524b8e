package noop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pure-golang/mailer/mail"
)

func testMessages() []*mail.Message {
	return []*mail.Message{
		mail.NewMessage().
			WithFrom(mail.Address{Address: "test@example.com"}).
			WithTo(mail.Address{Address: "to@example.com"}).
			WithSubject("Test").
			WithTextBody("Test body"),
		mail.NewMessage().WithSubject("Second"),
	}
}

func TestMailer_Send(t *testing.T) {
	m := NewMailer()

	err := m.Send(context.Background(), testMessages()[0])
	assert.NoError(t, err)
}

func TestMailer_SendMultiple(t *testing.T) {
	m := NewMailer()
	messages := testMessages()

	results := m.SendMultiple(context.Background(), messages)

	require.Len(t, results.SuccessMessages, 2)
	assert.Same(t, messages[0], results.SuccessMessages[0])
	assert.Same(t, messages[1], results.SuccessMessages[1])
	assert.Empty(t, results.FailMessages)
	assert.NoError(t, results.Err())
}

func TestMailer_SendMultiple_EmptyList(t *testing.T) {
	results := NewMailer().SendMultiple(context.Background(), nil)

	assert.Empty(t, results.SuccessMessages)
	assert.Empty(t, results.FailMessages)
}

func TestMailer_Close(t *testing.T) {
	m := NewMailer()

	assert.NoError(t, m.Close())
	assert.NoError(t, m.Close())
	assert.NoError(t, m.Send(context.Background(), testMessages()[0]))
}

func TestTransport_BehindPipeline(t *testing.T) {
	listeners := mail.NewListeners()
	var after int
	listeners.OnAfterSend(func(context.Context, *mail.AfterSend) { after++ })

	m := mail.NewPipeline(NewTransport(), &mail.PipelineOptions{Dispatcher: listeners, Name: "noop"})

	results := m.SendMultiple(context.Background(), testMessages())

	assert.Len(t, results.SuccessMessages, 2)
	assert.Equal(t, 2, after)
}
