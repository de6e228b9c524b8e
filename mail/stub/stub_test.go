package stub

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pure-golang/mailer/mail"
)

func TestTransport_RecordsMessages(t *testing.T) {
	m, transport := NewMailer(nil)
	first := mail.NewMessage().WithSubject("first")
	second := mail.NewMessage().WithSubject("second")

	require.NoError(t, m.Send(context.Background(), first))
	require.NoError(t, m.Send(context.Background(), second))

	messages := transport.Messages()
	require.Len(t, messages, 2)
	assert.Same(t, first, messages[0])
	assert.Same(t, second, messages[1])
}

func TestTransport_RecordsMessagesWithSettingsApplied(t *testing.T) {
	m, transport := NewMailer(&mail.PipelineOptions{
		Settings: &mail.MessageSettings{From: mail.Addresses("robot@example.com")},
	})

	require.NoError(t, m.Send(context.Background(), mail.NewMessage()))

	messages := transport.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, mail.Addresses("robot@example.com"), messages[0].From())
}

func TestTransport_SendMultiple(t *testing.T) {
	m, transport := NewMailer(nil)
	batch := []*mail.Message{mail.NewMessage(), mail.NewMessage(), mail.NewMessage()}

	results := m.SendMultiple(context.Background(), batch)

	assert.Len(t, results.SuccessMessages, 3)
	assert.Empty(t, results.FailMessages)
	assert.Len(t, transport.Messages(), 3)
}

func TestTransport_MessagesReturnsCopy(t *testing.T) {
	transport := NewTransport()
	require.NoError(t, transport.SendMessage(context.Background(), mail.NewMessage()))

	messages := transport.Messages()
	messages[0] = nil

	assert.NotNil(t, transport.Messages()[0])
}

func TestTransport_Reset(t *testing.T) {
	transport := NewTransport()
	require.NoError(t, transport.SendMessage(context.Background(), mail.NewMessage()))

	transport.Reset()

	assert.Empty(t, transport.Messages())
}

func TestTransport_ConcurrentSends(t *testing.T) {
	transport := NewTransport()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = transport.SendMessage(context.Background(), mail.NewMessage())
		}()
	}
	wg.Wait()

	assert.Len(t, transport.Messages(), 50)
}
