package amqp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
)

type fakeChannel struct {
	exchanges  []string
	queues     []string
	bindings   [][3]string
	published  []amqp091.Publishing
	keys       []string
	publishErr error
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error {
	f.exchanges = append(f.exchanges, name+":"+kind)
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error) {
	f.queues = append(f.queues, name)
	return amqp091.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error {
	f.bindings = append(f.bindings, [3]string{name, key, exchange})
	return nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	f.keys = append(f.keys, exchange+"/"+key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func sampleExpense() core.Expense {
	return core.Expense{
		ID:       4,
		Amount:   core.AmountFromFloat(12.5),
		Category: "food",
		Note:     "lunch",
		Date:     core.NewTimestamp(time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)),
	}
}

func TestSetupDeclaresTopology(t *testing.T) {
	ch := &fakeChannel{}
	c := newClient(ch, "budget", "expense_events", nil)

	require.NoError(t, c.setup())
	assert.Equal(t, []string{"budget:direct"}, ch.exchanges)
	assert.Equal(t, []string{"expense_events"}, ch.queues)
	assert.Equal(t, [][3]string{{"expense_events", "expense_events", "budget"}}, ch.bindings)
}

func TestPublishExpenseAdded(t *testing.T) {
	ch := &fakeChannel{}
	c := newClient(ch, "budget", "expense_events", nil)

	require.NoError(t, c.PublishExpenseAdded(context.Background(), sampleExpense()))
	require.Len(t, ch.published, 1)

	pub := ch.published[0]
	assert.Equal(t, "budget/expense_events", ch.keys[0])
	assert.Equal(t, "application/json", pub.ContentType)
	assert.Equal(t, amqp091.Persistent, pub.DeliveryMode)
	assert.Equal(t, EventExpenseAdded, pub.Type)
	assert.NotEmpty(t, pub.MessageId)

	msg, err := ExpenseAddedMessageFromJSON(pub.Body)
	require.NoError(t, err)
	assert.Equal(t, pub.MessageId, msg.EventID)
	assert.Equal(t, int64(4), msg.ID)
	assert.True(t, msg.Amount.Equal(core.AmountFromFloat(12.5)))
	assert.Equal(t, "food", msg.Category)
	assert.Equal(t, "2025-01-02T03:04:05", msg.Date.String())
}

func TestPublishExpenseAddedError(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	c := newClient(ch, "budget", "expense_events", nil)

	err := c.PublishExpenseAdded(context.Background(), sampleExpense())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish message")
}

func TestNewExpenseAddedMessageUsesFreshEventIDs(t *testing.T) {
	a := NewExpenseAddedMessage(sampleExpense())
	b := NewExpenseAddedMessage(sampleExpense())
	assert.NotEqual(t, a.EventID, b.EventID)
}

func TestCloseWithoutConnection(t *testing.T) {
	ch := &fakeChannel{}
	c := newClient(ch, "budget", "expense_events", nil)

	require.NoError(t, c.Close())
	assert.True(t, ch.closed)
}
