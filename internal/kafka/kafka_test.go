package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/Domenick1991/rentwheels/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockWriter) Close() error {
	return m.Called().Error(0)
}

type sliceReader struct {
	msgs []kafka.Message
}

func (r *sliceReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *sliceReader) Close() error { return nil }

func TestProducer_Publish(t *testing.T) {
	writer := &MockWriter{}
	p := &Producer{writer: writer}
	event := domain.BookingEvent{Type: domain.EventBookingConfirmed, BookingID: "b1"}

	writer.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		var got domain.BookingEvent
		if len(msgs) != 1 || json.Unmarshal(msgs[0].Value, &got) != nil {
			return false
		}
		return msgs[0].Topic == "bookings" && string(msgs[0].Key) == "b1" && got.BookingID == "b1"
	})).Return(nil).Once()

	require.NoError(t, p.Publish(context.Background(), "bookings", "b1", event))
	writer.AssertExpectations(t)
}

func TestProducer_PublishError(t *testing.T) {
	writer := &MockWriter{}
	p := &Producer{writer: writer}
	writer.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	err := p.Publish(context.Background(), "bookings", "b1", domain.BookingEvent{})
	assert.ErrorContains(t, err, "broker down")
}

func TestConsumer_ConsumeEvents_SkipsGarbage(t *testing.T) {
	good, err := json.Marshal(domain.BookingEvent{Type: domain.EventBookingCancelled, BookingID: "b2"})
	require.NoError(t, err)
	c := &Consumer{reader: &sliceReader{msgs: []kafka.Message{{Value: []byte("{not json")}, {Value: good}}}}

	var seen []string
	err = c.ConsumeEvents(context.Background(), func(ctx context.Context, e domain.BookingEvent) error {
		seen = append(seen, e.BookingID)
		return nil
	})
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"b2"}, seen)
}
