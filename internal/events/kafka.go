package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher queues events in memory and writes them from a single
// goroutine started with Run. The topic of each message is the event type.
type KafkaPublisher struct {
	w   messageWriter
	ch  chan Event
	log zerolog.Logger
	rec Recorder
}

// Recorder counts delivery outcomes per event type.
type Recorder interface {
	Event(eventType, result string)
}

type nopRecorder struct{}

func (nopRecorder) Event(string, string) {}

func NewKafkaPublisher(brokers []string, buffer int, log zerolog.Logger) *KafkaPublisher {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Balancer: &kafka.Hash{},
	})
	return newKafkaPublisher(w, buffer, log)
}

func newKafkaPublisher(w messageWriter, buffer int, log zerolog.Logger) *KafkaPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &KafkaPublisher{w: w, ch: make(chan Event, buffer), log: log, rec: nopRecorder{}}
}

func (p *KafkaPublisher) WithRecorder(r Recorder) *KafkaPublisher {
	if r != nil {
		p.rec = r
	}
	return p
}

// Publish never blocks; when the queue is full the event is dropped.
func (p *KafkaPublisher) Publish(_ context.Context, e Event) {
	select {
	case p.ch <- e:
	default:
		p.rec.Event(string(e.Type), "dropped")
		p.log.Warn().
			Str("event_type", string(e.Type)).
			Str("appointment_id", e.AppointmentID).
			Msg("event queue full, dropping event")
	}
}

// Run writes queued events until ctx is cancelled, then flushes what is left.
func (p *KafkaPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.flush()
			return
		case e := <-p.ch:
			p.write(ctx, e)
		}
	}
}

func (p *KafkaPublisher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case e := <-p.ch:
			p.write(ctx, e)
		default:
			return
		}
	}
}

func (p *KafkaPublisher) write(ctx context.Context, e Event) {
	msg, err := toMessage(e)
	if err != nil {
		p.rec.Event(string(e.Type), "failed")
		p.log.Error().Err(err).Str("event_type", string(e.Type)).Msg("encode event")
		return
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		p.rec.Event(string(e.Type), "failed")
		p.log.Error().Err(err).
			Str("event_type", string(e.Type)).
			Str("appointment_id", e.AppointmentID).
			Msg("kafka publish failed")
		return
	}
	p.rec.Event(string(e.Type), "written")
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

func toMessage(e Event) (kafka.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Topic: string(e.Type),
		Key:   []byte(e.AppointmentID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(e.ID)},
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}, nil
}
