package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medivault-api/internal/model"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func (f *fakeWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func TestKafkaPublisherWritesEvents(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, 4, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	appt := &model.Appointment{ID: "a1", PatientID: "p1", DoctorID: "d1", Status: model.StatusScheduled}
	p.Publish(ctx, New(AppointmentCreated, model.Caller{ID: "p1", Role: model.RolePatient}, appt))

	require.Eventually(t, func() bool { return w.count() == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done

	msg := w.msgs[0]
	assert.Equal(t, "appointment.created", msg.Topic)
	assert.Equal(t, "a1", string(msg.Key))

	var got Event
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, AppointmentCreated, got.Type)
	assert.Equal(t, "p1", got.ActorID)
	assert.Equal(t, model.StatusScheduled, got.Status)
}

type tally struct {
	mu sync.Mutex
	n  map[string]int
}

func (t *tally) Event(eventType, result string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.n == nil {
		t.n = map[string]int{}
	}
	t.n[eventType+"/"+result]++
}

func TestKafkaPublisherDropsWhenFull(t *testing.T) {
	w := &fakeWriter{}
	rec := &tally{}
	p := newKafkaPublisher(w, 1, zerolog.Nop()).WithRecorder(rec)

	appt := &model.Appointment{ID: "a1"}
	caller := model.Caller{ID: "p1", Role: model.RolePatient}
	p.Publish(context.Background(), New(AppointmentCreated, caller, appt))
	p.Publish(context.Background(), New(AppointmentUpdated, caller, appt))

	assert.Len(t, p.ch, 1)

	// nothing running: flush on a cancelled context still drains the queue
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Run(ctx)
	assert.Equal(t, 1, w.count())
	assert.Equal(t, 1, rec.n["appointment.updated/dropped"])
	assert.Equal(t, 1, rec.n["appointment.created/written"])
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, SplitBrokers(" a:9092, ,b:9092 "))
	assert.Nil(t, SplitBrokers(""))
}
