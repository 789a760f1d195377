package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/pkg/messaging"
)

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus()
	var got []string
	bus.Subscribe(func(ctx context.Context, e Event) { got = append(got, "first:"+string(e.Type)) })
	bus.Subscribe(func(ctx context.Context, e Event) { got = append(got, "second:"+string(e.Type)) })

	bus.Publish(context.Background(), Event{Type: PatientCreated})
	assert.Equal(t, []string{"first:patient.created", "second:patient.created"}, got)
}

func TestBusSurvivesPanickingHandler(t *testing.T) {
	bus := NewBus()
	called := false
	bus.Subscribe(func(ctx context.Context, e Event) { panic("boom") })
	bus.Subscribe(func(ctx context.Context, e Event) { called = true })

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), Event{Type: PatientDeleted})
	})
	assert.True(t, called)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	count := 0
	unsubscribe := bus.Subscribe(func(ctx context.Context, e Event) { count++ })

	bus.Publish(context.Background(), Event{Type: ReminderCreated})
	unsubscribe()
	unsubscribe()
	bus.Publish(context.Background(), Event{Type: ReminderCreated})
	assert.Equal(t, 1, count)
}

func TestBusStampsOccurredAt(t *testing.T) {
	bus := NewBus()
	var got Event
	bus.Subscribe(func(ctx context.Context, e Event) { got = e })
	bus.Publish(context.Background(), Event{Type: MedicationCreated})
	assert.False(t, got.OccurredAt.IsZero())
}

func TestRelayBetweenInstances(t *testing.T) {
	broker := messaging.NewMemoryBroker()
	defer broker.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	busA, busB := NewBus(), NewBus()

	var mu sync.Mutex
	var remoteA, remoteB []Event
	relayA := NewRelay(busA, broker, "a", func(ctx context.Context, e Event) {
		mu.Lock()
		remoteA = append(remoteA, e)
		mu.Unlock()
	}, nil, zerolog.Nop())
	relayB := NewRelay(busB, broker, "b", func(ctx context.Context, e Event) {
		mu.Lock()
		remoteB = append(remoteB, e)
		mu.Unlock()
	}, nil, zerolog.Nop())
	require.NoError(t, relayA.Start(ctx))
	require.NoError(t, relayB.Start(ctx))

	patientID := uuid.New()
	busA.Publish(ctx, Event{
		Type:      MedicationCreated,
		PatientID: patientID,
		Medication: &model.MedicationPlan{
			ID:        uuid.New(),
			PatientID: patientID,
			DoseTimes: model.DoseTimes{"08:00"},
			StartDate: model.ParseDate("2024-03-01"),
		},
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(remoteB) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, remoteA)
	e := remoteB[0]
	assert.Equal(t, MedicationCreated, e.Type)
	assert.Equal(t, "a", e.Source)
	assert.True(t, e.Remote())
	assert.Equal(t, patientID, e.PatientID)
	require.NotNil(t, e.Medication)
	assert.Equal(t, model.DoseTimes{"08:00"}, e.Medication.DoseTimes)
	assert.Equal(t, "2024-03-01", e.Medication.StartDate.String())
}
