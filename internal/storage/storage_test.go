package storage

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/styleshift/internal/camera"
	"github.com/lehigh-university-libraries/styleshift/internal/models"
	"github.com/lehigh-university-libraries/styleshift/internal/session"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newStore(c *clock) *SessionStore {
	return New(func(id string) *session.Machine {
		return session.New(id, session.Options{Now: c.Now})
	})
}

func TestCreateGetDelete(t *testing.T) {
	store := newStore(&clock{now: time.Now()})

	m := store.Create()
	if _, err := uuid.Parse(m.ID()); err != nil {
		t.Errorf("Expected uuid session id, got %q", m.ID())
	}
	if got, ok := store.Get(m.ID()); !ok || got != m {
		t.Fatalf("Expected session to be stored")
	}
	if store.Len() != 1 {
		t.Errorf("Expected 1 session, got %d", store.Len())
	}

	if !store.Delete(m.ID()) {
		t.Errorf("Expected delete to report an existing session")
	}
	if store.Delete(m.ID()) {
		t.Errorf("Expected second delete to report a missing session")
	}
	if _, ok := store.Get(m.ID()); ok {
		t.Errorf("Expected session to be gone")
	}
}

func TestAllOrdersByCreation(t *testing.T) {
	c := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := newStore(c)

	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, store.Create().ID())
		c.now = c.now.Add(time.Minute)
	}

	all := store.All()
	if len(all) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(all))
	}
	for i, m := range all {
		if m.ID() != ids[i] {
			t.Errorf("Expected session %d to be %s, got %s", i, ids[i], m.ID())
		}
	}
}

func TestSweep(t *testing.T) {
	c := &clock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := newStore(c)

	stale := store.Create()
	c.now = c.now.Add(50 * time.Minute)
	fresh := store.Create()

	c.now = c.now.Add(20 * time.Minute)
	fresh.SetAllowSensitive(true)

	removed := store.Sweep(c.now, time.Hour)
	if removed != 1 {
		t.Errorf("Expected 1 session swept, got %d", removed)
	}
	if _, ok := store.Get(stale.ID()); ok {
		t.Errorf("Expected stale session to be swept")
	}
	if _, ok := store.Get(fresh.ID()); !ok {
		t.Errorf("Expected fresh session to survive")
	}
}

func TestDeleteReleasesCamera(t *testing.T) {
	device := camera.NewStillDevice(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	store := New(func(id string) *session.Machine {
		return session.New(id, session.Options{Camera: camera.NewAdapter(device, models.FacingUser)})
	})

	m := store.Create()
	if err := m.OpenCamera(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if device.OpenStreams() != 1 {
		t.Fatalf("Expected open stream, got %d", device.OpenStreams())
	}

	store.Close()
	if device.OpenStreams() != 0 {
		t.Errorf("Expected camera released on close, got %d streams", device.OpenStreams())
	}
	if store.Len() != 0 {
		t.Errorf("Expected empty store, got %d", store.Len())
	}
}
