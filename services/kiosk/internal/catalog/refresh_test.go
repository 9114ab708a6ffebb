package catalog

import (
	"context"
	"net/http"
	"testing"

	"github.com/appetiteclub/kiosk/services/kiosk/internal/realtime"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func TestRefreshHandler(t *testing.T) {
	ctx := context.Background()
	stores := NewMemoryStores()
	hub := realtime.NewHub(nil)
	ch := realtime.NewChannel(hub, nil, nil)

	k := &Kiosk{ID: uuid.New(), Name: "Hall A", Username: "hall-a"}
	if err := stores.Kiosks.Create(ctx, k); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	r := chi.NewRouter()
	h := NewRefreshHandler(ch, stores.Kiosks, nil)
	NewResource[Kiosk, KioskInput, PublicKiosk]("kiosks", stores.Kiosks, ToPublicKiosk, nil).Mount(r, nil, h.Routes)

	if rec := do(r, http.MethodPost, "/kiosks/refresh", ``); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("before init status = %d, want 503", rec.Code)
	}
	_ = ch.Initialize(ctx)

	inRoom := hub.Register(k.ID.String())
	other := hub.Register(uuid.NewString())

	if rec := do(r, http.MethodPost, "/kiosks/"+k.ID.String()+"/refresh", ``); rec.Code != http.StatusOK {
		t.Fatalf("refresh one status = %d", rec.Code)
	}
	if rec := do(r, http.MethodPost, "/kiosks/"+uuid.NewString()+"/refresh", ``); rec.Code != http.StatusNotFound {
		t.Errorf("unknown kiosk status = %d, want 404", rec.Code)
	}
	if rec := do(r, http.MethodPost, "/kiosks/refresh", ``); rec.Code != http.StatusOK {
		t.Fatalf("refresh all status = %d", rec.Code)
	}

	if n := len(inRoom.Messages()); n != 2 {
		t.Errorf("kiosk in room got %d messages, want 2", n)
	}
	if n := len(other.Messages()); n != 1 {
		t.Errorf("other kiosk got %d messages, want 1", n)
	}
}
