package authn

import (
	"context"
	"net/http"

	"github.com/appetiteclub/kiosk/pkg/enums/principal"
	"github.com/appetiteclub/kiosk/pkg/event"
	"github.com/google/uuid"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	Type principal.Type `json:"type"`
	ID   uuid.UUID      `json:"id"`
}

func (p Principal) IsAdmin() bool { return p.Type == principal.Admin }
func (p Principal) IsKiosk() bool { return p.Type == principal.Kiosk }

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Rooms returns the real-time rooms a principal joins.
func (p Principal) Rooms() []string {
	if p.IsAdmin() {
		return []string{event.RoomAdmins}
	}
	return []string{p.ID.String()}
}

// RealtimeAuthorizer admits requests already resolved by Middleware.
func RealtimeAuthorizer(r *http.Request) ([]string, bool) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		return nil, false
	}
	return p.Rooms(), true
}
