package catalog

import "time"

// PublicKiosk is what clients see of a kiosk. It never carries the password hash.
type PublicKiosk struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	ActivityID   string    `json:"activityId,omitempty"`
	RoomID       string    `json:"roomId,omitempty"`
	ReaderPaired bool      `json:"readerPaired"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type PublicAdmin struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func ToPublicKiosk(k *Kiosk) (PublicKiosk, error) {
	p := PublicKiosk{
		ID:           k.ID.String(),
		Name:         k.Name,
		Username:     k.Username,
		ReaderPaired: k.ReaderID != "",
		CreatedAt:    k.CreatedAt,
		UpdatedAt:    k.UpdatedAt,
	}
	if k.ActivityID != nil {
		p.ActivityID = k.ActivityID.String()
	}
	if k.RoomID != nil {
		p.RoomID = k.RoomID.String()
	}
	return p, nil
}

func ToPublicAdmin(a *Admin) (PublicAdmin, error) {
	return PublicAdmin{
		ID:        a.ID.String(),
		Username:  a.Username,
		Name:      a.Name,
		CreatedAt: a.CreatedAt,
	}, nil
}

func ToPublicActivity(a *Activity) (*Activity, error) { return a, nil }
func ToPublicRoom(r *Room) (*Room, error)             { return r, nil }
func ToPublicProduct(p *Product) (*Product, error)    { return p, nil }
