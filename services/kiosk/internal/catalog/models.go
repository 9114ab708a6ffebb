package catalog

import (
	"time"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/google/uuid"
)

type Activity struct {
	ID        uuid.UUID `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Active    bool      `json:"active" bson:"active"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

func (a *Activity) GetID() uuid.UUID { return a.ID }

func (a *Activity) BeforeCreate() {
	if a.ID == uuid.Nil {
		a.ID = core.GenerateNewID()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
}

func (a *Activity) BeforeUpdate() {
	a.UpdatedAt = time.Now()
}

type Room struct {
	ID        uuid.UUID `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

func (r *Room) GetID() uuid.UUID { return r.ID }

func (r *Room) BeforeCreate() {
	if r.ID == uuid.Nil {
		r.ID = core.GenerateNewID()
	}
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
}

func (r *Room) BeforeUpdate() {
	r.UpdatedAt = time.Now()
}

// Product prices are in minor currency units.
type Product struct {
	ID          uuid.UUID `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Price       int64     `json:"price" bson:"price"`
	Available   bool      `json:"available" bson:"available"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

func (p *Product) GetID() uuid.UUID { return p.ID }

func (p *Product) BeforeCreate() {
	if p.ID == uuid.Nil {
		p.ID = core.GenerateNewID()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
}

func (p *Product) BeforeUpdate() {
	p.UpdatedAt = time.Now()
}

// Kiosk is a self-service terminal. It is placed in one room serving one
// activity and may have a card reader paired to it.
type Kiosk struct {
	ID           uuid.UUID  `bson:"_id"`
	Name         string     `bson:"name"`
	Username     string     `bson:"username"`
	PasswordHash string     `bson:"password_hash"`
	ActivityID   *uuid.UUID `bson:"activity_id,omitempty"`
	RoomID       *uuid.UUID `bson:"room_id,omitempty"`
	ReaderID     string     `bson:"reader_id,omitempty"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

func (k *Kiosk) GetID() uuid.UUID { return k.ID }

func (k *Kiosk) BeforeCreate() {
	if k.ID == uuid.Nil {
		k.ID = core.GenerateNewID()
	}
	k.CreatedAt = time.Now()
	k.UpdatedAt = k.CreatedAt
}

func (k *Kiosk) BeforeUpdate() {
	k.UpdatedAt = time.Now()
}

type Admin struct {
	ID           uuid.UUID `bson:"_id"`
	Username     string    `bson:"username"`
	Name         string    `bson:"name"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (a *Admin) GetID() uuid.UUID { return a.ID }

func (a *Admin) BeforeCreate() {
	if a.ID == uuid.Nil {
		a.ID = core.GenerateNewID()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
}

func (a *Admin) BeforeUpdate() {
	a.UpdatedAt = time.Now()
}
