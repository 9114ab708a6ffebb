package catalog

import (
	"errors"
	"strings"

	"github.com/appetiteclub/kiosk/pkg/lib/auth"
	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/google/uuid"
)

// Input is a create or update request body for E. Nil fields are left as
// they are on update.
type Input[E any] interface {
	Apply(e *E, creating bool) error
}

type ActivityInput struct {
	Name   *string `json:"name"`
	Active *bool   `json:"active"`
}

func (in ActivityInput) Apply(a *Activity, creating bool) error {
	v := core.NewValidationError()
	if in.Name != nil {
		a.Name = strings.TrimSpace(*in.Name)
	}
	if (creating || in.Name != nil) && a.Name == "" {
		v.Add("name", "is required")
	}
	if in.Active != nil {
		a.Active = *in.Active
	} else if creating {
		a.Active = true
	}
	return v.OrNil()
}

type RoomInput struct {
	Name *string `json:"name"`
}

func (in RoomInput) Apply(r *Room, creating bool) error {
	v := core.NewValidationError()
	if in.Name != nil {
		r.Name = strings.TrimSpace(*in.Name)
	}
	if (creating || in.Name != nil) && r.Name == "" {
		v.Add("name", "is required")
	}
	return v.OrNil()
}

type ProductInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
	Available   *bool   `json:"available"`
}

func (in ProductInput) Apply(p *Product, creating bool) error {
	v := core.NewValidationError()
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if (creating || in.Name != nil) && p.Name == "" {
		v.Add("name", "is required")
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		if *in.Price < 0 {
			v.Add("price", "must not be negative")
		}
		p.Price = *in.Price
	} else if creating {
		v.Add("price", "is required")
	}
	if in.Available != nil {
		p.Available = *in.Available
	} else if creating {
		p.Available = true
	}
	return v.OrNil()
}

type KioskInput struct {
	Name       *string `json:"name"`
	Username   *string `json:"username"`
	Password   *string `json:"password"`
	ActivityID *string `json:"activityId"`
	RoomID     *string `json:"roomId"`
}

func (in KioskInput) Apply(k *Kiosk, creating bool) error {
	v := core.NewValidationError()
	if in.Name != nil {
		k.Name = strings.TrimSpace(*in.Name)
	}
	if (creating || in.Name != nil) && k.Name == "" {
		v.Add("name", "is required")
	}
	if in.Username != nil {
		k.Username = auth.NormalizeUsername(*in.Username)
	}
	if (creating || in.Username != nil) && k.Username == "" {
		v.Add("username", "is required")
	}
	if in.ActivityID != nil {
		id, err := optionalID(*in.ActivityID)
		if err != nil {
			v.Add("activityId", "must be a valid id")
		}
		k.ActivityID = id
	}
	if in.RoomID != nil {
		id, err := optionalID(*in.RoomID)
		if err != nil {
			v.Add("roomId", "must be a valid id")
		}
		k.RoomID = id
	}
	setPassword(v, &k.PasswordHash, in.Password, creating)
	return v.OrNil()
}

type AdminInput struct {
	Username *string `json:"username"`
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

func (in AdminInput) Apply(a *Admin, creating bool) error {
	v := core.NewValidationError()
	if in.Username != nil {
		a.Username = auth.NormalizeUsername(*in.Username)
	}
	if (creating || in.Username != nil) && a.Username == "" {
		v.Add("username", "is required")
	}
	if in.Name != nil {
		a.Name = strings.TrimSpace(*in.Name)
	}
	setPassword(v, &a.PasswordHash, in.Password, creating)
	return v.OrNil()
}

func setPassword(v *core.ValidationError, hash *string, password *string, creating bool) {
	if password == nil {
		if creating {
			v.Add("password", "is required")
		}
		return
	}
	h, err := auth.HashPassword(*password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			v.Add("password", err.Error())
			return
		}
		v.Add("password", "cannot be hashed")
		return
	}
	*hash = h
}

func optionalID(s string) (*uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
