// Package session describes login sessions as the session store persists
// them and as connected clients are allowed to see them.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/kiosk/pkg/enums/principal"
)

var ErrInvalidBlob = errors.New("session: invalid blob")

// Record is a stored session. Session holds the serialized Data.
type Record struct {
	ID      string    `bson:"_id"`
	Expires time.Time `bson:"expires"`
	Session string    `bson:"session"`
}

// Data is the content of the session blob.
type Data struct {
	IP           string     `json:"ip,omitempty"`
	LoginTime    time.Time  `json:"loginTime"`
	LastActivity time.Time  `json:"lastActivity"`
	UserAgent    string     `json:"userAgent,omitempty"`
	Principal    *Principal `json:"principal,omitempty"`
}

type Principal struct {
	Type principal.Type `json:"type"`
	ID   string         `json:"id"`
}

func Encode(d Data) (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func Parse(r *Record) (Data, error) {
	var d Data
	if r.Session == "" {
		return d, fmt.Errorf("%w: empty", ErrInvalidBlob)
	}
	if err := json.Unmarshal([]byte(r.Session), &d); err != nil {
		return d, fmt.Errorf("%w: %v", ErrInvalidBlob, err)
	}
	if d.Principal != nil && !d.Principal.Type.Valid() {
		return d, fmt.Errorf("%w: unknown principal type %q", ErrInvalidBlob, d.Principal.Type)
	}
	return d, nil
}

func (r *Record) Expired(now time.Time) bool {
	return !r.Expires.IsZero() && !now.Before(r.Expires)
}

// Public is the client view of a session. The session id is a bearer
// credential, so clients only see a digest of it.
type Public struct {
	ID            string     `json:"id"`
	Expires       time.Time  `json:"expires"`
	IP            string     `json:"ip,omitempty"`
	LoginTime     *time.Time `json:"loginTime,omitempty"`
	LastActivity  *time.Time `json:"lastActivity,omitempty"`
	UserAgent     string     `json:"userAgent,omitempty"`
	PrincipalType string     `json:"principalType,omitempty"`
	UserID        string     `json:"userId,omitempty"`
}

func PublicID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:12])
}

func ToPublic(r *Record) (Public, error) {
	d, err := Parse(r)
	if err != nil {
		return Public{}, err
	}
	p := Public{
		ID:        PublicID(r.ID),
		Expires:   r.Expires,
		IP:        d.IP,
		UserAgent: d.UserAgent,
	}
	if !d.LoginTime.IsZero() {
		t := d.LoginTime
		p.LoginTime = &t
	}
	if !d.LastActivity.IsZero() {
		t := d.LastActivity
		p.LastActivity = &t
	}
	if d.Principal != nil {
		p.PrincipalType = string(d.Principal.Type)
		p.UserID = d.Principal.ID
	}
	return p, nil
}

// Store persists sessions outside the entity layer.
type Store interface {
	Get(ctx context.Context, id string) (*Record, error)
	Put(ctx context.Context, r *Record) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Record, error)
}
