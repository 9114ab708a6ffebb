// Package seeding builds the demo catalog written by the operator tool.
// Documents use the field names the kiosk service persists.
package seeding

import (
	"fmt"
	"time"

	"github.com/appetiteclub/kiosk/pkg/lib/auth"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// Marker is the _seeds entry recording that the demo catalog was applied.
const Marker = "demo_kiosk_v1"

var namespace = uuid.MustParse("6f1c0d2e-6a3b-4c0e-9a57-1d8e2b7c4f10")

// DemoID returns a stable id so the demo records can be found again by
// clear-demo.
func DemoID(name string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(name))
}

type Credentials struct {
	AdminUsername string
	AdminPassword string
	KioskUsername string
	KioskPassword string
}

// Set is the demo catalog grouped by collection name.
type Set map[string][]bson.M

type product struct {
	name  string
	price int64
}

var demoProducts = []product{
	{name: "Coffee", price: 2500},
	{name: "Tea", price: 2000},
	{name: "Cinnamon roll", price: 3500},
	{name: "Sparkling water", price: 1800},
}

func Demo(creds Credentials, now time.Time) (Set, error) {
	adminHash, err := auth.HashPassword(creds.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("admin password: %w", err)
	}
	kioskHash, err := auth.HashPassword(creds.KioskPassword)
	if err != nil {
		return nil, fmt.Errorf("kiosk password: %w", err)
	}

	activityID := DemoID("activity")
	roomID := DemoID("room")

	set := Set{
		"activities": {{
			"_id": activityID, "name": "Demo activity", "active": true,
			"created_at": now, "updated_at": now,
		}},
		"rooms": {{
			"_id": roomID, "name": "Demo room",
			"created_at": now, "updated_at": now,
		}},
		"admins": {{
			"_id": DemoID("admin"), "username": auth.NormalizeUsername(creds.AdminUsername),
			"name": "Demo admin", "password_hash": adminHash,
			"created_at": now, "updated_at": now,
		}},
		"kiosks": {{
			"_id": DemoID("kiosk"), "name": "Demo kiosk",
			"username": auth.NormalizeUsername(creds.KioskUsername), "password_hash": kioskHash,
			"activity_id": activityID, "room_id": roomID,
			"created_at": now, "updated_at": now,
		}},
	}

	for _, p := range demoProducts {
		set["products"] = append(set["products"], bson.M{
			"_id": DemoID("product:" + p.name), "name": p.name, "price": p.price,
			"available": true, "created_at": now, "updated_at": now,
		})
	}

	return set, nil
}

// IDs lists the ids of every demo record per collection.
func IDs() map[string][]uuid.UUID {
	ids := map[string][]uuid.UUID{
		"activities": {DemoID("activity")},
		"rooms":      {DemoID("room")},
		"admins":     {DemoID("admin")},
		"kiosks":     {DemoID("kiosk")},
	}
	for _, p := range demoProducts {
		ids["products"] = append(ids["products"], DemoID("product:"+p.name))
	}
	return ids
}
