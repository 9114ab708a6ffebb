package event

import "testing"

func TestEventNames(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{got: Created(EntityOrder), want: "orderCreated"},
		{got: Updated(EntitySession), want: "sessionUpdated"},
		{got: Deleted(EntityKiosk), want: "kioskDeleted"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
