package checkoutmethod

import (
	"testing"

	"github.com/appetiteclub/kiosk/pkg/enums/principal"
)

func TestMethodAllows(t *testing.T) {
	tests := []struct {
		method    string
		principal principal.Type
		want      bool
	}{
		{method: "manual", principal: principal.Admin, want: true},
		{method: "manual", principal: principal.Kiosk, want: false},
		{method: "sumUp", principal: principal.Kiosk, want: true},
		{method: "sumUp", principal: principal.Admin, want: false},
		{method: "later", principal: principal.Kiosk, want: true},
		{method: "later", principal: principal.Admin, want: false},
		{method: "mobilePay", principal: principal.Kiosk, want: true},
		{method: "mobilePay", principal: principal.Admin, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.method+"_"+string(tt.principal), func(t *testing.T) {
			m := ByName(tt.method)
			if m == nil {
				t.Fatalf("ByName(%q) returned nil", tt.method)
			}
			if got := m.Allows(tt.principal); got != tt.want {
				t.Errorf("Allows(%q) = %v, want %v", tt.principal, got, tt.want)
			}
		})
	}
}

func TestByNameUnknown(t *testing.T) {
	if ByName("cash") != nil {
		t.Error("ByName(cash) should be nil")
	}
}
