package checkoutmethod

import "github.com/appetiteclub/kiosk/pkg/enums/principal"

type Method struct {
	Name string
	// AllowedFor lists the principals that may place orders with this method.
	AllowedFor []principal.Type
	// Async methods settle their payment through a later callback.
	Async bool
}

func (m Method) Code() string {
	return m.Name
}

func (m Method) Allows(p principal.Type) bool {
	for _, allowed := range m.AllowedFor {
		if allowed == p {
			return true
		}
	}
	return false
}

type Enum struct {
	MobilePay Method
	SumUp     Method
	Later     Method
	Manual    Method
}

var Methods = Enum{
	MobilePay: Method{Name: "mobilePay", AllowedFor: []principal.Type{principal.Kiosk, principal.Admin}, Async: true},
	SumUp:     Method{Name: "sumUp", AllowedFor: []principal.Type{principal.Kiosk}, Async: true},
	Later:     Method{Name: "later", AllowedFor: []principal.Type{principal.Kiosk}, Async: true},
	Manual:    Method{Name: "manual", AllowedFor: []principal.Type{principal.Admin}},
}

var All = []Method{
	Methods.MobilePay,
	Methods.SumUp,
	Methods.Later,
	Methods.Manual,
}

func ByName(name string) *Method {
	for _, m := range All {
		if m.Name == name {
			return &m
		}
	}
	return nil
}
