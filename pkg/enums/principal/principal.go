package principal

// Type identifies who owns a session.
type Type string

const (
	Admin Type = "admin"
	Kiosk Type = "kiosk"
)

func (t Type) Valid() bool {
	return t == Admin || t == Kiosk
}
