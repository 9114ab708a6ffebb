package paymentstatus

import "strings"

type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	if s.Name == "" {
		return ""
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

type Enum struct {
	Pending    Status
	Successful Status
	Failed     Status
	Refunded   Status
}

var Statuses = Enum{
	Pending:    Status{Name: "pending"},
	Successful: Status{Name: "successful"},
	Failed:     Status{Name: "failed"},
	Refunded:   Status{Name: "refunded"},
}

var All = []Status{
	Statuses.Pending,
	Statuses.Successful,
	Statuses.Failed,
	Statuses.Refunded,
}

// MoneyReceived lists the statuses that count toward public statistics.
var MoneyReceived = []Status{
	Statuses.Successful,
	Statuses.Refunded,
}

// ByName returns the status for a given name, or nil if not found
func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}

// IsTerminal reports whether a payment in this status can no longer be
// resolved by a terminal callback. Only pending payments are open.
func IsTerminal(code string) bool {
	return code != Statuses.Pending.Name
}

// IsResolution reports whether code is a status a callback may resolve a
// pending payment to.
func IsResolution(code string) bool {
	return code == Statuses.Successful.Name || code == Statuses.Failed.Name
}

func IsMoneyReceived(code string) bool {
	for _, s := range MoneyReceived {
		if s.Name == code {
			return true
		}
	}
	return false
}
