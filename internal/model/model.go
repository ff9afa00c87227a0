package model

type PaymentMethod string

const (
	PaymentPix    PaymentMethod = "Pix"
	PaymentCredit PaymentMethod = "Credit"
	PaymentDebit  PaymentMethod = "Debit"
)

var PaymentMethods = []PaymentMethod{PaymentPix, PaymentCredit, PaymentDebit}

func (p PaymentMethod) Valid() bool {
	for _, m := range PaymentMethods {
		if p == m {
			return true
		}
	}
	return false
}

// Event is a fundraising campaign. Raised always equals the sum of its donations:
// it is incremented together with every appended donation and never recomputed.
type Event struct {
	ID        string     `json:"id,omitempty"`
	Name      string     `json:"nome"`
	Goal      float64    `json:"meta"`
	Raised    float64    `json:"arrecadado"`
	Donations []Donation `json:"doacoes"`
	Admin     bool       `json:"admin"`
}

type Donation struct {
	Amount float64       `json:"valor"`
	Method PaymentMethod `json:"tipo"`
}

// Clone returns a deep copy so callers never share the donation slice.
func (e Event) Clone() Event {
	out := e
	out.Donations = make([]Donation, len(e.Donations))
	copy(out.Donations, e.Donations)
	return out
}

func CloneEvents(events []Event) []Event {
	out := make([]Event, len(events))
	for i, e := range events {
		out[i] = e.Clone()
	}
	return out
}
