package models

// Challenge is the live exam round of an account. AckFizz, AckBuzz and
// AckOther record which acknowledgement channels the client used for N.
type Challenge struct {
	UserID   string
	Token    string
	N        uint16
	AckFizz  bool
	AckBuzz  bool
	AckOther bool
}
