package models

// LicenseThreshold is the streak at which an account becomes licensed.
const LicenseThreshold = 150

// Account is a registered user.
type Account struct {
	ID             string
	Name           string
	UserName       string
	PasswordDigest string
	ExamStreak     int
}

// Licensed reports whether the account passed the license exam. Once the
// streak reaches the threshold it is never reset.
func (a *Account) Licensed() bool {
	return a.ExamStreak >= LicenseThreshold
}
