// Package exam holds the pure rules of the license exam: which
// acknowledgement channels a challenge expects and when a round counts as
// passed. Persistence lives in the services package.
package exam

import (
	"fmt"

	"github.com/dmitrijs2005/licensegate/internal/server/models"
)

// Channel is an acknowledgement channel a client may signal for a challenge.
type Channel string

const (
	ChannelFizz  Channel = "fizz"
	ChannelBuzz  Channel = "buzz"
	ChannelOther Channel = "other"
)

// ParseChannel validates a channel name.
func ParseChannel(s string) (Channel, error) {
	switch c := Channel(s); c {
	case ChannelFizz, ChannelBuzz, ChannelOther:
		return c, nil
	}
	return "", fmt.Errorf("unknown channel %q", s)
}

// Expectation is the exact set of channels a challenge must receive.
type Expectation struct {
	Fizz  bool
	Buzz  bool
	Other bool
}

// Expect computes the expected channels for n: fizz when n is divisible by
// 3, buzz when divisible by 5, other when neither. n == 0 expects both fizz
// and buzz.
func Expect(n uint16) Expectation {
	fizz := n%3 == 0
	buzz := n%5 == 0
	return Expectation{Fizz: fizz, Buzz: buzz, Other: !fizz && !buzz}
}

// Complete reports whether the challenge received exactly the expected
// channels, no more and no less.
func Complete(c *models.Challenge) bool {
	want := Expect(c.N)
	return c.AckFizz == want.Fizz &&
		c.AckBuzz == want.Buzz &&
		c.AckOther == want.Other
}

// Licensed reports whether streak reaches the license threshold.
func Licensed(streak int) bool {
	return streak >= models.LicenseThreshold
}

// NextStreak applies the round outcome of prev (nil when the account had no
// live challenge) to streak. A passed round adds one; a failed or abandoned
// round resets to zero unless the streak already licenses the account.
func NextStreak(streak int, prev *models.Challenge) int {
	if prev == nil {
		return streak
	}
	if Complete(prev) {
		return streak + 1
	}
	if Licensed(streak) {
		return streak
	}
	return 0
}
