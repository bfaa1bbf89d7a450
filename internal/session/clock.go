package session

import "github.com/jonboulle/clockwork"

// Clock is the session's time source. Tests drive a clockwork.FakeClock.
type Clock = clockwork.Clock

func RealClock() Clock { return clockwork.NewRealClock() }
