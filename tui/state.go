package tui

type state int

const (
	browsingState state = iota
	pressingState
	suspendedState
	errorState
)
