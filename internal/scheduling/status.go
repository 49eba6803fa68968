package scheduling

var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusDone},
}

// CanTransition reports whether an appointment may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible from s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// IsReschedulable reports whether an appointment in status s can move to another time.
func (s Status) IsReschedulable() bool {
	return s == StatusPending || s == StatusConfirmed
}
