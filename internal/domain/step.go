package domain

type Step int

const (
	StepSearching Step = iota + 1
	StepSelecting
	StepCollectingTravelers
	StepSelectingSeats
	StepReviewing
	StepConfirmed
)

func (s Step) String() string {
	switch s {
	case StepSearching:
		return "searching"
	case StepSelecting:
		return "selecting"
	case StepCollectingTravelers:
		return "collecting_travelers"
	case StepSelectingSeats:
		return "selecting_seats"
	case StepReviewing:
		return "reviewing"
	case StepConfirmed:
		return "confirmed"
	}
	return "unknown"
}

func (s Step) Valid() bool {
	return s >= StepSearching && s <= StepConfirmed
}
