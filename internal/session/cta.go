package session

// CTAAction says what activating the primary button does.
type CTAAction int

const (
	// ActionSkip records a skip for the current poll and advances,
	// finishing the session when the skipped poll was the last one and
	// the skip budget still allows it.
	ActionSkip CTAAction = iota
	// ActionNext moves to the next existing position.
	ActionNext
	// ActionFinish finalizes the session and reveals the wavelength.
	ActionFinish
	// ActionExitReview leaves review mode and returns to the
	// last-responded position.
	ActionExitReview
)

// CTA is the resolved primary action.
type CTA struct {
	Label  string
	Action CTAAction
}

// CTAInput is everything the policy looks at. PrimaryCTA is a pure
// function of this tuple.
type CTAInput struct {
	ReviewMode bool
	// Answered and Skipped describe the current poll; at most one is set.
	Answered bool
	Skipped  bool
	// IsLast means the current position is the final existing one.
	IsLast       bool
	SkippedCount int
	MaxSkips     int
}

// OverBudget reports whether the skip budget is exhausted.
func (in CTAInput) OverBudget() bool {
	return in.SkippedCount >= in.MaxSkips
}

// PrimaryCTA decides the label and behavior of the main button.
func PrimaryCTA(in CTAInput) CTA {
	if in.ReviewMode {
		if in.IsLast {
			return CTA{Label: "Done reviewing", Action: ActionExitReview}
		}
		return CTA{Label: "Next", Action: ActionNext}
	}

	responded := in.Answered || in.Skipped
	if responded {
		if !in.IsLast {
			return CTA{Label: "Next", Action: ActionNext}
		}
		if in.Answered {
			return CTA{Label: "Get Wavelength", Action: ActionFinish}
		}
		if in.OverBudget() {
			return CTA{Label: "Finish (Too many skips)", Action: ActionFinish}
		}
		return CTA{Label: "Finish", Action: ActionFinish}
	}

	if in.OverBudget() {
		return CTA{Label: "Skip (Too many skips)", Action: ActionSkip}
	}
	return CTA{Label: "Skip", Action: ActionSkip}
}
