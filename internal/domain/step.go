package domain

// Step is the dialog position within the birth-detail intake flow.
// Exactly one step is active per session.
type Step string

const (
	StepAskName        Step = "ask_name"
	StepAskDOB         Step = "ask_dob"
	StepAskTOB         Step = "ask_tob"
	StepAskPlace       Step = "ask_place"
	StepConfirmDetails Step = "confirm_details"
	StepGenerating     Step = "generating"
	StepChartGenerated Step = "chart_generated"
	StepChatting       Step = "chatting"
)

// Collecting returns true while the step still gathers a profile field.
func (s Step) Collecting() bool {
	switch s {
	case StepAskName, StepAskDOB, StepAskTOB, StepAskPlace:
		return true
	}
	return false
}
