package interview

// Action is a user-triggered event. Each action is the only trigger of its
// state transition.
type Action string

const (
	ActionSubmitJobDescription Action = "submit_job_description"
	ActionConfirmDomain        Action = "confirm_domain"
	ActionRejectDomain         Action = "reject_domain"
	ActionSubmitEditedDomain   Action = "submit_edited_domain"
	ActionRecordAnswer         Action = "record_answer"
	ActionSubmitAnswer         Action = "submit_answer"
	ActionReRecord             Action = "re_record"
	ActionNextQuestion         Action = "next_question"
	ActionContinueToNextRound  Action = "continue_to_next_round"
	ActionViewResults          Action = "view_results"
	ActionStartNewInterview    Action = "start_new_interview"
	ActionOpenChat             Action = "open_chat"
	ActionSendChatMessage      Action = "send_chat_message"
	ActionReturnFromChat       Action = "return_from_chat"
)

var actionLabels = map[Action]string{
	ActionSubmitJobDescription: "Analyze Job Description",
	ActionConfirmDomain:        "Yes, this is correct",
	ActionRejectDomain:         "No, let me edit",
	ActionSubmitEditedDomain:   "Confirm Domain",
	ActionRecordAnswer:         "Record Answer",
	ActionSubmitAnswer:         "Submit Answer",
	ActionReRecord:             "Re-record",
	ActionNextQuestion:         "Next Question",
	ActionContinueToNextRound:  "Continue to Technical Round",
	ActionViewResults:          "View Results Dashboard",
	ActionStartNewInterview:    "Start New Interview",
	ActionOpenChat:             "Talk to Evalia",
	ActionSendChatMessage:      "Send Message",
	ActionReturnFromChat:       "Back to Dashboard",
}

// Label is the button caption of the action.
func (a Action) Label() string {
	if label, ok := actionLabels[a]; ok {
		return label
	}
	return string(a)
}

// NeedsText reports whether the action carries free text from the user.
func (a Action) NeedsText() bool {
	switch a {
	case ActionSubmitJobDescription, ActionSubmitEditedDomain, ActionSendChatMessage:
		return true
	default:
		return false
	}
}

// Event is one user action with its optional text payload.
type Event struct {
	Action Action
	Text   string
}
