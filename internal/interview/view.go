package interview

import "github.com/spigell/evalia/internal/domain"

// Screen is what the user currently looks at.
type Screen string

const (
	ScreenHome               Screen = "home"
	ScreenDomainConfirmation Screen = "domain_confirmation"
	ScreenDomainEdit         Screen = "domain_edit"
	ScreenQuestion           Screen = "question"
	ScreenEvaluation         Screen = "evaluation"
	ScreenRoundComplete      Screen = "round_complete"
	ScreenDashboard          Screen = "dashboard"
	ScreenChat               Screen = "chat"
	ScreenFault              Screen = "fault"
)

// View is a read-only projection of a session. Building it never changes
// the session.
type View struct {
	Screen    Screen
	Round     Round
	RoundType domain.RoundType
	Domain    string

	// QuestionNumber is one-based.
	QuestionNumber  int
	QuestionTotal   int
	Question        string
	HasPendingAudio bool
	Answer          string
	Evaluation      *domain.Evaluation

	Results *domain.Results
	Chat    []domain.ChatTurn
	Fault   string

	Actions []Action
}

// View renders the session. Calling it any number of times yields the same
// result and triggers no collaborator.
func (s *Session) View() View {
	v := View{
		Round:   s.Cursor.Round,
		Domain:  s.Results.Domain,
		Results: s.Results,
		Chat:    s.Chat,
	}

	if s.Faulted() {
		v.Screen = ScreenFault
		v.Fault = s.Cursor.Fault
		v.Actions = []Action{ActionStartNewInterview}
		return v
	}

	switch s.Cursor.Round {
	case RoundNone:
		v.Screen = ScreenHome
		v.Actions = []Action{ActionSubmitJobDescription}
	case RoundDomainConfirmation:
		v.Screen = ScreenDomainConfirmation
		v.Actions = []Action{ActionConfirmDomain, ActionRejectDomain}
	case RoundDomainEdit:
		v.Screen = ScreenDomainEdit
		v.Actions = []Action{ActionSubmitEditedDomain}
	case RoundHR, RoundTech:
		s.questionView(&v)
	case RoundDashboard:
		v.Screen = ScreenDashboard
		v.Actions = []Action{ActionOpenChat, ActionStartNewInterview}
	case RoundChatbot:
		v.Screen = ScreenChat
		v.Actions = []Action{ActionSendChatMessage, ActionReturnFromChat}
	default:
		v.Screen = ScreenFault
		v.Fault = "Unknown interview state."
		v.Actions = []Action{ActionStartNewInterview}
	}

	return v
}

func (s *Session) questionView(v *View) {
	round, _ := s.Cursor.Round.QuestionRound()
	questions := s.Results.Questions(round)
	idx := s.Cursor.QuestionIdx

	v.RoundType = round
	v.QuestionTotal = len(questions)

	if idx >= len(questions) {
		v.Screen = ScreenRoundComplete
		v.QuestionNumber = len(questions)
		if round == domain.RoundHR {
			v.Actions = []Action{ActionContinueToNextRound}
		} else {
			v.Actions = []Action{ActionViewResults}
		}
		return
	}

	v.QuestionNumber = idx + 1
	v.Question = questions[idx]
	v.HasPendingAudio = !s.Cursor.PendingAudio.Empty()

	// A record left by a failed evaluation is shown only while its audio can
	// still be submitted.
	if record := s.activeRecord(round); record != nil && (v.HasPendingAudio || s.Cursor.ShowEvaluation) {
		v.Answer = record.Answer
		v.Evaluation = record.Evaluation
	}

	switch {
	case s.Cursor.ShowEvaluation:
		v.Screen = ScreenEvaluation
		v.Actions = []Action{ActionNextQuestion}
	case v.HasPendingAudio:
		v.Screen = ScreenQuestion
		v.Actions = []Action{ActionSubmitAnswer, ActionReRecord}
	default:
		v.Screen = ScreenQuestion
		v.Actions = []Action{ActionRecordAnswer}
	}
}
