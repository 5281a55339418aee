package interview

import (
	"time"

	"github.com/google/uuid"

	"github.com/spigell/evalia/internal/domain"
)

// Round is the state of the interview state machine.
type Round string

const (
	RoundNone               Round = "none"
	RoundDomainConfirmation Round = "domain_confirmation"
	RoundDomainEdit         Round = "domain_edit"
	RoundHR                 Round = "hr_round"
	RoundTech               Round = "tech_round"
	RoundDashboard          Round = "dashboard"
	RoundChatbot            Round = "chatbot"
)

// QuestionRound maps a question/answer state to its round type.
func (r Round) QuestionRound() (domain.RoundType, bool) {
	switch r {
	case RoundHR:
		return domain.RoundHR, true
	case RoundTech:
		return domain.RoundTechnical, true
	default:
		return "", false
	}
}

// noRecord marks the absence of an in-progress answer record.
const noRecord = -1

// Cursor is the transient position of the session inside the interview.
type Cursor struct {
	Round       Round
	QuestionIdx int
	// PendingAudio is the captured but not yet submitted answer.
	PendingAudio   *domain.Artifact
	ShowEvaluation bool
	// ActiveRecord is the index of the answer record written for the current
	// question, or -1 when none has been written yet.
	ActiveRecord int
	// RoundPersisted is set once the finished round has been saved.
	RoundPersisted bool
	// Fault holds the reason of a state-machine fault. A faulted session
	// accepts only a new interview.
	Fault string
}

// Session is the state owned by one interview for its whole lifetime.
type Session struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    *domain.Results
	Cursor     Cursor
	Chat       []domain.ChatTurn
	Archived   bool
}

// NewSession returns a session in its initial state.
func NewSession() *Session {
	s := &Session{}
	s.Reset()
	return s
}

// Reset discards all results and returns the session to the home screen
// under a fresh interview id.
func (s *Session) Reset() {
	*s = Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Results:   domain.NewResults(),
		Cursor: Cursor{
			Round:        RoundNone,
			ActiveRecord: noRecord,
		},
	}
}

// Faulted reports whether the session is waiting for a reset.
func (s *Session) Faulted() bool {
	return s.Cursor.Fault != ""
}

// activeRecord returns the record referenced by the cursor, if any.
func (s *Session) activeRecord(round domain.RoundType) *domain.AnswerRecord {
	idx := s.Cursor.ActiveRecord
	answers := s.Results.Answers(round)
	if idx < 0 || idx >= len(answers) {
		return nil
	}
	return answers[idx]
}

func (s *Session) resetQuestionCursor() {
	s.Cursor.QuestionIdx = 0
	s.Cursor.PendingAudio = nil
	s.Cursor.ShowEvaluation = false
	s.Cursor.ActiveRecord = noRecord
	s.Cursor.RoundPersisted = false
}
