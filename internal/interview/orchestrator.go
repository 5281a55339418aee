package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/evalia/internal/ai"
	"github.com/spigell/evalia/internal/domain"
	"github.com/spigell/evalia/internal/logger"
	"github.com/spigell/evalia/internal/utils"
)

const answerLogLength = 80

// Capturer records the answer to one question.
type Capturer interface {
	Capture(ctx context.Context, round domain.RoundType, idx int) (*domain.Artifact, error)
}

// Persister writes the whole results aggregate to durable storage.
type Persister interface {
	Save(ctx context.Context, results *domain.Results) error
}

// Archiver keeps finished interviews.
type Archiver interface {
	Archive(ctx context.Context, id string, startedAt, finishedAt time.Time, results *domain.Results) error
}

// Deps are the collaborators of the orchestrator. Archiver and Assistant are optional.
type Deps struct {
	Classifier    ai.Classifier
	HRQuestions   ai.QuestionGenerator
	TechQuestions ai.QuestionGenerator
	HREvaluator   ai.Evaluator
	TechEvaluator ai.Evaluator
	Capturer      Capturer
	Transcriber   ai.Transcriber
	Persister     Persister
	Archiver      Archiver
	Assistant     ai.Assistant
	Logger        *zap.Logger
}

// Orchestrator drives a Session through the interview. It keeps no state of
// its own; everything lives in the Session passed to Handle.
type Orchestrator struct {
	deps   Deps
	logger *zap.Logger
	now    func() time.Time
}

// New validates deps and builds an Orchestrator.
func New(deps Deps) (*Orchestrator, error) {
	required := []struct {
		name string
		ok   bool
	}{
		{"classifier", deps.Classifier != nil},
		{"hr question generator", deps.HRQuestions != nil},
		{"technical question generator", deps.TechQuestions != nil},
		{"hr evaluator", deps.HREvaluator != nil},
		{"technical evaluator", deps.TechEvaluator != nil},
		{"capturer", deps.Capturer != nil},
		{"transcriber", deps.Transcriber != nil},
		{"persister", deps.Persister != nil},
	}
	for _, dep := range required {
		if !dep.ok {
			return nil, fmt.Errorf("%s is required", dep.name)
		}
	}

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Orchestrator{
		deps:   deps,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Handle applies one event to the session. A nil error means the event was
// accepted. Otherwise the error is a *Failure: validation and collaborator
// failures leave the session where it was, a fault leaves it usable only
// through ActionStartNewInterview.
func (o *Orchestrator) Handle(ctx context.Context, s *Session, ev Event) (err error) {
	if s == nil {
		return &Failure{Kind: KindFault, Op: "handle", Message: "No interview session.", Err: errors.New("session is nil")}
	}

	from := s.Cursor.Round
	log := o.sessionLogger(s).With(zap.String("action", string(ev.Action)))

	defer func() {
		if r := recover(); r != nil {
			err = o.fault(s, from, fmt.Errorf("panic: %v", r))
		}
		o.logOutcome(log, s, from, err)
	}()

	if ev.Action == ActionStartNewInterview && (s.Faulted() || from == RoundDashboard) {
		s.Reset()
		return nil
	}

	if s.Faulted() {
		return &Failure{Kind: KindFault, Op: "handle", Message: s.Cursor.Fault, Err: ErrResetRequired}
	}

	switch from {
	case RoundNone:
		err = o.handleHome(ctx, s, ev)
	case RoundDomainConfirmation:
		err = o.handleConfirmation(ctx, s, ev)
	case RoundDomainEdit:
		err = o.handleEdit(ctx, s, ev)
	case RoundHR, RoundTech:
		err = o.handleRound(ctx, s, ev)
	case RoundDashboard:
		err = o.handleDashboard(s, ev)
	case RoundChatbot:
		err = o.handleChat(ctx, s, ev)
	default:
		err = fmt.Errorf("invalid round %q", from)
	}

	if err != nil && !isFailure(err) {
		err = o.fault(s, from, err)
	}

	return err
}

func (o *Orchestrator) handleHome(ctx context.Context, s *Session, ev Event) error {
	if ev.Action != ActionSubmitJobDescription {
		return unavailable(ev.Action, RoundNone)
	}

	if err := ValidateJobDescription(ev.Text); err != nil {
		return err
	}

	label, err := o.deps.Classifier.Classify(ctx, strings.TrimSpace(ev.Text))
	label = strings.TrimSpace(label)
	switch {
	case errors.Is(err, ai.ErrUnknownDomain), err == nil && (label == "" || strings.EqualFold(label, ai.UnknownDomain)):
		return validationFailure("classify job description", "Couldn't identify a valid domain - please provide a clearer job description")
	case err != nil:
		return collaboratorFailure("classify job description", "Analysis failed. Please try again.", err)
	}

	s.Results.Domain = label
	s.Cursor.Round = RoundDomainConfirmation
	return nil
}

func (o *Orchestrator) handleConfirmation(ctx context.Context, s *Session, ev Event) error {
	switch ev.Action {
	case ActionConfirmDomain:
		return o.startInterview(ctx, s, s.Results.Domain)
	case ActionRejectDomain:
		s.Cursor.Round = RoundDomainEdit
		return nil
	default:
		return unavailable(ev.Action, RoundDomainConfirmation)
	}
}

func (o *Orchestrator) handleEdit(ctx context.Context, s *Session, ev Event) error {
	if ev.Action != ActionSubmitEditedDomain {
		return unavailable(ev.Action, RoundDomainEdit)
	}

	jobDomain := strings.TrimSpace(ev.Text)
	if jobDomain == "" {
		return validationFailure("edit domain", "Please enter a domain/title")
	}

	return o.startInterview(ctx, s, jobDomain)
}

// startInterview generates both question lists and enters the HR round. The
// session is changed only when both generators succeed.
func (o *Orchestrator) startInterview(ctx context.Context, s *Session, jobDomain string) error {
	const message = "Failed to generate interview questions. Please try again."

	hr, err := o.deps.HRQuestions.Generate(ctx, jobDomain)
	if err != nil {
		return collaboratorFailure("generate hr questions", message, err)
	}
	if len(hr) == 0 {
		return collaboratorFailure("generate hr questions", message, errors.New("no questions returned"))
	}

	tech, err := o.deps.TechQuestions.Generate(ctx, jobDomain)
	if err != nil {
		return collaboratorFailure("generate technical questions", message, err)
	}
	if len(tech) == 0 {
		return collaboratorFailure("generate technical questions", message, errors.New("no questions returned"))
	}

	s.Results.Domain = jobDomain
	s.Results.HRQuestions = hr
	s.Results.TechQuestions = tech
	s.Results.HRResults = []*domain.AnswerRecord{}
	s.Results.TechResults = []*domain.AnswerRecord{}
	s.Cursor.Round = RoundHR
	s.resetQuestionCursor()

	o.sessionLogger(s).Info("questions generated",
		zap.String("domain", jobDomain),
		zap.Int("hr_questions", len(hr)),
		zap.Int("tech_questions", len(tech)),
	)

	return nil
}

func (o *Orchestrator) handleRound(ctx context.Context, s *Session, ev Event) error {
	round, _ := s.Cursor.Round.QuestionRound()
	questions := s.Results.Questions(round)
	answers := s.Results.Answers(round)
	idx := s.Cursor.QuestionIdx

	switch {
	case len(questions) == 0:
		return fmt.Errorf("%s round has no questions", round)
	case idx < 0 || idx > len(questions):
		return fmt.Errorf("question index %d out of range [0, %d]", idx, len(questions))
	case len(answers) < idx || len(answers) > idx+1 || (idx == len(questions) && len(answers) != idx):
		return fmt.Errorf("%s round has %d answers at question %d", round, len(answers), idx)
	case s.Cursor.ShowEvaluation && s.activeRecord(round).GetEvaluation() == nil:
		return fmt.Errorf("no evaluation to show for question %d", idx)
	}

	if idx == len(questions) {
		return o.handleRoundComplete(ctx, s, round, ev)
	}

	if s.Cursor.ShowEvaluation {
		if ev.Action != ActionNextQuestion {
			return unavailable(ev.Action, s.Cursor.Round)
		}
		return o.nextQuestion(ctx, s, round)
	}

	switch ev.Action {
	case ActionRecordAnswer:
		return o.recordAnswer(ctx, s, round, idx)
	case ActionReRecord:
		s.Cursor.PendingAudio = nil
		return nil
	case ActionSubmitAnswer:
		return o.submitAnswer(ctx, s, round, questions[idx], idx)
	default:
		return unavailable(ev.Action, s.Cursor.Round)
	}
}

func (o *Orchestrator) recordAnswer(ctx context.Context, s *Session, round domain.RoundType, idx int) error {
	artifact, err := o.deps.Capturer.Capture(ctx, round, idx)
	if errors.Is(err, domain.ErrNoAudio) {
		artifact, err = nil, nil
	}
	if err != nil {
		return collaboratorFailure("capture answer", "Failed to record audio. Please try again.", err)
	}
	if artifact.Empty() {
		return validationFailure("capture answer", "No audio was captured. Please record your answer again.")
	}

	s.Cursor.PendingAudio = artifact
	return nil
}

func (o *Orchestrator) submitAnswer(ctx context.Context, s *Session, round domain.RoundType, question string, idx int) error {
	if s.Cursor.PendingAudio.Empty() {
		return validationFailure("submit answer", "Please record your answer before submitting.")
	}

	text, err := o.deps.Transcriber.Transcribe(ctx, s.Cursor.PendingAudio)
	text = strings.TrimSpace(text)
	if err == nil && text == "" {
		err = ai.ErrEmptyTranscript
	}
	if err != nil {
		s.Cursor.PendingAudio = nil
		return collaboratorFailure("transcribe answer", "Failed to transcribe your answer. Please try again.", err)
	}

	if err := o.writeRecord(s, round, idx, &domain.AnswerRecord{Question: question, Answer: text}); err != nil {
		return err
	}

	o.sessionLogger(s).Debug("answer transcribed",
		zap.String("answer_preview", utils.TruncateForLog(utils.SingleLine(text), answerLogLength)),
	)

	evaluator, jobDomain := o.deps.HREvaluator, ""
	if round == domain.RoundTechnical {
		evaluator, jobDomain = o.deps.TechEvaluator, s.Results.Domain
	}

	evaluation, err := evaluator.Evaluate(ctx, question, text, jobDomain)
	if err == nil && evaluation == nil {
		err = errors.New("evaluator returned no evaluation")
	}
	if err != nil {
		return collaboratorFailure("evaluate answer", "Failed to evaluate your answer. Please try again.", err)
	}

	evaluation.Score = domain.ClampScore(evaluation.Score)
	s.activeRecord(round).Evaluation = evaluation
	s.Cursor.ShowEvaluation = true

	o.sessionLogger(s).Info("answer evaluated", zap.Float64("score", evaluation.Score))

	return nil
}

// writeRecord stores the single record of question idx. A record left without
// evaluation by an earlier failed attempt is overwritten, never duplicated.
func (o *Orchestrator) writeRecord(s *Session, round domain.RoundType, idx int, record *domain.AnswerRecord) error {
	answers := s.Results.Answers(round)

	switch {
	case len(answers) == idx:
		answers = append(answers, record)
	case len(answers) == idx+1 && s.Cursor.ActiveRecord == idx && answers[idx].Evaluation == nil:
		answers[idx] = record
	default:
		return fmt.Errorf("cannot write answer %d: %s round holds %d answers", idx, round, len(answers))
	}

	if err := s.Results.SetAnswers(round, answers); err != nil {
		return err
	}
	s.Cursor.ActiveRecord = idx
	return nil
}

// nextQuestion advances the cursor. Past the last question it saves the
// results; a failed save returns a collaborator Failure but the cursor stays
// on the round-complete screen, whose action retries the save.
func (o *Orchestrator) nextQuestion(ctx context.Context, s *Session, round domain.RoundType) error {
	s.Cursor.QuestionIdx++
	s.Cursor.PendingAudio = nil
	s.Cursor.ShowEvaluation = false
	s.Cursor.ActiveRecord = noRecord

	if s.Cursor.QuestionIdx < len(s.Results.Questions(round)) {
		return nil
	}

	log := o.sessionLogger(s)
	log.Info("round completed", zap.String("round_type", string(round)))
	if err := o.persist(ctx, s); err != nil {
		log.Warn("round completed without saved results", zap.Error(err))
		return err
	}
	return nil
}

func (o *Orchestrator) handleRoundComplete(ctx context.Context, s *Session, round domain.RoundType, ev Event) error {
	want := ActionContinueToNextRound
	if round == domain.RoundTechnical {
		want = ActionViewResults
	}
	if ev.Action != want {
		return unavailable(ev.Action, s.Cursor.Round)
	}

	if err := o.persist(ctx, s); err != nil {
		return err
	}

	if round == domain.RoundHR {
		s.Cursor.Round = RoundTech
		s.resetQuestionCursor()
		return nil
	}

	s.Cursor.Round = RoundDashboard
	o.archive(ctx, s)
	return nil
}

func (o *Orchestrator) persist(ctx context.Context, s *Session) error {
	if s.Cursor.RoundPersisted {
		return nil
	}
	if err := o.deps.Persister.Save(ctx, s.Results); err != nil {
		return collaboratorFailure("save results", "Failed to save interview results.", err)
	}
	s.Cursor.RoundPersisted = true
	o.sessionLogger(s).Info("results saved successfully")
	return nil
}

func (o *Orchestrator) archive(ctx context.Context, s *Session) {
	if s.FinishedAt.IsZero() {
		s.FinishedAt = o.now()
	}
	if o.deps.Archiver == nil || s.Archived {
		return
	}
	if err := o.deps.Archiver.Archive(ctx, s.ID, s.StartedAt, s.FinishedAt, s.Results); err != nil {
		o.sessionLogger(s).Warn("archiving interview failed", zap.Error(err))
		return
	}
	s.Archived = true
}

func (o *Orchestrator) handleDashboard(s *Session, ev Event) error {
	if ev.Action != ActionOpenChat {
		return unavailable(ev.Action, RoundDashboard)
	}
	if o.deps.Assistant == nil {
		return validationFailure("open chat", "The chat assistant is not configured.")
	}
	s.Cursor.Round = RoundChatbot
	return nil
}

func (o *Orchestrator) handleChat(ctx context.Context, s *Session, ev Event) error {
	switch ev.Action {
	case ActionReturnFromChat:
		s.Cursor.Round = RoundDashboard
		return nil
	case ActionSendChatMessage:
	default:
		return unavailable(ev.Action, RoundChatbot)
	}

	message := strings.TrimSpace(ev.Text)
	if message == "" {
		return validationFailure("chat", "Please type a message.")
	}

	if o.deps.Assistant == nil {
		s.Cursor.Round = RoundDashboard
		return collaboratorFailure("chat", "Chatbot encountered an error. Returning to dashboard.", errors.New("assistant is not configured"))
	}

	reply, err := o.deps.Assistant.Reply(ctx, s.Results, s.Chat, message)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errors.New("assistant returned an empty reply")
	}
	if err != nil {
		s.Cursor.Round = RoundDashboard
		return collaboratorFailure("chat", "Chatbot encountered an error. Returning to dashboard.", err)
	}

	s.Chat = append(s.Chat,
		domain.ChatTurn{Role: domain.ChatRoleUser, Text: message},
		domain.ChatTurn{Role: domain.ChatRoleAssistant, Text: strings.TrimSpace(reply)},
	)
	return nil
}

// fault marks the session as requiring a reset.
func (o *Orchestrator) fault(s *Session, round Round, err error) error {
	message := "The interview encountered an error. Please start a new interview."
	if rt, ok := round.QuestionRound(); ok {
		message = fmt.Sprintf("%s round encountered an error. Please start a new interview.", rt.Title())
	}
	s.Cursor.Fault = message
	return &Failure{Kind: KindFault, Op: string(round), Message: message, Err: err}
}

func (o *Orchestrator) logOutcome(log *zap.Logger, s *Session, from Round, err error) {
	switch KindOf(err) {
	case 0:
		if s.Cursor.Round != from {
			log.Info("transition",
				zap.String("round_from", string(from)),
				zap.String("round_to", string(s.Cursor.Round)),
				zap.Int(logger.FieldQuestionIdx, s.Cursor.QuestionIdx),
			)
		}
	case KindValidation:
		log.Warn("action rejected", zap.String("reason", UserMessage(err)), zap.Error(err))
	case KindCollaborator:
		log.Error("collaborator failed", zap.Error(err))
	case KindFault:
		if errors.Is(err, ErrResetRequired) {
			log.Warn("action rejected, reset required", zap.Error(err))
			return
		}
		log.Error("interview fault", logger.SeverityCritical, zap.Error(err))
	}
}

func (o *Orchestrator) sessionLogger(s *Session) *zap.Logger {
	return logger.WithFields(o.logger, logger.SessionFields(s.ID, string(s.Cursor.Round), s.Cursor.QuestionIdx)...)
}

func unavailable(action Action, round Round) *Failure {
	return validationFailure("handle "+string(action), fmt.Sprintf("%q is not available in %s.", action.Label(), round))
}

func isFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}
