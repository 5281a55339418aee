package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/spigell/evalia/internal/audio"
	"github.com/spigell/evalia/internal/domain"
	"github.com/spigell/evalia/internal/interview"
	"github.com/spigell/evalia/internal/report"
)

const PromptQuit = "Quit"

var errExit = errors.New("exit requested")

// terminal renders views and collects user input.
type terminal struct {
	in  io.Reader
	out io.Writer

	lines *bufio.Reader
	// pending is the Enter read still outstanding after a cancelled recording.
	pending chan error
}

func (t *terminal) render(v interview.View) {
	fmt.Fprintln(t.out)

	switch v.Screen {
	case interview.ScreenHome:
		fmt.Fprintln(t.out, "Evalia: AI interview practice")
		fmt.Fprintln(t.out, "Paste the job description you want to practice for.")
	case interview.ScreenDomainConfirmation:
		fmt.Fprintf(t.out, "Detected job domain: %s\nIs this correct?\n", v.Domain)
	case interview.ScreenDomainEdit:
		fmt.Fprintf(t.out, "Current job domain: %s\nEnter the correct domain/title.\n", v.Domain)
	case interview.ScreenQuestion, interview.ScreenEvaluation:
		fmt.Fprintf(t.out, "%s Round: Question %d of %d\n\n%s\n", v.RoundType.Title(), v.QuestionNumber, v.QuestionTotal, v.Question)
		if v.Answer != "" {
			fmt.Fprintf(t.out, "\nYour answer: %s\n", v.Answer)
		}
		if v.Screen == interview.ScreenEvaluation {
			fmt.Fprintln(t.out, "\nEvaluation")
			report.RenderEvaluation(t.out, v.Evaluation)
		} else if v.HasPendingAudio {
			fmt.Fprintln(t.out, "\nAnswer recorded. Submit it or record again.")
		}
	case interview.ScreenRoundComplete:
		fmt.Fprintf(t.out, "%s round completed.\n", v.RoundType.Title())
	case interview.ScreenDashboard:
		report.RenderDashboard(t.out, v.Results)
	case interview.ScreenChat:
		fmt.Fprintln(t.out, "Talk to Evalia about your interview.")
		for _, turn := range v.Chat {
			who := "You"
			if turn.Role == domain.ChatRoleAssistant {
				who = "Evalia"
			}
			fmt.Fprintf(t.out, "%s: %s\n", who, turn.Text)
		}
	case interview.ScreenFault:
		fmt.Fprintln(t.out, v.Fault)
	}
}

// notify prints the user-facing part of a failed action.
func (t *terminal) notify(err error) {
	prefix := "Error"
	switch interview.KindOf(err) {
	case interview.KindValidation:
		prefix = "Warning"
	case interview.KindFault:
		prefix = "Critical"
	}
	fmt.Fprintf(t.out, "%s: %s\n", prefix, interview.UserMessage(err))
}

// choose asks for the next action among the ones the view offers.
func (t *terminal) choose(v interview.View) (interview.Event, error) {
	items := make([]string, 0, len(v.Actions)+1)
	for _, action := range v.Actions {
		items = append(items, action.Label())
	}
	items = append(items, PromptQuit)

	prompt := promptui.Select{
		Label: "Choose an action",
		Items: items,
		Size:  len(items),
	}

	idx, _, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return interview.Event{}, errExit
		}
		return interview.Event{}, err
	}
	if idx == len(v.Actions) {
		return interview.Event{}, errExit
	}

	ev := interview.Event{Action: v.Actions[idx]}
	if !ev.Action.NeedsText() {
		return ev, nil
	}

	initial := ""
	if ev.Action == interview.ActionSubmitEditedDomain {
		initial = v.Domain
	}

	text, err := t.ask(textLabel(ev.Action), initial)
	if err != nil {
		return interview.Event{}, err
	}
	ev.Text = text
	return ev, nil
}

func (t *terminal) ask(label, initial string) (string, error) {
	prompt := promptui.Prompt{Label: label}
	if initial != "" {
		prompt.Default = initial
		prompt.AllowEdit = true
	}

	text, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return "", errExit
		}
		return "", err
	}
	return text, nil
}

func textLabel(action interview.Action) string {
	switch action {
	case interview.ActionSubmitJobDescription:
		return "Job description"
	case interview.ActionSubmitEditedDomain:
		return "Job domain/title"
	default:
		return "Message"
	}
}

// waitForEnter ends a microphone recording when the user presses Enter.
// Stdin cannot be unblocked, so a read left over from a cancelled recording
// is reused by the next one. If it completed in between, the line it consumed
// is discarded.
func (t *terminal) waitForEnter() audio.StopFunc {
	return func(ctx context.Context) error {
		done := t.pending
		if done != nil {
			select {
			case <-done:
				done = nil
			default:
			}
		}
		if done == nil {
			if t.lines == nil {
				t.lines = bufio.NewReader(t.in)
			}
			done = make(chan error, 1)
			go func(lines *bufio.Reader) {
				_, err := lines.ReadString('\n')
				done <- err
			}(t.lines)
		}
		t.pending = done

		fmt.Fprintln(t.out, "Recording... press Enter to stop.")

		select {
		case err := <-done:
			t.pending = nil
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// askAudioPath asks for a prerecorded answer file.
func (t *terminal) askAudioPath() audio.PathFunc {
	return func(_ context.Context, round domain.RoundType, idx int) (string, error) {
		path, err := t.ask(fmt.Sprintf("Audio file for %s question %d", round.Title(), idx+1), "")
		return strings.TrimSpace(path), err
	}
}
