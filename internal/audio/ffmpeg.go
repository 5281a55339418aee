package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/evalia/internal/domain"
)

const stopGracePeriod = 1200 * time.Millisecond

// FFMPEGRecorder records microphone audio through an ffmpeg subprocess.
type FFMPEGRecorder struct {
	cfg    Config
	stop   StopFunc
	logger *zap.Logger
}

// NewFFMPEGRecorder builds a recorder. stop decides when a recording ends;
// MaxDuration ends it earlier.
func NewFFMPEGRecorder(cfg Config, stop StopFunc, logger *zap.Logger) (*FFMPEGRecorder, error) {
	if stop == nil {
		return nil, errors.New("stop function is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFMPEGRecorder{cfg: cfg.withDefaults(), stop: stop, logger: logger}, nil
}

func (r *FFMPEGRecorder) args() []string {
	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", r.cfg.InputFormat,
		"-i", r.cfg.InputDevice,
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(r.cfg.SampleRate),
	}
	if r.cfg.MaxDuration > 0 {
		args = append(args, "-t", strconv.FormatFloat(r.cfg.MaxDuration.Seconds(), 'f', -1, 64))
	}
	return append(args, "-f", "s16le", "-")
}

// Capture records one answer and returns it as a WAV artifact.
func (r *FFMPEGRecorder) Capture(ctx context.Context, round domain.RoundType, idx int) (*domain.Artifact, error) {
	log := r.logger.With(zap.String("artifact", domain.ArtifactID(round, idx)))

	cmd := exec.CommandContext(ctx, r.cfg.Command, r.args()...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	var (
		pcm     bytes.Buffer
		readErr error
		readWG  sync.WaitGroup
	)
	readWG.Add(1)
	go func() {
		defer readWG.Done()
		_, readErr = io.Copy(&pcm, stdout)
	}()

	waitErr := make(chan error, 1)
	go func() {
		// Wait must run after stdout is drained.
		readWG.Wait()
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	stopped := make(chan error, 1)
	go func() { stopped <- r.stop(ctx) }()

	log.Debug("recording started", zap.Strings("args", r.args()))
	started := time.Now()

	var exitErr error
	exited := false
	select {
	case err := <-stopped:
		if err != nil {
			r.terminate(cmd, waitErr)
			return nil, fmt.Errorf("stop recording: %w", err)
		}
	case exitErr = <-waitErr:
		exited = true
		log.Debug("recorder exited before stop", zap.Duration("elapsed", time.Since(started)))
		if exitErr != nil && pcm.Len() == 0 {
			return nil, fmt.Errorf("ffmpeg failed: %w: %s", exitErr, trimOutput(stderr.String()))
		}
		if err := <-stopped; err != nil {
			return nil, fmt.Errorf("stop recording: %w", err)
		}
	case <-ctx.Done():
		r.terminate(cmd, waitErr)
		return nil, ctx.Err()
	}

	if !exited {
		exitErr = r.terminate(cmd, waitErr)
	}
	if exitErr = normalizeExitErr(exitErr); exitErr != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", exitErr, trimOutput(stderr.String()))
	}
	if readErr != nil && !errors.Is(readErr, os.ErrClosed) {
		return nil, fmt.Errorf("read ffmpeg output: %w", readErr)
	}

	if pcm.Len() == 0 {
		return nil, ErrNoAudio
	}

	log.Info("answer recorded",
		zap.Int("bytes", pcm.Len()),
		zap.Duration("elapsed", time.Since(started)),
	)

	return &domain.Artifact{
		Round:    round,
		Index:    idx,
		MIMEType: mimeWAV,
		Data:     encodeWAV(pcm.Bytes(), r.cfg.SampleRate, channels),
	}, nil
}

// terminate interrupts ffmpeg so it flushes its output, killing it after a
// grace period.
func (r *FFMPEGRecorder) terminate(cmd *exec.Cmd, waitErr <-chan error) error {
	if cmd.Process != nil {
		_ = cmd.Process.Signal(os.Interrupt)
	}

	select {
	case err := <-waitErr:
		return err
	case <-time.After(stopGracePeriod):
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return <-waitErr
	}
}

// normalizeExitErr ignores the non-zero exit status ffmpeg reports after an interrupt.
func normalizeExitErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func trimOutput(s string) string {
	return string(bytes.TrimSpace([]byte(s)))
}
