package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/evalia/internal/domain"
)

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func stopAfter(d time.Duration) StopFunc {
	return func(ctx context.Context) error {
		select {
		case <-time.After(d):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func TestFFMPEGRecorderCapturesUntilStopped(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "ffmpeg.sh", "#!/usr/bin/env bash\nprintf 'abcd'\nexec sleep 5\n")
	rec, err := NewFFMPEGRecorder(Config{Command: script}, stopAfter(300*time.Millisecond), zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	artifact, err := rec.Capture(context.Background(), domain.RoundHR, 2)
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	if artifact.ID() != "hr_2" || artifact.MIMEType != "audio/wav" {
		t.Fatalf("unexpected artifact: %s %s", artifact.ID(), artifact.MIMEType)
	}
	if !bytes.HasPrefix(artifact.Data, []byte("RIFF")) || !bytes.HasSuffix(artifact.Data, []byte("abcd")) {
		t.Fatalf("expected wav wrapped pcm, got %q", artifact.Data)
	}
}

func TestFFMPEGRecorderMaxDuration(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	script := writeScript(t, "ffmpeg.sh", "#!/usr/bin/env bash\necho \"$@\" > "+argsFile+"\nprintf 'pcm'\n")

	rec, _ := NewFFMPEGRecorder(Config{Command: script, MaxDuration: 30 * time.Second}, stopAfter(200*time.Millisecond), nil)

	artifact, err := rec.Capture(context.Background(), domain.RoundTechnical, 0)
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	if artifact.Empty() {
		t.Fatal("expected audio data")
	}

	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	for _, want := range []string{"-f pulse -i default", "-ar 16000", "-t 30", "-f s16le -"} {
		if !strings.Contains(string(args), want) {
			t.Fatalf("expected %q in args %q", want, args)
		}
	}
}

func TestFFMPEGRecorderFailure(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'no such device' 1>&2\nexit 1\n")
	rec, _ := NewFFMPEGRecorder(Config{Command: script}, stopAfter(5*time.Second), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := rec.Capture(ctx, domain.RoundHR, 0)
	if err == nil || !strings.Contains(err.Error(), "no such device") {
		t.Fatalf("expected ffmpeg error with stderr, got %v", err)
	}
}

func TestFFMPEGRecorderNoAudio(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "silent.sh", "#!/usr/bin/env bash\nexec sleep 5\n")
	rec, _ := NewFFMPEGRecorder(Config{Command: script}, stopAfter(200*time.Millisecond), nil)

	if _, err := rec.Capture(context.Background(), domain.RoundHR, 0); !errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}
}

func TestFFMPEGRecorderStopError(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "ffmpeg.sh", "#!/usr/bin/env bash\nexec sleep 5\n")
	stopErr := errors.New("interrupted")
	rec, _ := NewFFMPEGRecorder(Config{Command: script}, func(context.Context) error { return stopErr }, nil)

	if _, err := rec.Capture(context.Background(), domain.RoundHR, 0); !errors.Is(err, stopErr) {
		t.Fatalf("expected stop error, got %v", err)
	}
}

func TestNewFFMPEGRecorderRequiresStop(t *testing.T) {
	if _, err := NewFFMPEGRecorder(Config{}, nil, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	t.Parallel()

	pcm := []byte{1, 2, 3, 4}
	wav := encodeWAV(pcm, 16000, 1)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("unexpected length %d", len(wav))
	}
	if string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Fatalf("unexpected header: %q", wav[:44])
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 16000 {
		t.Fatalf("unexpected sample rate %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Fatalf("unexpected data size %d", got)
	}
}

func TestFileCapture(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "answer.MP3")
	if err := os.WriteFile(path, []byte("ID3"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	capture, err := NewFileCapture(func(context.Context, domain.RoundType, int) (string, error) {
		return " " + path + " ", nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	artifact, err := capture.Capture(context.Background(), domain.RoundHR, 1)
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	if artifact.MIMEType != "audio/mp3" || string(artifact.Data) != "ID3" || artifact.Index != 1 {
		t.Fatalf("unexpected artifact: %+v", artifact)
	}
}

func TestFileCaptureRejectsInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.wav")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name string
		path string
		want error
	}{
		{name: "blank", path: "  ", want: ErrNoAudio},
		{name: "empty file", path: empty, want: ErrNoAudio},
		{name: "unsupported", path: filepath.Join(dir, "notes.txt")},
		{name: "missing", path: filepath.Join(dir, "missing.wav")},
	}

	for _, tt := range tests {
		capture, _ := NewFileCapture(func(context.Context, domain.RoundType, int) (string, error) {
			return tt.path, nil
		}, nil)

		_, err := capture.Capture(context.Background(), domain.RoundHR, 0)
		if err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
}
