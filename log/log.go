package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog        zerolog.Logger
	diagFile       *os.File
	transcriptFile *os.File
	logMu          sync.Mutex
	logReady       bool
	pid            int
	dir            string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		if !filepath.IsAbs(flagPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, flagPath), nil
		}
		return flagPath, nil
	}

	// Priority 2: SPEECH_LOG_PATH environment variable
	envPath := os.Getenv("SPEECH_LOG_PATH")
	if envPath != "" {
		if !filepath.IsAbs(envPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, envPath), nil
		}
		return envPath, nil
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func SetDir(d string) {
	dir = d
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	transcriptPath := filepath.Join(dir, "conversation_log.txt")
	transcriptFile, err = os.OpenFile(transcriptPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if transcriptFile != nil {
		transcriptFile.Close()
		transcriptFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// Recognition records one completed capture-and-transcribe cycle.
func Recognition(language string, audioSeconds, totalMs float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("language", language).
		Float64("audio_s", audioSeconds).
		Float64("total_ms", totalMs).
		Msg("recognition")
}

// Inference records one chat round trip.
func Inference(model string, historyLen int, totalMs float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("model", model).
		Int("history", historyLen).
		Float64("total_ms", totalMs).
		Msg("inference")
}

// Transcript appends a recognized utterance to the conversation log.
func Transcript(language, text string) {
	appendConversation("you", language, text)
}

// Reply appends an assistant response to the conversation log.
func Reply(text string) {
	appendConversation("assistant", "", text)
}

func appendConversation(who, language, text string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	tag := who
	if language != "" {
		tag = fmt.Sprintf("%s/%s", who, language)
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, tag, text)
	transcriptFile.WriteString(line)
}

func SessionStart(model, language string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("model", model).
		Str("language", language).
		Msg("session_start")
}

func SessionEnd(transcripts int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("count", transcripts).
		Msg("session_end")
}
