package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aliftffd/speech-recognition-withOLLAMA/audio"
	"github.com/aliftffd/speech-recognition-withOLLAMA/bus"
	"github.com/aliftffd/speech-recognition-withOLLAMA/config"
	"github.com/aliftffd/speech-recognition-withOLLAMA/convo"
	"github.com/aliftffd/speech-recognition-withOLLAMA/listen"
	"github.com/aliftffd/speech-recognition-withOLLAMA/log"
	"github.com/aliftffd/speech-recognition-withOLLAMA/mic"
	"github.com/aliftffd/speech-recognition-withOLLAMA/recognizer"
)

var version = "dev"

// app glues the TUI key handler to the background workers. Action
// methods run on the bubbletea update loop and must not block.
type app struct {
	manager *mic.Manager
	worker  *recognizer.Worker
	convo   *convo.Manager
	ctrl    *listen.Controller

	mu      sync.Mutex
	program *tea.Program
}

func (a *app) setProgram(p *tea.Program) {
	a.mu.Lock()
	a.program = p
	a.mu.Unlock()
}

func (a *app) send(msg tea.Msg) {
	a.mu.Lock()
	p := a.program
	a.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (a *app) ListenOnce() {
	if !a.ctrl.Start(listen.ModeOnce) {
		a.send(LogMsg{Text: "Already listening"})
	}
}

func (a *app) ToggleContinuous() {
	switch a.ctrl.State() {
	case listen.StateIdle:
		if a.ctrl.Start(listen.ModeContinuous) {
			a.send(ContinuousMsg{On: true})
			a.send(LogMsg{Text: "Continuous mode on"})
		}
	case listen.StateListeningContinuous:
		a.ctrl.Stop()
		a.send(ContinuousMsg{On: false})
		a.send(LogMsg{Text: "Continuous mode off"})
	default:
		a.send(LogMsg{Text: "Already listening"})
	}
}

func (a *app) CycleMic() {
	devices := a.manager.Enumerate()
	if len(devices) == 0 {
		a.send(ErrMsg{Text: "No capture devices available"})
		return
	}
	next := mic.Cycle(devices, a.ctrl.Device())
	a.ctrl.SetDevice(next)
	a.send(MicLineMsg{Text: micLineText(devices, next)})
	log.Infof("microphone switched to %d", next)
}

func (a *app) ToggleLanguage() {
	lang := "id-ID"
	if a.ctrl.Language() == "id-ID" {
		lang = "en-US"
	}
	a.ctrl.SetLanguage(lang)
	a.send(LanguageMsg{Code: lang})
	log.Infof("language set to %s", lang)
}

func (a *app) ToggleDebug() {
	on := !a.worker.Debug()
	a.worker.SetDebug(on)
	a.send(DebugMsg{On: on})
	if on {
		a.send(LogMsg{Text: "Debug mode on: unrecognized audio will be saved"})
	} else {
		a.send(LogMsg{Text: "Debug mode off"})
	}
}

func (a *app) ToggleResponses() {
	on := !a.ctrl.RespondEnabled()
	a.ctrl.SetRespond(on)
	a.send(ResponsesMsg{On: on})
}

func (a *app) ClearConversation() {
	a.convo.Reset()
	log.Info("conversation cleared")
}

func (a *app) CopyReply(text string) error {
	return clipboard.WriteAll(text)
}

func micLineText(devices []mic.Device, index int) string {
	for _, d := range devices {
		if d.Index == index {
			return "mic: " + d.ShortName()
		}
	}
	return "mic: system default"
}

func errorText(err error) string {
	switch {
	case errors.Is(err, mic.ErrBusy):
		return "Microphone busy"
	case errors.Is(err, mic.ErrNoDevices):
		return "No capture devices available"
	case errors.Is(err, recognizer.ErrTimeout):
		return "No speech detected"
	case errors.Is(err, recognizer.ErrNotUnderstood):
		return "Could not understand audio"
	case errors.Is(err, recognizer.ErrServiceUnavailable):
		return fmt.Sprintf("Speech service unavailable: %v", err)
	case errors.Is(err, convo.ErrBusy):
		return "Assistant is still answering"
	}
	return err.Error()
}

// drainBus forwards bus events to the TUI and the on-disk logs. It is
// the only consumer of the bus.
func drainBus(b *bus.Bus, a *app, transcripts *atomic.Int64) {
	for ev := range b.Events() {
		switch ev := ev.(type) {
		case bus.StatusEvent:
			a.send(StatusMsg{Text: ev.Text, Listening: ev.Listening})
		case bus.AudioLevelEvent:
			a.send(AudioLevelMsg{Level: ev.Level})
		case bus.TranscriptEvent:
			transcripts.Add(1)
			log.Transcript(ev.Language, ev.Text)
			a.send(TranscriptMsg{Timestamp: ev.Timestamp, Text: ev.Text, Language: ev.Language})
		case bus.ReplyEvent:
			log.Reply(ev.Text)
			a.send(ReplyMsg{Timestamp: ev.Timestamp, Text: ev.Text})
		case bus.LogEvent:
			a.send(LogMsg{Text: ev.Text})
		case bus.ErrorEvent:
			log.Errorf("worker error: %v", ev.Err)
			a.send(ErrMsg{Text: errorText(ev.Err)})
		case bus.ArtifactEvent:
			log.Infof("debug audio saved: %s", ev.Path)
			a.send(ArtifactMsg{Path: ev.Path})
		}
	}
}

func run() error {
	configFlag := flag.String("config", config.DefaultPath, "Path to the LLM prompt config file")
	setupFlag := flag.Bool("setup", false, "Select microphone device interactively")
	debugFlag := flag.Bool("debug", false, "Save unrecognized audio to WAV files")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Println("speechtui " + version)
		return nil
	}

	logDir, err := log.ResolveDir(*logPathFlag)
	if err == nil {
		log.SetDir(logDir)
		err = log.Init()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
	}
	defer log.Close()

	cfg, found, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v, using defaults\n", err)
	}
	if !found {
		log.Warnf("config %s not found, using defaults", *configFlag)
	}

	ctx, err := audio.NewContext()
	if err != nil {
		return fmt.Errorf("initializing audio: %w", err)
	}
	defer ctx.Close()

	manager := mic.NewManager(ctx)
	devices := manager.Enumerate()
	deviceIndex, _ := mic.SelectBest(devices)

	if *setupFlag {
		chosen, err := audio.SelectDevice(ctx)
		if err != nil {
			return err
		}
		infos, _ := ctx.Devices()
		for i, info := range infos {
			if info.ID == chosen.ID {
				deviceIndex = i
				break
			}
		}
	}

	b := bus.New(128)
	defer b.Close()

	worker := recognizer.NewWorker(recognizer.NewHTTPService(cfg.SpeechURL, cfg.SpeechKey))
	worker.SetDebug(cfg.Debug || *debugFlag)
	worker.OnLevel = func(level int) {
		b.Publish(bus.AudioLevelEvent{Level: level, Timestamp: time.Now()})
	}

	conv := convo.NewManager(
		convo.NewOllamaClient(cfg.OllamaHost),
		convo.Options{Model: cfg.Model, Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens},
		cfg.SystemPrompt,
	)

	ctrl := listen.NewController(manager, worker, conv, b)
	ctrl.SetDevice(deviceIndex)
	ctrl.SetLanguage(cfg.DefaultLanguage)
	defer ctrl.Close()

	a := &app{
		manager: manager,
		worker:  worker,
		convo:   conv,
		ctrl:    ctrl,
	}

	p := NewTUIProgram(a, cfg.DefaultLanguage, micLineText(devices, deviceIndex), true)
	a.setProgram(p)

	var transcripts atomic.Int64
	go drainBus(b, a, &transcripts)

	log.SessionStart(cfg.Model, cfg.DefaultLanguage)
	_, runErr := p.Run()

	ctrl.Close()
	log.SessionEnd(int(transcripts.Load()))
	return runErr
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
