package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"voice-home/internal/domain"
)

const DefaultChatTimeout = 30 * time.Second

const (
	FallbackErrorReply   = "I encountered an issue processing your request. Let me try a different approach or check your connection."
	FallbackOfflineReply = "I'd love to help you with that! For detailed conversations and advanced AI responses, please check your internet connection. I can still help with device controls and reminders though!"
	ImageReply           = "I can see you've shared an image! I've noted it in our conversation. Tell me what you'd like to know about it, or ask me to control your devices or set a reminder."
)

var ErrEmptyInput = errors.New("empty input")

// Input is one user submission from chat or voice.
type Input struct {
	Text       string             `json:"text"`
	Attachment *domain.Attachment `json:"attachment,omitempty"`
}

// Reply is the assistant's answer to one Input.
type Reply struct {
	Handled bool           `json:"handled"`
	Action  domain.Action  `json:"action"`
	Message domain.Message `json:"message"`
}

type AssistantDeps struct {
	Audio        AudioSource
	STT          SpeechToText
	Chat         ChatModel
	Interpreter  *Interpreter
	Reminders    *ReminderStore
	Transcript   Transcript
	Conversation *Conversation
	Notifier     Notifier
	Events       Publisher
	Logger       *slog.Logger
	Now          func() time.Time
	NewID        func() string
	ChatTimeout  time.Duration
}

// Assistant routes text to the command interpreter or the chat model and
// records both sides in the transcript.
type Assistant struct {
	audio        AudioSource
	stt          SpeechToText
	chat         ChatModel
	interpreter  *Interpreter
	transcript   Transcript
	conversation *Conversation
	notifier     Notifier
	events       Publisher
	logger       *slog.Logger
	now          func() time.Time
	newID        func() string
	chatTimeout  time.Duration

	// one chat request in flight per conversation
	sendMu sync.Mutex

	voiceMu sync.RWMutex
	voice   domain.VoiceSettings
}

func NewAssistant(deps AssistantDeps) *Assistant {
	a := &Assistant{
		audio:        deps.Audio,
		stt:          deps.STT,
		chat:         deps.Chat,
		interpreter:  deps.Interpreter,
		transcript:   deps.Transcript,
		conversation: deps.Conversation,
		notifier:     deps.Notifier,
		events:       deps.Events,
		logger:       deps.Logger,
		now:          deps.Now,
		newID:        deps.NewID,
		chatTimeout:  deps.ChatTimeout,
		voice:        domain.DefaultVoiceSettings(),
	}
	if a.stt == nil {
		a.stt = &NoopSTT{}
	}
	if a.transcript == nil {
		a.transcript = NewMemoryTranscript()
	}
	if a.conversation == nil {
		a.conversation = NewConversation(DefaultHistoryLimit, DefaultHistoryWindow)
	}
	if a.notifier == nil {
		a.notifier = &NoopNotifier{}
	}
	if a.events == nil {
		a.events = nopPublisher{}
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.chatTimeout <= 0 {
		a.chatTimeout = DefaultChatTimeout
	}
	if deps.Reminders != nil {
		deps.Reminders.OnAlert(a.alert)
	}
	return a
}

// HandleText records the user's message and answers it.
func (a *Assistant) HandleText(ctx context.Context, in Input) (Reply, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" && in.Attachment == nil {
		return Reply{}, ErrEmptyInput
	}

	userText := text
	if userText == "" {
		userText = "Shared " + in.Attachment.Name
	}
	user := a.message(userText, true, domain.KindText)
	user.Attachment = in.Attachment
	if err := a.append(ctx, user); err != nil {
		return Reply{}, err
	}

	if in.Attachment.IsImage() {
		return a.respond(ctx, domain.Result{Handled: true, Action: domain.ActionNone, Response: ImageReply}, domain.KindText)
	}
	if text == "" {
		reply := fmt.Sprintf("I've received %s. What would you like me to do with it?", in.Attachment.Name)
		return a.respond(ctx, domain.Result{Handled: true, Action: domain.ActionNone, Response: reply}, domain.KindText)
	}

	res := a.interpreter.Interpret(text)
	if res.Handled {
		a.logger.Info("command handled", "text", text, "action", res.Action, "found", res.Found)
		return a.respond(ctx, res, domain.KindCommand)
	}

	res.Response = a.askChat(ctx, text)
	return a.respond(ctx, res, domain.KindText)
}

// HandleAudio transcribes recorded speech and answers it. Recognition
// failures come back as *domain.RecognitionError.
func (a *Assistant) HandleAudio(ctx context.Context, audio []byte) (Reply, error) {
	if len(audio) == 0 {
		return Reply{}, domain.ClassifyRecognitionError(domain.ErrNoSpeech)
	}
	a.logger.Info("received audio", "bytes", len(audio))

	text, err := a.stt.Transcribe(ctx, audio)
	if err == nil && strings.TrimSpace(text) == "" {
		err = domain.ErrNoSpeech
	}
	if err != nil {
		rerr := domain.ClassifyRecognitionError(err)
		a.logger.Warn("speech recognition failed", "code", rerr.Code, "error", err)
		return Reply{}, rerr
	}

	a.logger.Info("transcribed", "text", text)
	return a.HandleText(ctx, Input{Text: text})
}

// HandleRecognition accepts the outcome of client-side recognition: either a
// transcript or an error code from the speech engine.
func (a *Assistant) HandleRecognition(ctx context.Context, transcript, errorCode string) (Reply, error) {
	if errorCode != "" {
		code := domain.ParseRecognitionErrorCode(errorCode)
		a.logger.Warn("client speech recognition failed", "code", code)
		return Reply{}, &domain.RecognitionError{Code: code}
	}
	if strings.TrimSpace(transcript) == "" {
		return Reply{}, &domain.RecognitionError{Code: domain.RecognitionNoSpeech, Err: domain.ErrNoSpeech}
	}
	return a.HandleText(ctx, Input{Text: transcript})
}

func (a *Assistant) Messages(ctx context.Context, limit int) ([]domain.Message, error) {
	msgs, err := a.transcript.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}
	return msgs, nil
}

// ResetConversation forgets the chat history sent to the model. The
// transcript is kept.
func (a *Assistant) ResetConversation() {
	a.conversation.Clear()
	a.logger.Info("conversation history cleared")
}

func (a *Assistant) VoiceSettings() domain.VoiceSettings {
	a.voiceMu.RLock()
	defer a.voiceMu.RUnlock()
	return a.voice
}

func (a *Assistant) UpdateVoiceSettings(s domain.VoiceSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	a.voiceMu.Lock()
	a.voice = s
	a.voiceMu.Unlock()
	a.logger.Info("voice settings updated", "language", s.Language, "gender", s.Gender, "rate", s.Rate, "pitch", s.Pitch)
	return nil
}

// Run is the server-side voice loop: it pulls recorded commands from the
// audio source until ctx is cancelled.
func (a *Assistant) Run(ctx context.Context) error {
	if a.audio == nil {
		return errors.New("no audio source configured")
	}

	a.logger.Info("starting audio source", "source", a.audio.Name())
	if err := a.audio.Start(ctx); err != nil {
		return fmt.Errorf("starting audio: %w", err)
	}
	defer a.audio.Stop()

	a.logger.Info("assistant ready, listening for commands")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := a.processOneCommand(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				a.logger.Error("processing command", "error", err)
			}
		}
	}
}

func (a *Assistant) processOneCommand(ctx context.Context) error {
	audioData, err := a.audio.NextCommand(ctx)
	if err != nil {
		return fmt.Errorf("getting audio: %w", err)
	}
	if len(audioData) == 0 {
		return nil
	}

	_, err = a.HandleAudio(ctx, audioData)
	var rerr *domain.RecognitionError
	if errors.As(err, &rerr) {
		msg := a.message(rerr.Message(), false, domain.KindError)
		if appendErr := a.append(ctx, msg); appendErr != nil {
			return appendErr
		}
		a.speak(msg.Text)
		return nil
	}
	return err
}

func (a *Assistant) askChat(ctx context.Context, text string) string {
	if a.chat == nil {
		return FallbackOfflineReply
	}

	a.sendMu.Lock()
	defer a.sendMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, a.chatTimeout)
	defer cancel()

	start := a.now()
	reply, err := a.chat.Generate(ctx, a.conversation.Prompt(text))
	reply = strings.TrimSpace(reply)
	if err == nil && reply == "" {
		err = errors.New("empty reply")
	}
	if err != nil {
		a.logger.Error("chat model failed", "model", a.chat.Name(), "error", err)
		return FallbackErrorReply
	}

	a.logger.Info("chat reply", "model", a.chat.Name(), "took", a.now().Sub(start))
	a.conversation.Record(text, reply)
	return reply
}

func (a *Assistant) respond(ctx context.Context, res domain.Result, kind domain.MessageKind) (Reply, error) {
	msg := a.message(res.Response, false, kind)
	if err := a.append(ctx, msg); err != nil {
		return Reply{}, err
	}
	a.speak(msg.Text)
	return Reply{Handled: res.Handled, Action: res.Action, Message: msg}, nil
}

// alert runs when a reminder fires.
func (a *Assistant) alert(r domain.Reminder) {
	ctx, cancel := context.WithTimeout(context.Background(), a.chatTimeout)
	defer cancel()

	text := "🔔 Reminder: " + r.Text
	msg := a.message(text, false, domain.KindReminder)
	if err := a.append(ctx, msg); err != nil {
		a.logger.Error("recording reminder", "id", r.ID, "error", err)
	}
	a.speak("Reminder: " + r.Text)

	if err := a.notifier.Notify(ctx, text); err != nil {
		a.logger.Error("notifying reminder", "id", r.ID, "error", err)
	}

	res := a.interpreter.ApplyDeviceAction(r.Text)
	if !res.Handled {
		return
	}
	a.logger.Info("reminder device action", "id", r.ID, "action", res.Action, "found", res.Found)
	if err := a.append(ctx, a.message(res.Response, false, domain.KindCommand)); err != nil {
		a.logger.Error("recording reminder action", "id", r.ID, "error", err)
	}
}

func (a *Assistant) speak(text string) {
	a.events.Publish(domain.Event{
		Type:    domain.EventSpeak,
		Payload: domain.Utterance{Text: text, Settings: a.VoiceSettings()},
	})
}

func (a *Assistant) append(ctx context.Context, msg domain.Message) error {
	if err := a.transcript.Append(ctx, msg); err != nil {
		return fmt.Errorf("recording message: %w", err)
	}
	a.events.Publish(domain.Event{Type: domain.EventMessageAppended, Payload: msg})
	return nil
}

func (a *Assistant) message(text string, fromUser bool, kind domain.MessageKind) domain.Message {
	var id string
	if a.newID != nil {
		id = a.newID()
	}
	return domain.Message{
		ID:        id,
		Text:      text,
		FromUser:  fromUser,
		Timestamp: a.now(),
		Kind:      kind,
	}
}
