// Package composer assembles one outgoing message from the four input modes
// and submits it through the gateway.
package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/itchan-dev/echobox/shared/apiclient"
	"github.com/itchan-dev/echobox/shared/capture"
	"github.com/itchan-dev/echobox/shared/domain"
	"github.com/itchan-dev/echobox/shared/logger"
	"github.com/itchan-dev/echobox/shared/validation"
)

const (
	MaxTextLength    = 1000
	MaxCaptionLength = 200
)

var (
	ErrNoContent      = errors.New("nothing to submit")
	ErrSubmitInFlight = errors.New("a submission is already in progress")
	ErrTextTooLong    = errors.New("text too long")
	ErrInvalidMode    = errors.New("invalid mode")
)

// Gateway is the part of the gateway client the composer needs.
type Gateway interface {
	SendMessage(ctx context.Context, req apiclient.SendRequest) error
}

// draft holds the free-text inputs. Lengths are counted in characters.
type draft struct {
	Text                string `validate:"max=1000"`
	ImageCaption        string `validate:"max=200"`
	DocumentDescription string `validate:"max=200"`
}

// Composer owns every staged input until a submit succeeds. The recorder may
// be nil when voice clips come from uploads only.
type Composer struct {
	gateway  Gateway
	recorder *capture.Recorder
	validate *validator.Validate
	log      *slog.Logger

	mu       sync.Mutex
	mode     domain.MessageType
	draft    draft
	image    *validation.Intake
	document *validation.Intake
	voice    *validation.Intake

	inFlight atomic.Bool
}

func New(gateway Gateway, recorder *capture.Recorder) *Composer {
	return &Composer{
		gateway:  gateway,
		recorder: recorder,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      logger.Component("composer"),
		mode:     domain.TypeText,
		image:    validation.NewIntake(validation.ContextImage),
		document: validation.NewIntake(validation.ContextDocument),
		voice:    validation.NewIntake(validation.ContextAudio),
	}
}

func (c *Composer) Mode() domain.MessageType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Composer) SetMode(mode domain.MessageType) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
	return nil
}

// Recorder returns the voice recorder, or nil.
func (c *Composer) Recorder() *capture.Recorder {
	return c.recorder
}

// InFlight reports whether a submit is waiting for the gateway.
func (c *Composer) InFlight() bool {
	return c.inFlight.Load()
}

// SetText replaces the message text. Over-long text is rejected as a whole
// and the previous value is kept.
func (c *Composer) SetText(text string) error {
	return c.setField("Text", text, func(d *draft) { d.Text = text })
}

func (c *Composer) SetImageCaption(caption string) error {
	return c.setField("ImageCaption", caption, func(d *draft) { d.ImageCaption = caption })
}

func (c *Composer) SetDocumentDescription(description string) error {
	return c.setField("DocumentDescription", description, func(d *draft) { d.DocumentDescription = description })
}

func (c *Composer) setField(field, value string, apply func(*draft)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	candidate := c.draft
	apply(&candidate)
	if err := c.validate.StructPartial(candidate, field); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s must be at most %s characters", ErrTextTooLong, fieldLabel(field), verrs[0].Param())
		}
		return fmt.Errorf("%w: %v", ErrTextTooLong, err)
	}
	c.draft = candidate
	return nil
}

func fieldLabel(field string) string {
	switch field {
	case "ImageCaption":
		return "caption"
	case "DocumentDescription":
		return "description"
	default:
		return "message"
	}
}

func (c *Composer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Text
}

func (c *Composer) ImageCaption() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.ImageCaption
}

func (c *Composer) DocumentDescription() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.DocumentDescription
}

// StageImage validates and stages an image, switching to image mode.
func (c *Composer) StageImage(file *domain.PendingUpload) error {
	return c.stage(c.image, domain.TypeImage, file)
}

// StageDocument validates and stages a document, switching to document mode.
func (c *Composer) StageDocument(file *domain.PendingUpload) error {
	return c.stage(c.document, domain.TypeDocument, file)
}

// StageVoice stages an already recorded audio file as the voice clip. A clip
// held by the recorder takes precedence.
func (c *Composer) StageVoice(file *domain.PendingUpload) error {
	return c.stage(c.voice, domain.TypeVoice, file)
}

func (c *Composer) stage(in *validation.Intake, mode domain.MessageType, file *domain.PendingUpload) error {
	if err := in.Accept(file); err != nil {
		c.log.Debug("file rejected", "mode", mode, "error", err)
		return err
	}
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
	return nil
}

func (c *Composer) ClearImage()    { c.image.Clear() }
func (c *Composer) ClearDocument() { c.document.Clear() }
func (c *Composer) ClearVoice()    { c.voice.Clear() }

func (c *Composer) StagedImage() *domain.PendingUpload    { return c.image.Staged() }
func (c *Composer) StagedDocument() *domain.PendingUpload { return c.document.Staged() }

// Submit sends the active mode's content as exactly one gateway call.
// On success every mode is cleared and the mode returns to text; on failure
// nothing staged is touched.
func (c *Composer) Submit(ctx context.Context) error {
	if !c.inFlight.CompareAndSwap(false, true) {
		return ErrSubmitInFlight
	}
	defer c.inFlight.Store(false)

	req, err := c.buildRequest()
	if err != nil {
		return err
	}

	if err := c.gateway.SendMessage(ctx, req); err != nil {
		c.log.Warn("submit failed", "mode", req.Type, "error", err)
		var gerr *apiclient.GatewayError
		if !errors.As(err, &gerr) && !errors.Is(err, apiclient.ErrInvalidMessage) {
			err = &apiclient.GatewayError{Op: "send_message", Err: err}
		}
		return err
	}

	c.reset()
	c.log.Info("message submitted", "mode", req.Type)
	return nil
}

func (c *Composer) buildRequest() (apiclient.SendRequest, error) {
	c.mu.Lock()
	mode := c.mode
	d := c.draft
	c.mu.Unlock()

	req := apiclient.SendRequest{Type: mode}
	switch mode {
	case domain.TypeText:
		if strings.TrimSpace(d.Text) == "" {
			return req, ErrNoContent
		}
		req.Text = d.Text
	case domain.TypeImage:
		req.File = c.image.Staged()
		req.Text = d.ImageCaption
	case domain.TypeDocument:
		req.File = c.document.Staged()
		req.Text = d.DocumentDescription
	case domain.TypeVoice:
		req.Audio = c.voiceClip()
		if req.Audio == nil {
			return req, ErrNoContent
		}
		if err := validation.Check(&domain.PendingUpload{
			Filename: "voice recording",
			MimeType: req.Audio.MimeType,
			Size:     req.Audio.Size(),
			Data:     req.Audio.Data,
		}, validation.ContextAudio); err != nil {
			return req, err
		}
	}
	if (mode == domain.TypeImage || mode == domain.TypeDocument) && req.File == nil {
		return req, ErrNoContent
	}
	return req, nil
}

// voiceClip returns the finalized clip to send. A recording still in
// progress does not count.
func (c *Composer) voiceClip() *domain.Clip {
	if c.recorder != nil && c.recorder.State().HasClip() {
		if clip := c.recorder.Clip(); clip != nil && len(clip.Data) > 0 {
			return clip
		}
	}
	if f := c.voice.Staged(); f != nil {
		return &domain.Clip{Data: f.Data, MimeType: f.MimeType}
	}
	return nil
}

func (c *Composer) reset() {
	c.mu.Lock()
	c.draft = draft{}
	c.mode = domain.TypeText
	c.mu.Unlock()

	c.image.Clear()
	c.document.Clear()
	c.voice.Clear()
	if c.recorder != nil && c.recorder.State().HasClip() {
		_ = c.recorder.Discard()
	}
}
