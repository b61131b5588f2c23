package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/itchan-dev/echobox/shared/api"
	"github.com/itchan-dev/echobox/shared/domain"
	"github.com/itchan-dev/echobox/shared/logger"
)

var ErrInvalidMessage = errors.New("invalid message request")

// SendRequest is one submission. Text is the message body in text mode and
// the optional caption or description for images and documents. Voice
// messages carry no text.
type SendRequest struct {
	Type  domain.MessageType
	Text  string
	File  *domain.PendingUpload
	Audio *domain.Clip
}

func (r SendRequest) Validate() error {
	switch r.Type {
	case domain.TypeText:
		if strings.TrimSpace(r.Text) == "" {
			return fmt.Errorf("%w: empty text", ErrInvalidMessage)
		}
	case domain.TypeImage, domain.TypeDocument:
		if r.File == nil {
			return fmt.Errorf("%w: %s without file", ErrInvalidMessage, r.Type)
		}
	case domain.TypeVoice:
		if r.Audio == nil || len(r.Audio.Data) == 0 {
			return fmt.Errorf("%w: voice without clip", ErrInvalidMessage)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, r.Type)
	}
	return nil
}

// SendMessage posts one message to the gateway as multipart form data.
func (c *APIClient) SendMessage(ctx context.Context, req SendRequest) error {
	const op = "send_message"
	if err := req.Validate(); err != nil {
		return err
	}

	pipeReader, pipeWriter := io.Pipe()
	writer := multipart.NewWriter(pipeWriter)

	go func() {
		defer pipeWriter.Close()
		defer writer.Close()

		if err := writer.WriteField(api.FieldType, req.Type.Wire()); err != nil {
			pipeWriter.CloseWithError(err)
			return
		}
		if err := c.writeContent(writer, req); err != nil {
			pipeWriter.CloseWithError(err)
			return
		}
	}()

	resp, err := c.do(ctx, op, http.MethodPost, "/add-message", pipeReader, writer.FormDataContentType())
	if err != nil {
		pipeReader.CloseWithError(err)
		return err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return statusError(op, resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	logger.Log.Info("message sent", "type", req.Type)
	return nil
}

func (c *APIClient) writeContent(writer *multipart.Writer, req SendRequest) error {
	switch req.Type {
	case domain.TypeImage, domain.TypeDocument:
		field := api.FieldImage
		if req.Type == domain.TypeDocument {
			field = api.FieldDocument
		}
		if err := writeFilePart(writer, field, req.File.Filename, req.File.MimeType, req.File.Data); err != nil {
			return err
		}
		// caption or description travels as text after the file
		if req.Text != "" {
			return writer.WriteField(api.FieldText, req.Text)
		}
		return nil
	case domain.TypeVoice:
		name := fmt.Sprintf("audio_%d.mp3", c.now().UnixMilli())
		return writeFilePart(writer, api.FieldAudio, name, req.Audio.MimeType, req.Audio.Data)
	default:
		return writer.WriteField(api.FieldText, req.Text)
	}
}

func writeFilePart(writer *multipart.Writer, field, filename, contentType string, data []byte) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, escapeQuotes(filename)))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, bytes.NewReader(data))
	return err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// GetMessages fetches every message the gateway holds, in gateway order.
func (c *APIClient) GetMessages(ctx context.Context) ([]domain.Message, error) {
	const op = "get_messages"
	resp, err := c.do(ctx, op, http.MethodGet, "/get-messages", nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, statusError(op, resp)
	}

	var records []api.MessageRecord
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&records); err != nil {
		return nil, &GatewayError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode messages: %w", err)}
	}

	messages := make([]domain.Message, 0, len(records))
	for _, rec := range records {
		messages = append(messages, c.toDomain(rec))
	}
	return messages, nil
}

func (c *APIClient) toDomain(rec api.MessageRecord) domain.Message {
	msg := domain.Message{
		Id:        rec.Id.String(),
		Type:      domain.ParseWireType(rec.MessageType),
		CreatedAt: parseTimestamp(rec.Timestamp),
		IsRead:    rec.MessageStatus != api.MessageStatusUnread,
		FileSize:  rec.FileSize,
	}
	if rec.Text != nil {
		msg.Content = *rec.Text
	}
	// media is keyed on the raw wire type so unknown types keep their file
	if rec.MessageType != domain.TypeText.Wire() {
		msg.FileURL = c.MediaURL(msg.Id)
		msg.FileName = rec.FileName
		switch {
		case msg.FileName != "":
		case msg.Type == domain.TypeText:
			msg.FileName = "attachment_" + msg.Id
		default:
			msg.FileName = domain.SynthesizeFileName(msg.Type, msg.Id, msg.Content)
		}
	}
	return msg
}

// MediaURL is the gateway location of a message's binary content.
func (c *APIClient) MediaURL(id domain.MsgId) string {
	return c.BaseURL + "/get-media/" + id
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	logger.Log.Debug("unparseable message timestamp", "timestamp", s)
	return time.Time{}
}

// MarkAsRead asks the gateway to mark id as read. Transport failures always
// fail; non-2xx responses fail only when StrictMarkRead is set.
func (c *APIClient) MarkAsRead(ctx context.Context, id domain.MsgId) error {
	const op = "mark_read"
	resp, err := c.do(ctx, op, http.MethodGet, "/read-message/"+id, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		gerr := statusError(op, resp)
		if c.StrictMarkRead {
			return gerr
		}
		logger.Log.Warn("gateway rejected mark-as-read, treating as success", "id", id, "status", resp.StatusCode)
	}
	return nil
}

// Media is a streamed media body. The caller must close Body.
type Media struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

func (c *APIClient) GetMedia(ctx context.Context, id domain.MsgId) (*Media, error) {
	const op = "get_media"
	resp, err := c.do(ctx, op, http.MethodGet, "/get-media/"+id, nil, "")
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp.StatusCode) {
		defer resp.Body.Close()
		return nil, statusError(op, resp)
	}
	return &Media{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}, nil
}
