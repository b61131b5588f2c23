package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itchan-dev/echobox/shared/apiclient"
	"github.com/itchan-dev/echobox/shared/domain"
)

func TestSubmitGet(t *testing.T) {
	env := newTestEnv(t)

	t.Run("text is the default mode", func(t *testing.T) {
		w := env.do(httptest.NewRequest(http.MethodGet, "/submit?mode=bogus", nil))
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `name="mode" value="text"`)
		assert.Contains(t, body, `placeholder="What&#39;s on your mind?"`)
		assert.Contains(t, body, "0/1000")
	})

	t.Run("image mode shows caption counter", func(t *testing.T) {
		w := env.do(httptest.NewRequest(http.MethodGet, "/submit?mode=image", nil))
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `name="mode" value="image"`)
		assert.Contains(t, body, `name="caption"`)
		assert.Contains(t, body, "0/200")
		assert.Contains(t, body, "jpeg, png, gif")
	})
}

func TestSubmitPost_Text(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(multipartRequest(t, "/submit", map[string]string{"mode": "text", "text": "hello"}, nil))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/submit?mode=text", w.Header().Get("Location"))
	assert.Equal(t, "Message sent!", flashValue(t, w, flashCookieSuccess))

	sent := env.gw.sentRequests()
	require.Len(t, sent, 1)
	assert.Equal(t, domain.TypeText, sent[0].Type)
	assert.Equal(t, "hello", sent[0].Text)
}

func TestSubmitPost_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]string
		file    *formFile
		wantMsg string
	}{
		{
			name:    "blank text",
			fields:  map[string]string{"mode": "text", "text": "   "},
			wantMsg: "Please add some content before sending.",
		},
		{
			name:    "text over limit",
			fields:  map[string]string{"mode": "text", "text": strings.Repeat("a", 1001)},
			wantMsg: "at most 1000 characters",
		},
		{
			name:    "image mode without a file",
			fields:  map[string]string{"mode": "image", "caption": "lonely caption"},
			wantMsg: "Please add some content before sending.",
		},
		{
			name:    "caption over limit",
			fields:  map[string]string{"mode": "image", "caption": strings.Repeat("б", 201)},
			file:    &formFile{name: "cat.png", contentType: "image/png", data: []byte("png")},
			wantMsg: "at most 200 characters",
		},
		{
			name:    "wrong file type for image",
			fields:  map[string]string{"mode": "image", "caption": "keep me"},
			file:    &formFile{name: "doc.pdf", contentType: "application/pdf", data: []byte("%PDF-1.4")},
			wantMsg: "unsupported file type",
		},
		{
			name:    "voice mode without a clip",
			fields:  map[string]string{"mode": "voice"},
			wantMsg: "Please add some content before sending.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			w := env.do(multipartRequest(t, "/submit", tt.fields, tt.file))

			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantMsg)
			assert.Empty(t, env.gw.sentRequests())
		})
	}
}

func TestSubmitPost_RejectedFileKeepsCaption(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(multipartRequest(t, "/submit",
		map[string]string{"mode": "image", "caption": "keep me"},
		&formFile{name: "doc.pdf", contentType: "application/pdf", data: []byte("%PDF-1.4")}))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `value="keep me"`)
}

func TestSubmitPost_Image(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(multipartRequest(t, "/submit",
		map[string]string{"mode": "image", "caption": "my cat"},
		&formFile{name: "cat.png", contentType: "image/png", data: pngBytes(t, 4, 4)}))

	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/submit?mode=image", w.Header().Get("Location"))

	sent := env.gw.sentRequests()
	require.Len(t, sent, 1)
	assert.Equal(t, domain.TypeImage, sent[0].Type)
	assert.Equal(t, "my cat", sent[0].Text)
	require.NotNil(t, sent[0].File)
	assert.Equal(t, "cat.png", sent[0].File.Filename)
	assert.Equal(t, "image/png", sent[0].File.MimeType)
}

func TestSubmitPost_DocumentWithDescription(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(multipartRequest(t, "/submit",
		map[string]string{"mode": "document", "description": "my CV", "caption": "ignored"},
		&formFile{name: "cv.pdf", contentType: "application/pdf", data: []byte("%PDF-1.4 cv")}))

	require.Equal(t, http.StatusSeeOther, w.Code)
	sent := env.gw.sentRequests()
	require.Len(t, sent, 1)
	assert.Equal(t, domain.TypeDocument, sent[0].Type)
	assert.Equal(t, "my CV", sent[0].Text)
	assert.Equal(t, "cv.pdf", sent[0].File.Filename)
}

func TestSubmitPost_VoiceUpload(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(multipartRequest(t, "/submit",
		map[string]string{"mode": "voice"},
		&formFile{name: "note.mp3", contentType: "audio/mpeg", data: []byte("ID3 fake audio")}))

	require.Equal(t, http.StatusSeeOther, w.Code)
	sent := env.gw.sentRequests()
	require.Len(t, sent, 1)
	assert.Equal(t, domain.TypeVoice, sent[0].Type)
	require.NotNil(t, sent[0].Audio)
	assert.Equal(t, []byte("ID3 fake audio"), sent[0].Audio.Data)
}

func TestSubmitPost_GatewayFailureKeepsText(t *testing.T) {
	env := newTestEnv(t)
	env.gw.setErrors(func(g *fakeGateway) {
		g.sendErr = &apiclient.GatewayError{Op: "send_message", StatusCode: http.StatusInternalServerError}
	})

	w := env.do(multipartRequest(t, "/submit", map[string]string{"mode": "text", "text": "hello there"}, nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to send message. Please try again.")
	assert.Contains(t, w.Body.String(), "hello there</textarea>")
}

func TestSubmitPost_PlainErrorIsGatewayFailure(t *testing.T) {
	env := newTestEnv(t)
	env.gw.setErrors(func(g *fakeGateway) { g.sendErr = errors.New("connection reset") })

	w := env.do(multipartRequest(t, "/submit", map[string]string{"mode": "text", "text": "hi"}, nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestSubmitPost_UnreadableForm(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader("mode=text&text=hi"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := env.do(req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, env.gw.sentRequests())
}
