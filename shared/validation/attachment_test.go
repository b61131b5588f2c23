package validation

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itchan-dev/echobox/shared/domain"
)

func upload(name, mimeType string, size int) *domain.PendingUpload {
	return &domain.PendingUpload{Filename: name, MimeType: mimeType, Size: int64(size), Data: make([]byte, size)}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		file    *domain.PendingUpload
		ctx     Context
		wantErr error
	}{
		{name: "6MB png is too large", file: upload("a.png", "image/png", 6*mib), ctx: ContextImage, wantErr: ErrFileTooLarge},
		{name: "2MB txt is unsupported", file: upload("a.txt", "text/plain", 2*mib), ctx: ContextImage, wantErr: ErrUnsupportedType},
		{name: "2MB jpeg is accepted", file: upload("a.jpg", "image/jpeg", 2*mib), ctx: ContextImage},
		{name: "exactly 5MB gif is accepted", file: upload("a.gif", "image/gif", 5*mib), ctx: ContextImage},
		{name: "pdf document", file: upload("cv.pdf", "application/pdf", 9*mib), ctx: ContextDocument},
		{name: "11MB pdf is too large", file: upload("cv.pdf", "application/pdf", 11*mib), ctx: ContextDocument, wantErr: ErrFileTooLarge},
		{name: "png is not a document", file: upload("a.png", "image/png", 10), ctx: ContextDocument, wantErr: ErrUnsupportedType},
		{name: "oversize wrong type reports size first", file: upload("a.txt", "text/plain", 6*mib), ctx: ContextImage, wantErr: ErrFileTooLarge},
		{name: "audio with parameters", file: upload("v.ogg", "audio/ogg; codecs=opus", 100), ctx: ContextAudio},
		{name: "audio/mp3 alias", file: upload("v.mp3", "audio/mp3", 100), ctx: ContextAudio},
		{name: "unknown context", file: upload("a.jpg", "image/jpeg", 1), ctx: Context("video"), wantErr: ErrUnknownContext},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.file, tt.ctx)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestIntake_Accept(t *testing.T) {
	in := NewIntake(ContextImage)
	assert.Nil(t, in.Staged())

	first := upload("first.jpg", "image/jpeg", 2*mib)
	require.NoError(t, in.Accept(first))
	assert.Same(t, first, in.Staged())

	t.Run("rejected file keeps previous staged file", func(t *testing.T) {
		err := in.Accept(upload("big.png", "image/png", 6*mib))
		assert.ErrorIs(t, err, ErrFileTooLarge)
		assert.Same(t, first, in.Staged())
	})

	t.Run("new file replaces staged file", func(t *testing.T) {
		second := upload("second.png", "image/png", 1024)
		require.NoError(t, in.Accept(second))
		assert.Same(t, second, in.Staged())
	})

	t.Run("clear", func(t *testing.T) {
		in.Clear()
		assert.Nil(t, in.Staged())
		in.Clear()
		assert.Nil(t, in.Staged())
	})

	assert.Error(t, in.Accept(nil))
}

func TestResolveMimeType(t *testing.T) {
	jpegHead := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

	assert.Equal(t, "image/png", ResolveMimeType("image/png", "x.jpg", nil), "declared type wins")
	assert.Equal(t, "image/jpeg", ResolveMimeType("", "photo.jpg", nil))
	assert.Equal(t, "application/pdf", ResolveMimeType("application/octet-stream", "doc.pdf", nil))
	assert.Equal(t, "image/jpeg", ResolveMimeType("", "blob", jpegHead), "sniffed from content")
	assert.Equal(t, "text/plain", ResolveMimeType("text/plain; charset=utf-8", "a.txt", nil))
}

func TestReadUpload(t *testing.T) {
	t.Run("oversize stops reading", func(t *testing.T) {
		data := bytes.Repeat([]byte{0}, 5*mib+100)
		_, err := ReadUpload(bytes.NewReader(data), "big.png", "image/png", ContextImage)
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("reads and resolves", func(t *testing.T) {
		f, err := ReadUpload(bytes.NewReader([]byte("%PDF-1.4 test")), "doc.pdf", "", ContextDocument)
		require.NoError(t, err)
		assert.Equal(t, "application/pdf", f.MimeType)
		assert.Equal(t, int64(13), f.Size)
		assert.Equal(t, "doc.pdf", f.Filename)
	})
}

func TestFromMultipart(t *testing.T) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("image", "cat.gif")
	require.NoError(t, err)
	_, err = part.Write([]byte("GIF89a......"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/submit", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rr := httptest.NewRecorder()
	require.NoError(t, ValidateAndParseMultipart(req, rr, CalculateMaxRequestSize(1<<20)))

	fh := req.MultipartForm.File["image"][0]
	f, err := FromMultipart(fh, ContextImage)
	require.NoError(t, err)
	// CreateFormFile declares application/octet-stream, the extension resolves it
	assert.Equal(t, "image/gif", f.MimeType)

	_, err = FromMultipart(fh, ContextDocument)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestMimeTypeExtensions(t *testing.T) {
	assert.Equal(t, "jpeg, png, gif", MimeTypeExtensions([]string{"image/jpeg", "image/png", "image/gif"}))
	assert.Equal(t, "mp3, mpeg", MimeTypeExtensions([]string{"audio/mp3", "audio/mpeg", "bogus"}))
}
