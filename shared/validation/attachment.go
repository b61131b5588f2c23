package validation

import (
	"fmt"
	"io"
	"mime/multipart"
	"sync"

	"github.com/itchan-dev/echobox/shared/domain"
)

// Intake stages at most one validated file. Rejected files never become staged.
type Intake struct {
	ctx    Context
	mu     sync.RWMutex
	staged *domain.PendingUpload
}

func NewIntake(ctx Context) *Intake {
	return &Intake{ctx: ctx}
}

func (in *Intake) Context() Context {
	return in.ctx
}

// Accept validates file and, on success, replaces the staged file.
// On failure the previously staged file is left untouched.
func (in *Intake) Accept(file *domain.PendingUpload) error {
	if file == nil {
		return fmt.Errorf("%w: no file", ErrUnsupportedType)
	}
	if err := Check(file, in.ctx); err != nil {
		return err
	}
	in.mu.Lock()
	in.staged = file
	in.mu.Unlock()
	return nil
}

func (in *Intake) Clear() {
	in.mu.Lock()
	in.staged = nil
	in.mu.Unlock()
}

// Staged returns the staged file or nil.
func (in *Intake) Staged() *domain.PendingUpload {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.staged
}

// ReadUpload reads r into a PendingUpload without reading more than the
// context ceiling plus one byte, so oversize files are rejected early.
func ReadUpload(r io.Reader, filename, declaredMime string, ctx Context) (*domain.PendingUpload, error) {
	rule, err := RuleFor(ctx)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(r, rule.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	file := &domain.PendingUpload{
		Filename: filename,
		MimeType: ResolveMimeType(declaredMime, filename, head),
		Size:     int64(len(data)),
		Data:     data,
	}
	if err := Check(file, ctx); err != nil {
		return nil, err
	}
	return file, nil
}

// FromMultipart reads a form upload into a validated PendingUpload.
func FromMultipart(fh *multipart.FileHeader, ctx Context) (*domain.PendingUpload, error) {
	rule, err := RuleFor(ctx)
	if err != nil {
		return nil, err
	}
	if fh.Size > rule.MaxSize {
		return nil, fmt.Errorf("%w: %s exceeds the maximum limit of %.0fMB", ErrFileTooLarge, fh.Filename, FormatSizeMB(rule.MaxSize))
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()
	return ReadUpload(f, fh.Filename, fh.Header.Get("Content-Type"), ctx)
}
