package domain

// PendingUpload is a validated file waiting for the next submit.
type PendingUpload struct {
	Filename string
	MimeType MimeType
	Size     int64
	Data     []byte
}
