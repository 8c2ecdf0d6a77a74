package encryption

import (
	"fmt"
	"io"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/offline"
)

// NoneEncryptor stores blobs as-is. For devices where at-rest sealing is
// handled below the application, e.g. full-disk encryption.
type NoneEncryptor struct{}

var _ offline.Encryptor = (*NoneEncryptor)(nil)

// NewNoneEncryptor creates a new NoneEncryptor.
func NewNoneEncryptor() *NoneEncryptor {
	return &NoneEncryptor{}
}

func (e *NoneEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *NoneEncryptor) Decrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
