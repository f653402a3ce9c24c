package pdf

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrPasswordRequired is returned when an encrypted PDF cannot be opened with
// the supplied credentials.
var ErrPasswordRequired = errors.New("pdf: password required")

// PasswordCredentials contains the passwords for a PDF file.
type PasswordCredentials struct {
	UserPassword  string `json:"user_password,omitempty"`
	OwnerPassword string `json:"owner_password,omitempty"`
}

// Empty reports whether no password is set.
func (c *PasswordCredentials) Empty() bool {
	return c == nil || (c.UserPassword == "" && c.OwnerPassword == "")
}

// PasswordHandler decrypts password-protected PDFs into temporary copies.
type PasswordHandler struct {
	defaultCredentials *PasswordCredentials
}

// NewPasswordHandler creates a handler that falls back to defaults when a call
// supplies no credentials.
func NewPasswordHandler(defaults *PasswordCredentials) *PasswordHandler {
	return &PasswordHandler{defaultCredentials: defaults}
}

// IsEncrypted checks if a PDF file is encrypted/password-protected.
func (h *PasswordHandler) IsEncrypted(filename string) (bool, error) {
	_, err := api.PageCountFile(filename)
	if err == nil {
		return false, nil
	}
	if IsPasswordError(err) {
		return true, nil
	}
	return false, fmt.Errorf("failed to check PDF encryption status: %w", err)
}

// DecryptPDF returns a path to a decrypted copy of filename, or filename
// itself when it is not encrypted. Decrypted copies must be released with
// CleanupTempFile.
func (h *PasswordHandler) DecryptPDF(filename string, creds *PasswordCredentials) (string, error) {
	encrypted, err := h.IsEncrypted(filename)
	if err != nil {
		return "", err
	}
	if !encrypted {
		return filename, nil
	}

	config := h.decryptionConfig(creds)
	if config.UserPW == "" && config.OwnerPW == "" {
		return "", fmt.Errorf("%w: %s", ErrPasswordRequired, filename)
	}

	tempFile, err := os.CreateTemp("", "decrypted-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempName := tempFile.Name()
	_ = tempFile.Close()

	if err := api.DecryptFile(filename, tempName, config); err != nil {
		_ = os.Remove(tempName)
		if IsPasswordError(err) {
			return "", fmt.Errorf("%w: %s", ErrPasswordRequired, filename)
		}
		return "", fmt.Errorf("failed to decrypt PDF: %w", err)
	}
	return tempName, nil
}

func (h *PasswordHandler) decryptionConfig(creds *PasswordCredentials) *model.Configuration {
	config := model.NewDefaultConfiguration()
	if creds.Empty() {
		creds = h.defaultCredentials
	}
	if !creds.Empty() {
		config.UserPW = creds.UserPassword
		config.OwnerPW = creds.OwnerPassword
	}
	return config
}

// CleanupTempFile removes a decrypted copy created by DecryptPDF. Other paths
// are left alone.
func (h *PasswordHandler) CleanupTempFile(filename string) error {
	if filename == "" {
		return nil
	}
	base := filename[strings.LastIndexAny(filename, `/\`)+1:]
	if strings.HasPrefix(base, "decrypted-") && strings.HasSuffix(base, ".pdf") {
		return os.Remove(filename)
	}
	return nil
}

// IsPasswordError checks if an error is related to password/encryption issues.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPasswordRequired) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, keyword := range []string{"password", "encrypted", "decrypt", "authentication"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}
