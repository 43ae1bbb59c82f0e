package validation

import (
	"errors"
	"fmt"
	"regexp"
)

// DocumentIDPattern определяет допустимый формат идентификатора документа:
// латинские буквы, цифры и символы "_", "-", ".", ":".
// Идентификатор становится сегментом URL и ключом хранилищ.
var DocumentIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

const (
	// MaxDocumentIDLen максимальная длина идентификатора документа
	MaxDocumentIDLen = 200
	// MaxNameLen максимальная длина отображаемого имени участника
	MaxNameLen = 64
)

// ErrInvalidDocumentID идентификатор документа не прошел проверку.
var ErrInvalidDocumentID = errors.New("invalid document id")

// ValidateDocumentID проверяет, что идентификатор документа соответствует требованиям
func ValidateDocumentID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: cannot be empty", ErrInvalidDocumentID)
	}

	if len(id) > MaxDocumentIDLen {
		return fmt.Errorf("%w: must not exceed %d characters", ErrInvalidDocumentID, MaxDocumentIDLen)
	}

	if id == "." || id == ".." {
		return fmt.Errorf("%w: reserved name %q", ErrInvalidDocumentID, id)
	}

	if !DocumentIDPattern.MatchString(id) {
		return fmt.Errorf("%w: can only contain letters, numbers, '_', '-', '.' and ':'", ErrInvalidDocumentID)
	}

	return nil
}

// ValidateName проверяет отображаемое имя участника.
func ValidateName(name string) error {
	if len([]rune(name)) > MaxNameLen {
		return fmt.Errorf("name must not exceed %d characters", MaxNameLen)
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("name must not contain control characters")
		}
	}
	return nil
}
