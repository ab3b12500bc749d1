package validator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Guru2308/rag-code/internal/kberrors"
)

// ValidateFilePath validates that a file path exists and is accessible
func ValidateFilePath(path string) error {
	if path == "" {
		return kberrors.ValidationError("path cannot be empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return kberrors.Wrap(err, kberrors.ErrorTypeValidation, "invalid path")
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return kberrors.NotFoundError(fmt.Sprintf("path does not exist: %s", absPath))
		}
		return kberrors.Wrap(err, kberrors.ErrorTypeValidation, "cannot access path")
	}

	if !info.IsDir() {
		return kberrors.ValidationError(fmt.Sprintf("path is not a directory: %s", absPath))
	}

	return nil
}

// ValidateNonEmpty validates that a string is not empty
func ValidateNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return kberrors.ValidationError(fmt.Sprintf("%s cannot be empty", fieldName))
	}
	return nil
}

// ValidateRange validates that a value is within a range
func ValidateRange(value, min, max int, fieldName string) error {
	if value < min || value > max {
		return kberrors.ValidationError(
			fmt.Sprintf("%s must be between %d and %d, got %d", fieldName, min, max, value),
		)
	}
	return nil
}

// ValidateOneOf validates that a value is one of the allowed values
func ValidateOneOf(value string, allowed []string, fieldName string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return kberrors.ValidationError(
		fmt.Sprintf("%s must be one of %v, got %s", fieldName, allowed, value),
	)
}

// ValidateDocID validates that a doc_id is non-empty and contains no '/',
// since the meta-document and on-disk layout use doc_id as a path segment.
func ValidateDocID(docID string) error {
	if strings.TrimSpace(docID) == "" {
		return kberrors.ValidationError("doc_id cannot be empty")
	}
	if strings.Contains(docID, "/") {
		return kberrors.ValidationError(fmt.Sprintf("doc_id must not contain '/': %s", docID))
	}
	return nil
}

// RSEPresetNames are the only accepted string values for rse_params when
// supplied as a preset name rather than a parameter dict.
var RSEPresetNames = []string{"balanced", "precise", "comprehensive"}

// ValidateRSEPreset validates an rse_params preset name.
func ValidateRSEPreset(name string) error {
	return ValidateOneOf(name, RSEPresetNames, "rse_params preset")
}
