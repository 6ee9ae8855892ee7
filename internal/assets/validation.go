package assets

import (
	"fmt"
	"strings"
)

// ValidateAssetName checks that an asset name is safe for use as a filename.
// Returns ErrInvalidAssetName if the name is empty or contains path separators,
// dots (which could allow extension manipulation), or traversal characters.
func ValidateAssetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	}
	if strings.ContainsAny(name, "/\\.") {
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}

// ValidateFileName is ValidateAssetName for names that carry an extension:
// one interior dot is allowed, separators and leading dots are not.
func ValidateFileName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	}
	if strings.ContainsAny(name, "/\\\x00") || strings.HasPrefix(name, ".") || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}

// ValidateRequirements checks that the stylesheet and cover template can be
// loaded. The server refuses to start when either is missing.
func ValidateRequirements(loader AssetLoader, style string) error {
	if _, err := loader.LoadStyle(style); err != nil {
		return fmt.Errorf("%w: style %q: %w", ErrRequirementMissing, style, err)
	}
	if _, err := loader.LoadTemplate(CoverTemplate); err != nil {
		return fmt.Errorf("%w: template %q: %w", ErrRequirementMissing, CoverTemplate, err)
	}
	return nil
}
