package assets

// AssetLoader defines the contract for loading styles, templates and binary
// assets such as the branding logo.
type AssetLoader interface {
	// LoadStyle loads a CSS style by name (without .css extension).
	// Returns ErrStyleNotFound if the style doesn't exist.
	LoadStyle(name string) (string, error)

	// LoadTemplate loads an HTML template by name (without .html extension).
	// Returns ErrTemplateNotFound if the template doesn't exist.
	LoadTemplate(name string) (string, error)

	// LoadAsset loads a binary asset by file name (extension included).
	// Returns ErrAssetNotFound if the asset doesn't exist.
	LoadAsset(name string) ([]byte, error)
}
