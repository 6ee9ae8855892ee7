// Package assets provides the stylesheet, cover template and logo used to
// brand generated documents.
//
// # Loader Architecture
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - loads from go:embed filesystem (defaults)
//	    ├── FilesystemLoader  - loads from a custom directory on disk
//	    └── AssetResolver     - combines both with custom-first fallback
//
// AssetResolver is the loader used by the converter. It tries the custom
// FilesystemLoader first and falls back to EmbeddedLoader when an asset is
// not found, so a deployment can override the stylesheet alone and keep the
// default cover.
//
// # Directory Structure
//
//	{basePath}/
//	├── styles/
//	│   └── {name}.css      # stylesheet with {{ company_name }} placeholders
//	├── templates/
//	│   └── {name}.html     # html/template documents (cover.html)
//	└── images/
//	    └── {file}          # logo and other binary assets
//
// # Security
//
// Asset names are validated to prevent path traversal. FilesystemLoader
// resolves symlinks and verifies paths stay within basePath.
package assets
