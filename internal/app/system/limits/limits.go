// internal/app/system/limits/limits.go
package limits

// Request body size limits for various features.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxJSONBodySize is the maximum size of a JSON API request body.
	// The largest legitimate body is an invitation batch.
	MaxJSONBodySize = 1 << 20 // 1 MB

	// MaxRosterUploadSize is the maximum size of a roster CSV upload,
	// multipart envelope included.
	MaxRosterUploadSize = 5 << 20 // 5 MB
)
