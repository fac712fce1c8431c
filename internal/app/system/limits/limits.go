// internal/app/system/limits/limits.go
package limits

// Request body size limits for the JSON API.
const (
	// MaxJSONBody is the largest request body the handlers decode.
	MaxJSONBody = 64 << 10 // 64 KB
)
