// internal/app/system/limits/limits.go
package limits

// Request and response body size limits.
const (
	// MaxJSONBody is the maximum size of a JSON request body.
	MaxJSONBody = 1 << 20 // 1 MB

	// MaxPhotoSize is the maximum size of a profile photo.
	MaxPhotoSize = 5 << 20 // 5 MB

	// MaxMultipartOverhead is allowed on top of a file limit for the
	// multipart boundaries and headers around it.
	MaxMultipartOverhead = 64 << 10 // 64 KB

	// MaxMediaSize is the maximum size of one uploaded image or video.
	MaxMediaSize = 100 << 20 // 100 MB

	// MaxModelResponse bounds how much of a model reply is read.
	MaxModelResponse = 1 << 20 // 1 MB
)
