package switchback

import "net/url"

const (
	// LogMaskVal is a convenience value for hiding sensitive data from log messages.
	LogMaskVal = "xxxxxx"
)

// Mask hides all values for key in vals behind [LogMaskVal],
// squashing multiple values down to a single masked one.
func Mask(vals url.Values, key string) {
	if !vals.Has(key) {
		return
	}

	vals.Set(key, LogMaskVal)
}
