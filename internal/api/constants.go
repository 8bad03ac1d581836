package api

// Cache-Control header values.
const (
	CacheOneWeek = "public, max-age=604800"
)
