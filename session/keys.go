package session

const (
	KeyAccess  = "access"
	KeyRefresh = "refresh"
)

func prefixed(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}
