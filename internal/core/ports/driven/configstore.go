package driven

// ConfigStore is the persisted key/value configuration. Keys are dotted
// paths such as "llm.model". Typed getters return the zero value for a key
// that is missing or holds another type.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetFloat(key string) float64

	// Set stores value and persists it before returning.
	Set(key string, value any) error
}
