package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
)

// queryValue returns the trimmed value of key and whether it was present.
// Repeating a parameter is rejected rather than silently taking the first.
func queryValue(r *http.Request, key string) (string, bool, error) {
	values := r.URL.Query()[key]
	switch len(values) {
	case 0:
		return "", false, nil
	case 1:
		v := strings.TrimSpace(values[0])
		return v, v != "", nil
	}
	return "", false, queryError(key, "query parameter given more than once")
}

func queryError(key, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]any{"field": key})
}

// ParseQueryInt returns def when key is absent and rejects values outside
// [lo, hi].
func ParseQueryInt(r *http.Request, key string, def, lo, hi int) (int, error) {
	raw, ok, err := queryValue(r, key)
	if err != nil || !ok {
		return def, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, queryError(key, "query parameter must be an integer")
	}
	if n < lo || n > hi {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").
			WithDetails(map[string]any{"field": key, "min": lo, "max": hi})
	}
	return n, nil
}

// ParseQueryBool returns nil when key is absent so callers can tell "unset"
// from false.
func ParseQueryBool(r *http.Request, key string) (*bool, error) {
	raw, ok, err := queryValue(r, key)
	if err != nil || !ok {
		return nil, err
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, queryError(key, "query parameter must be true or false")
	}
	return &b, nil
}
