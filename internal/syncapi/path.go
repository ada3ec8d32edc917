package syncapi

import (
	"errors"
	"strings"
)

var ErrInvalidPath = errors.New("invalid document path")

const pathRoot = "users"

// UserPath returns the document path for key inside userID's namespace.
func UserPath(userID, key string) string {
	return pathRoot + "/" + userID + "/" + key
}

// ParsePath splits "users/<userID>/<key>" into its parts.
func ParsePath(path string) (userID, key string, err error) {
	parts := strings.SplitN(path, "/", 3)
	if len(parts) != 3 || parts[0] != pathRoot || parts[1] == "" || parts[2] == "" {
		return "", "", ErrInvalidPath
	}
	if strings.Contains(parts[2], "/") {
		return "", "", ErrInvalidPath
	}
	return parts[1], parts[2], nil
}
