package anubis

import (
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/riskibarqy/touchline/internal/usecase"
)

func dependencyError(err error) error {
	return fmt.Errorf("%w: %w: %w", usecase.ErrDependencyUnavailable, errAnubisTransient, err)
}

func isCircuitFailure(err error) bool {
	return stderrors.Is(err, errAnubisTransient)
}

// HashToken is the cache and persistence key for a token. Raw tokens are
// never stored.
func HashToken(token string) string {
	return hashToken(token)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func buildURL(baseURL, path string) string {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	path = strings.TrimSpace(path)
	if path == "" {
		return baseURL
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return baseURL + path
}
