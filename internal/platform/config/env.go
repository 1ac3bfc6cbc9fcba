package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"

	apperrors "github.com/louisbranch/expertfinder/internal/platform/errors"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// RequireValues reports every blank entry in values as one configuration error.
//
// Keys are environment variable names so operators can fix the deployment
// without reading code.
func RequireValues(values map[string]string) error {
	var missing []string
	for key, value := range values {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return apperrors.WithMetadata(
		apperrors.CodeConfigurationInvalid,
		"missing required configuration: "+strings.Join(missing, ", "),
		map[string]string{"Missing": strings.Join(missing, ",")},
	)
}
