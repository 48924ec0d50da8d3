package cmd

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"

	"github.com/Laisky/fingenius-compliance/library/config"
)

// configGetter retrieves raw configuration values by dotted key path.
type configGetter func(key string) any

// validateStartupConfig validates startup configuration from the shared config source.
// It returns an error when any configured value is malformed or violates constraints.
func validateStartupConfig() error {
	return validateStartupConfigWithGetter(func(key string) any {
		return gconfig.S.Get(key)
	})
}

// validateStartupConfigWithGetter validates startup configuration via a key-value getter.
// It accepts a value getter and returns nil when all configured values are valid.
func validateStartupConfigWithGetter(get configGetter) error {
	if get == nil {
		return errors.New("config getter is nil")
	}

	validationErrs := make([]string, 0)

	validateRequiredStringNonEmpty(get, "settings.secret", &validationErrs)
	validateOptionalBool(get, "debug", &validationErrs)
	validateMongoConfig(get, &validationErrs)
	validateAssetsConfig(get, &validationErrs)
	validateWebConfig(get, &validationErrs)

	if len(validationErrs) == 0 {
		return nil
	}

	return errors.Errorf("invalid configuration:\n - %s", strings.Join(validationErrs, "\n - "))
}

// validateMongoConfig validates the datastore connection settings.
func validateMongoConfig(get configGetter, errs *[]string) {
	const key = "settings.db.mongo.uri"
	if !validateRequiredStringNonEmpty(get, key, errs) {
		return
	}

	uri, _ := parseStrictString(get(key))
	uri = strings.TrimSpace(uri)
	if !strings.HasPrefix(uri, "mongodb://") && !strings.HasPrefix(uri, "mongodb+srv://") {
		appendValidationError(errs, "%s must use the mongodb:// or mongodb+srv:// scheme", key)
	}

	validateOptionalStringNonEmpty(get, "settings.db.mongo.db", errs)
}

// validateAssetsConfig validates the asset store settings.
func validateAssetsConfig(get configGetter, errs *[]string) {
	validateRequiredStringNonEmpty(get, "settings.assets.bucket", errs)
	validateRequiredStringNonEmpty(get, "settings.assets.access_key", errs)
	validateRequiredStringNonEmpty(get, "settings.assets.secret_key", errs)
	validateOptionalBool(get, "settings.assets.use_ssl", errs)
	validateOptionalStringNonEmpty(get, "settings.assets.region", errs)
	validateOptionalURL(get, "settings.assets.public_url", errs)

	driver := config.AssetDriverMinio
	if raw := get("settings.assets.driver"); raw != nil {
		value, parseErr := parseStrictString(raw)
		if parseErr != nil {
			appendValidationError(errs, "settings.assets.driver must be a string")
			return
		}
		driver = strings.ToLower(strings.TrimSpace(value))
	}

	switch driver {
	case config.AssetDriverMinio:
		// minio always talks to an explicit endpoint
		validateRequiredStringNonEmpty(get, "settings.assets.endpoint", errs)
	case config.AssetDriverS3:
		validateOptionalStringNonEmpty(get, "settings.assets.endpoint", errs)
	default:
		appendValidationError(errs, "settings.assets.driver must be one of [%s, %s]",
			config.AssetDriverMinio, config.AssetDriverS3)
	}
}

// validateWebConfig validates listener and CORS settings.
func validateWebConfig(get configGetter, errs *[]string) {
	validateOptionalStringNonEmpty(get, "listen", errs)

	raw := get("settings.web.cors.allowed_origins")
	if raw == nil {
		return
	}

	var origins []string
	switch v := raw.(type) {
	case []string:
		origins = v
	case []any:
		for _, item := range v {
			origin, parseErr := parseStrictString(item)
			if parseErr != nil {
				appendValidationError(errs, "settings.web.cors.allowed_origins must be a list of strings")
				return
			}
			origins = append(origins, origin)
		}
	case string:
		origins = strings.Split(v, ",")
	default:
		appendValidationError(errs, "settings.web.cors.allowed_origins must be a list of strings")
		return
	}

	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" || origin == "*" {
			continue
		}
		parsed, err := url.Parse(origin)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			appendValidationError(errs, "settings.web.cors.allowed_origins entry %q must be an absolute origin", origin)
		}
	}
}

// validateRequiredStringNonEmpty validates that a key is configured with a non-empty string.
// It reports whether the value is usable.
func validateRequiredStringNonEmpty(get configGetter, key string, errs *[]string) bool {
	raw := get(key)
	if raw == nil {
		appendValidationError(errs, "%s is required", key)
		return false
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil || strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s must be a non-empty string", key)
		return false
	}

	return true
}

// validateOptionalBool validates an optionally configured boolean key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalBool(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	if _, ok := parseStrictBool(raw); !ok {
		appendValidationError(errs, "%s must be a boolean", key)
	}
}

// validateOptionalURL validates an optionally configured absolute URL key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalURL(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string URL", key)
		return
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		appendValidationError(errs, "%s must not be empty", key)
		return
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		appendValidationError(errs, "%s must be a valid absolute URL", key)
	}
}

// validateOptionalStringNonEmpty validates an optionally configured non-empty string key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalStringNonEmpty(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string", key)
		return
	}

	if strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s must not be empty", key)
	}
}

// parseStrictBool parses a value as boolean using strict conversion rules.
// It accepts a raw value and returns the parsed boolean and whether parsing succeeded.
func parseStrictBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		if math.Trunc(v) != v {
			return false, false
		}
		return int64(v) != 0, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false, false
		}
		switch strings.ToLower(trimmed) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

// parseStrictString parses a value as a strict string.
// It accepts a raw value and returns the parsed string and an error when parsing fails.
func parseStrictString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", errors.Errorf("unsupported string type %T", value)
	}
}

// appendValidationError appends a formatted validation error to the collector.
// It accepts an error slice pointer, a format string, and format arguments, and has no return value.
func appendValidationError(errs *[]string, format string, args ...any) {
	if errs == nil {
		return
	}
	*errs = append(*errs, fmt.Sprintf(format, args...))
}
