package config

import (
	"strings"

	gconfig "github.com/Laisky/go-config/v2"
)

const (
	// DefaultListen is used when neither --listen nor PORT is given
	DefaultListen = ":5000"

	AssetDriverMinio = "minio"
	AssetDriverS3    = "s3"
)

// Settings is the typed view of the configuration consumed by cmd.
type Settings struct {
	Listen string
	Debug  bool
	// Secret signs session tokens
	Secret string
	Mongo  MongoSettings
	Assets AssetSettings
	Upload UploadSettings
	CORS   CORSSettings
}

// MongoSettings datastore connection.
type MongoSettings struct {
	URI string
	DB  string
}

// AssetSettings external asset store account.
type AssetSettings struct {
	Driver    string
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	PublicURL string
	UseSSL    bool
}

// UploadSettings staging behavior.
type UploadSettings struct {
	StagingDir string
}

// CORSSettings allowed browser origins, empty means any origin.
type CORSSettings struct {
	AllowedOrigins []string
}

// Load builds Settings from the shared configuration.
func Load() Settings {
	return loadWithGetter(gconfig.Shared.Get)
}

func loadWithGetter(get func(string) any) Settings {
	s := Settings{
		Listen: stringOf(get("listen")),
		Debug:  boolOf(get("debug")),
		Secret: stringOf(get("settings.secret")),
		Mongo: MongoSettings{
			URI: stringOf(get("settings.db.mongo.uri")),
			DB:  stringOf(get("settings.db.mongo.db")),
		},
		Assets: AssetSettings{
			Driver:    strings.ToLower(stringOf(get("settings.assets.driver"))),
			Endpoint:  stringOf(get("settings.assets.endpoint")),
			Bucket:    stringOf(get("settings.assets.bucket")),
			AccessKey: stringOf(get("settings.assets.access_key")),
			SecretKey: stringOf(get("settings.assets.secret_key")),
			Region:    stringOf(get("settings.assets.region")),
			PublicURL: stringOf(get("settings.assets.public_url")),
			UseSSL:    boolOf(get("settings.assets.use_ssl")),
		},
		Upload: UploadSettings{
			StagingDir: stringOf(get("settings.upload.staging_dir")),
		},
		CORS: CORSSettings{
			AllowedOrigins: stringsOf(get("settings.web.cors.allowed_origins")),
		},
	}

	if s.Listen == "" {
		s.Listen = DefaultListen
	}
	if s.Assets.Driver == "" {
		s.Assets.Driver = AssetDriverMinio
	}
	if s.Assets.Region == "" {
		s.Assets.Region = "us-east-1"
	}

	return s
}

func stringOf(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []byte:
		return strings.TrimSpace(string(val))
	default:
		return ""
	}
}

func boolOf(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		val = strings.ToLower(strings.TrimSpace(val))
		return val == "true" || val == "1" || val == "yes"
	default:
		return false
	}
}

func stringsOf(v any) []string {
	var out []string
	switch val := v.(type) {
	case []string:
		out = append(out, val...)
	case []any:
		for _, item := range val {
			if s := stringOf(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, item := range strings.Split(val, ",") {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	}

	return out
}
