package main

import (
	"os"
	"strings"

	"github.com/joho/godotenv"

	"hydrakit/internal/cart"
	"hydrakit/internal/storage"
)

// Config is assembled from the environment (optionally a .env file) and
// then overridden by persistent flags.
type Config struct {
	StateBackend string
	StateDir     string

	ChangelogSink  string // file | kafka | both
	ChangelogDir   string
	TopicChangelog string

	SnapshotDir    string
	ManifestSink   string // file | kafka | both
	TopicSnapshots string

	KafkaBootstrap string
	CartTopic      string
	CartTxID       string

	CatalogURL string
	PDFURL     string
	MailURL    string

	S3          storage.Config
	DatabaseURL string

	HTTPAddr string
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// loadConfig reads .env when present; real environment variables win.
func loadConfig() Config {
	_ = godotenv.Load()
	return Config{
		StateBackend:   getenv("KIT_STATE_BACKEND", "pebble"),
		StateDir:       getenv("KIT_STATE_DIR", "./data/state"),
		ChangelogSink:  getenv("KIT_CHANGELOG_SINK", "file"),
		ChangelogDir:   getenv("KIT_CHANGELOG_DIR", "./data/changelog"),
		TopicChangelog: getenv("KIT_TOPIC_CHANGELOG", "kits.changelog"),
		SnapshotDir:    getenv("KIT_SNAPSHOT_DIR", "./data/snapshots"),
		ManifestSink:   getenv("KIT_MANIFEST_SINK", "file"),
		TopicSnapshots: getenv("KIT_TOPIC_SNAPSHOTS", "kits.snapshots"),
		KafkaBootstrap: getenv("KIT_KAFKA_BOOTSTRAP", ""),
		CartTopic:      getenv("KIT_CART_TOPIC", cart.DefaultTopic),
		CartTxID:       getenv("KIT_CART_TXID", "kitctl-cart"),
		CatalogURL:     getenv("KIT_CATALOG_URL", ""),
		PDFURL:         getenv("KIT_PDF_URL", ""),
		MailURL:        getenv("KIT_MAIL_URL", ""),
		S3: storage.Config{
			Endpoint:      getenv("S3_ENDPOINT", ""),
			Region:        getenv("S3_REGION", ""),
			AccessKey:     getenv("S3_ACCESS_KEY", ""),
			SecretKey:     getenv("S3_SECRET_KEY", ""),
			Bucket:        getenv("S3_BUCKET", ""),
			PublicBaseURL: getenv("S3_PUBLIC_BASE_URL", ""),
		},
		DatabaseURL: getenv("DATABASE_URL", ""),
		HTTPAddr:    getenv("KIT_HTTP_ADDR", ":8080"),
	}
}

func (c Config) sinkHas(sink, want string) bool {
	return sink == want || sink == "both"
}
