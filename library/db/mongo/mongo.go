// Package mongo provides a wrapper for the MongoDB client.
package mongo

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Laisky/fingenius-compliance/library/log"
)

const (
	defaultTimeout       = 30 * time.Second
	healthCheckInterval  = 30 * time.Second
	defaultHeartbeat     = 10 * time.Second
	defaultDatabaseName  = "fintech"
	healthCheckPingLimit = 5 * time.Second
)

// DB is the handle shared by all DAOs.
type DB interface {
	Close(ctx context.Context) error
	GetCol(colName string) *mongo.Collection
	CurrentDB() *mongo.Database
}

// DialInfo defines the MongoDB connection information.
type DialInfo struct {
	// URI is a standard mongodb:// or mongodb+srv:// connection string
	URI string
	// DBName overrides the database in URI
	DBName string
}

// db implements DB with one long-lived client.
type db struct {
	mu      sync.RWMutex
	cli     *mongo.Client
	dbName  string
	addr    string
	cancel  context.CancelFunc
	closeMu sync.Once
}

var (
	connectMongo = func(ctx context.Context, clientOpts *options.ClientOptions) (*mongo.Client, error) {
		return mongo.Connect(ctx, clientOpts)
	}
	pingMongo = func(ctx context.Context, cli *mongo.Client) error {
		return cli.Ping(ctx, readpref.Primary())
	}
	disconnectMongo = func(ctx context.Context, cli *mongo.Client) error {
		return cli.Disconnect(ctx)
	}
)

// databaseName picks the database: explicit name, then the URI path, then the default.
func databaseName(dialInfo DialInfo) string {
	if name := strings.TrimSpace(dialInfo.DBName); name != "" {
		return name
	}

	if u, err := url.Parse(dialInfo.URI); err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}

	return defaultDatabaseName
}

// redactedHost returns the host part of the URI without credentials, for logging.
func redactedHost(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "<invalid uri>"
	}

	return u.Host
}

// NewDB connects to MongoDB and verifies the connection with a ping.
// The client is process-wide, the driver handles pooling and reconnects.
func NewDB(ctx context.Context, dialInfo DialInfo) (DB, error) {
	if strings.TrimSpace(dialInfo.URI) == "" {
		return nil, errors.New("mongo uri is empty")
	}

	d := &db{
		dbName: databaseName(dialInfo),
		addr:   redactedHost(dialInfo.URI),
	}
	log.Logger.Info("try to connect to mongodb",
		zap.String("addr", d.addr),
		zap.String("db", d.dbName),
	)

	if err := d.dial(ctx, dialInfo.URI); err != nil {
		return nil, errors.Wrap(err, "connect")
	}

	d.startHealthCheck()
	return d, nil
}

func (d *db) dial(ctx context.Context, uri string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(defaultTimeout).
		SetServerSelectionTimeout(defaultTimeout).
		SetSocketTimeout(defaultTimeout).
		SetHeartbeatInterval(defaultHeartbeat).
		SetRetryReads(true).
		SetRetryWrites(true).
		SetMaxPoolSize(100).
		SetMaxConnecting(2).
		SetMaxConnIdleTime(300 * time.Second)

	cli, err := connectMongo(ctx, clientOpts)
	if err != nil {
		return errors.Wrap(err, "connect db")
	}

	// fail at startup rather than on the first request
	if err := pingMongo(ctx, cli); err != nil {
		_ = disconnectMongo(context.Background(), cli)
		return errors.Wrap(err, "ping db")
	}

	d.mu.Lock()
	d.cli = cli
	d.mu.Unlock()
	return nil
}

// startHealthCheck only logs, the driver recovers connections by itself.
func (d *db) startHealthCheck() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	go func() {
		ticker := time.NewTicker(healthCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			cli := d.client()
			if cli == nil {
				continue
			}

			pingCtx, cancel := context.WithTimeout(ctx, healthCheckPingLimit)
			err := pingMongo(pingCtx, cli)
			cancel()
			if err != nil && ctx.Err() == nil {
				log.Logger.Warn("mongodb ping failed (driver will auto-recover)",
					zap.Error(err),
					zap.String("addr", d.addr),
				)
			}
		}
	}()
}

// CurrentDB returns the configured database.
func (d *db) CurrentDB() *mongo.Database {
	return d.client().Database(d.dbName)
}

// GetCol returns a collection handle by name.
func (d *db) GetCol(colName string) *mongo.Collection {
	return d.CurrentDB().Collection(colName)
}

// Close stops the health check and disconnects. It is safe to call more than once.
func (d *db) Close(ctx context.Context) (err error) {
	d.closeMu.Do(func() {
		if d.cancel != nil {
			d.cancel()
		}

		cli := d.client()
		if cli == nil {
			return
		}

		if ctx == nil {
			ctx = context.Background()
		}
		closeCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
		defer cancel()

		err = disconnectMongo(closeCtx, cli)
		d.mu.Lock()
		d.cli = nil
		d.mu.Unlock()
	})

	return err
}

func (d *db) client() *mongo.Client {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cli
}
