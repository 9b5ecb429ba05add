package oracle

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	go_ora "github.com/sijms/go-ora/v2"

	"github.com/dbsmedya/sqlora/internal/logger"
)

const (
	connectAttempts = 3
	initialBackoff  = time.Second

	// sessionDateFormat keeps DATE literals round-trippable between the
	// transfer engine and the replayable script file.
	sessionDateFormat = "YYYY-MM-DD HH24:MI:SS"
)

// ConnectionError reports a failed connection after retries were exhausted
// or ruled out.
type ConnectionError struct {
	User     string
	DSN      string
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect as %s to %s failed after %d attempt(s): %v", e.User, e.DSN, e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Endpoint is a parsed Oracle DSN of the form host:port/service.
type Endpoint struct {
	Host    string
	Port    int
	Service string
}

// ParseDSN splits host:port/service. The port defaults to 1521.
func ParseDSN(dsn string) (Endpoint, error) {
	hostPart, service, found := strings.Cut(dsn, "/")
	if !found || service == "" {
		return Endpoint{}, fmt.Errorf("invalid DSN %q: expected host:port/service", dsn)
	}

	ep := Endpoint{Port: 1521, Service: service}
	host, portStr, hasPort := strings.Cut(hostPart, ":")
	ep.Host = host
	if ep.Host == "" {
		return Endpoint{}, fmt.Errorf("invalid DSN %q: empty host", dsn)
	}
	if hasPort {
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			return Endpoint{}, fmt.Errorf("invalid DSN %q: bad port %q", dsn, portStr)
		}
		ep.Port = port
	}
	return ep, nil
}

// ConnectURI renders the oracle:// URI recorded for each migrated database.
func (ep Endpoint) ConnectURI(user, password string) string {
	return fmt.Sprintf("oracle://%s:%s@%s:%d/%s", user, password, ep.Host, ep.Port, ep.Service)
}

// Manager handles the admin and target-user connections for one migration.
type Manager struct {
	Admin  *sql.DB
	Target *sql.DB

	endpoint Endpoint
	log      *logger.Logger
}

// NewManager creates a Manager for the given DSN.
func NewManager(dsn string, log *logger.Logger) (*Manager, error) {
	ep, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return &Manager{endpoint: ep, log: log}, nil
}

// Endpoint returns the parsed connection endpoint.
func (m *Manager) Endpoint() Endpoint {
	return m.endpoint
}

// ConnectAdmin opens the administrative connection used for provisioning.
func (m *Manager) ConnectAdmin(ctx context.Context, user, password string) error {
	db, err := m.connectWithRetry(ctx, user, password)
	if err != nil {
		return err
	}
	m.Admin = db
	return nil
}

// ConnectTarget opens the connection owning the migrated schema.
func (m *Manager) ConnectTarget(ctx context.Context, user, password string) error {
	db, err := m.connectWithRetry(ctx, user, password)
	if err != nil {
		return err
	}
	m.Target = db
	return nil
}

// connectWithRetry attempts to connect with exponential backoff. Only
// transient failures are retried; an auth failure aborts immediately.
func (m *Manager) connectWithRetry(ctx context.Context, user, password string) (*sql.DB, error) {
	backoff := initialBackoff

	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		var db *sql.DB
		db, err = m.connect(user, password)
		if err == nil {
			if pingErr := db.PingContext(ctx); pingErr == nil {
				if sessErr := setupSession(ctx, db); sessErr != nil {
					m.log.Warnw("session setup failed", "user", user, "error", sessErr)
				}
				return db, nil
			} else {
				db.Close()
				err = pingErr
			}
		}

		if !Retryable(err) {
			return nil, &ConnectionError{User: user, DSN: m.dsnString(), Attempts: attempt, Err: err}
		}
		if attempt < connectAttempts {
			m.log.Warnw("connection failed, retrying",
				"user", user,
				"attempt", attempt,
				"backoff", backoff.String(),
				"error", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}

	return nil, &ConnectionError{User: user, DSN: m.dsnString(), Attempts: connectAttempts, Err: err}
}

func (m *Manager) connect(user, password string) (*sql.DB, error) {
	url := go_ora.BuildUrl(m.endpoint.Host, m.endpoint.Port, m.endpoint.Service, user, password, nil)

	db, err := sql.Open("oracle", url)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)
	return db, nil
}

func (m *Manager) dsnString() string {
	return fmt.Sprintf("%s:%d/%s", m.endpoint.Host, m.endpoint.Port, m.endpoint.Service)
}

func setupSession(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf("ALTER SESSION SET NLS_DATE_FORMAT = '%s'", sessionDateFormat))
	return err
}

// Ping verifies the open connections are alive.
func (m *Manager) Ping(ctx context.Context) error {
	if m.Admin != nil {
		if err := m.Admin.PingContext(ctx); err != nil {
			return fmt.Errorf("admin ping failed: %w", err)
		}
	}
	if m.Target != nil {
		if err := m.Target.PingContext(ctx); err != nil {
			return fmt.Errorf("target ping failed: %w", err)
		}
	}
	return nil
}

// Close closes all open connections.
func (m *Manager) Close() error {
	var errs []error

	if m.Target != nil {
		if err := m.Target.Close(); err != nil {
			errs = append(errs, fmt.Errorf("target close: %w", err))
		}
		m.Target = nil
	}
	if m.Admin != nil {
		if err := m.Admin.Close(); err != nil {
			errs = append(errs, fmt.Errorf("admin close: %w", err))
		}
		m.Admin = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing connections: %v", errs)
	}
	return nil
}
