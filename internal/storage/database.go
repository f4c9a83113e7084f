package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	sqliteDialector "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	// ErrUnsupportedDialect indicates that no GORM dialector is available for the scheme.
	ErrUnsupportedDialect = errors.New("storage.unsupported_dialect")

	errEmptyDatabaseURL    = errors.New("storage.empty_database_url")
	errSQLiteEmptyPath     = errors.New("storage.sqlite.empty_path")
	errSQLiteInvalidURL    = errors.New("storage.sqlite.invalid_url")
	errUnsupportedNoScheme = errors.New("storage.unsupported_no_scheme")
)

// Database owns the GORM handle shared by the user, chirp and refresh token stores.
type Database struct {
	db          *gorm.DB
	driverLabel string
	logger      *zap.Logger
}

// Open connects to databaseURL and migrates the schema.
// Supported schemes are postgres://, postgresql://, sqlite:// and sqlite:.
func Open(ctx context.Context, databaseURL string, logger *zap.Logger) (*Database, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("storage.open: %w", errEmptyDatabaseURL)
	}
	dialector, driverLabel, err := resolveDialector(databaseURL)
	if err != nil {
		return nil, err
	}
	gormDB, openErr := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if openErr != nil {
		return nil, fmt.Errorf("storage.open.%s: %w", driverLabel, openErr)
	}
	if migrateErr := gormDB.WithContext(ctx).AutoMigrate(&userRecord{}, &chirpRecord{}, &refreshTokenRecord{}); migrateErr != nil {
		return nil, fmt.Errorf("storage.migrate.%s: %w", driverLabel, migrateErr)
	}
	logger.Info("database ready", zap.String("code", "storage.open"), zap.String("driver", driverLabel))
	return &Database{db: gormDB, driverLabel: driverLabel, logger: logger}, nil
}

// Driver exposes the selected database driver label.
func (database *Database) Driver() string {
	return database.driverLabel
}

// Close releases the underlying connection pool.
func (database *Database) Close() error {
	sqlDB, err := database.db.DB()
	if err != nil {
		return fmt.Errorf("storage.close.%s: %w", database.driverLabel, err)
	}
	return sqlDB.Close()
}

func (database *Database) wrap(operation string, err error) error {
	return fmt.Errorf("storage.%s.%s: %w", operation, database.driverLabel, err)
}

func resolveDialector(databaseURL string) (gorm.Dialector, string, error) {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return nil, "", fmt.Errorf("storage.parse_url: %w", err)
	}
	if parsed.Scheme == "" {
		return nil, "", fmt.Errorf("storage.dialect: %w", errUnsupportedNoScheme)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "postgres", "postgresql":
		return postgres.Open(databaseURL), "postgres", nil
	case "sqlite", "sqlite3":
		dsn, dsnErr := buildSQLiteDSN(parsed)
		if dsnErr != nil {
			return nil, "", fmt.Errorf("storage.sqlite: %w", dsnErr)
		}
		return sqliteDialector.Open(dsn), "sqlite", nil
	default:
		return nil, "", fmt.Errorf("storage.dialect.%s: %w", strings.ToLower(parsed.Scheme), ErrUnsupportedDialect)
	}
}

func buildSQLiteDSN(parsed *url.URL) (string, error) {
	if parsed == nil {
		return "", errSQLiteInvalidURL
	}
	var builder strings.Builder
	switch {
	case parsed.Opaque != "":
		builder.WriteString(parsed.Opaque)
	case parsed.Host != "":
		builder.WriteString(parsed.Host)
		if parsed.Path != "" {
			if !strings.HasPrefix(parsed.Path, "/") {
				builder.WriteString("/")
			}
			builder.WriteString(parsed.Path)
		}
	default:
		builder.WriteString(parsed.Path)
	}
	if builder.Len() == 0 {
		return "", errSQLiteEmptyPath
	}
	if parsed.RawQuery != "" {
		builder.WriteString("?")
		builder.WriteString(parsed.RawQuery)
	}
	return builder.String(), nil
}
