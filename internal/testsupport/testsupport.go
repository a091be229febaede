package testsupport

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/cache"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"navlens/internal"
	"navlens/internal/config"
	"navlens/internal/events"
	"navlens/internal/sessions"
	"navlens/internal/sites"
	"navlens/internal/users"
)

func init() {
	// Tests run under the test environment unless the caller already
	// pinned one.
	if os.Getenv("NAVLENS_ENV") == "" {
		os.Setenv("NAVLENS_ENV", "test")
	}
}

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager with navlens's interface
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

// Ensure TestDBManager implements cartridge.DBManager
var _ cartridge.DBManager = (*TestDBManager)(nil)

// allModels returns all navlens models for migration
func allModels() []any {
	return []any{
		&cache.CacheRecord{},
		&sites.Site{},
		&sessions.Session{},
		&events.View{},
		&events.Vital{},
		&events.ErrorEvent{},
		&users.User{},
	}
}

// SetupTestDB creates a test database with all navlens models migrated.
// Uses a named in-memory database with cache=shared to allow multiple
// connections to share the same database within a test. Caches the
// database by test name so multiple calls within the same test return
// the same database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testName := t.Name()

	// Use root test name for caching to handle closure issues where
	// setup functions capture the outer t while t.Run has subtest t
	rootName := testName
	if idx := strings.Index(testName, "/"); idx > 0 {
		rootName = testName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	if err := db.AutoMigrate(allModels()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestDBManager creates a test DB manager using cartridge's testsupport
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	cfg := config.GetConfig()

	// SAFETY CHECK: Ensure we're in test environment
	if cfg.Environment != config.Test {
		t.Fatalf("CRITICAL: Tests must run in test environment! Current: %s. Set NAVLENS_ENV=test", cfg.Environment)
	}

	db := SetupTestDB(t)
	logger := GetLogger()
	dbManager := NewTestDBManager(db)

	return dbManager, logger
}

// SetupTestDBManagerWithSite creates a test database manager with a
// registered site
func SetupTestDBManagerWithSite(t *testing.T, domain string) (*TestDBManager, *slog.Logger, sites.Site) {
	dbManager, logger := SetupTestDBManager(t)
	site := CreateTestSite(t, dbManager.GetConnection(), domain)
	return dbManager, logger, site
}

// CleanAllTables clears all non-system tables in the database
func CleanAllTables(db *gorm.DB) {
	var tableNames []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tableNames)

	var tables []string
	for _, name := range tableNames {
		if name != "migrations" && name != "schema_migrations" {
			tables = append(tables, name)
		}
	}
	if len(tables) == 0 {
		return
	}

	db.Exec("PRAGMA foreign_keys = OFF")
	defer db.Exec("PRAGMA foreign_keys = ON")

	db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			tx.Exec("DELETE FROM " + table)
			tx.Exec("DELETE FROM sqlite_sequence WHERE name=?", table)
		}
		return nil
	})
}

// CreateTestSite creates a test site in the database
func CreateTestSite(t *testing.T, db *gorm.DB, domain string) sites.Site {
	t.Helper()

	var site sites.Site
	if db.Where("domain = ?", domain).First(&site).Error == nil {
		return site
	}
	site = sites.Site{Name: domain, Domain: domain}
	require.NoError(t, sites.CreateSite(db, &site))
	return site
}

// CreateTestUserForAuth creates a user with properly hashed password for auth testing
func CreateTestUserForAuth(t *testing.T, db *gorm.DB, username, password, role string) *users.User {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)

	user := &users.User{
		Username:          username,
		EncryptedPassword: string(hashedPassword),
		Role:              role,
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestView inserts a view row directly for query testing
func CreateTestView(t *testing.T, db *gorm.DB, siteID uint, fingerprint, pathname string, timestamp time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&events.View{
		SiteID:      siteID,
		Fingerprint: fingerprint,
		Pathname:    pathname,
		Timestamp:   timestamp,
		CreatedAt:   timestamp,
	}).Error)
}

// CreateTestVital inserts a vitals row directly for query testing. Pass
// nil for measurements the report did not observe.
func CreateTestVital(t *testing.T, db *gorm.DB, siteID uint, fingerprint, pathname string, fcp, lcp, fid, cls *float64, timestamp time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&events.Vital{
		SiteID:      siteID,
		Fingerprint: fingerprint,
		Pathname:    pathname,
		FCP:         fcp,
		LCP:         lcp,
		FID:         fid,
		CLS:         cls,
		Timestamp:   timestamp,
		CreatedAt:   timestamp,
	}).Error)
}

// Float returns a pointer to v, for optional measurement literals.
func Float(v float64) *float64 {
	return &v
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// CreateMinimalTestApp creates a test Fiber app with all routes mounted
func CreateMinimalTestApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()

	dbManager := NewTestDBManager(db)
	appConfig := config.GetConfig()
	appConfig.Environment = config.Test

	cfg := cartridge.DefaultServerConfig()
	cfg.Config = appConfig
	cfg.Logger = GetLogger()
	cfg.DBManager = dbManager
	cfg.StaticDirectory = appConfig.PublicDirectory
	cfg.StaticPrefix = appConfig.PublicAssetsUrlPrefix
	cfg.TemplatesDirectory = appConfig.PublicDirectory

	srv, err := cartridge.NewServer(cfg)
	require.NoError(t, err)

	internal.MountAppRoutes(srv)
	return srv.App()
}
