package testsupport

import (
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/cache"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pantryadmin/internal"
	"pantryadmin/internal/config"
	"pantryadmin/internal/store"
	"pantryadmin/internal/users"
)

// SessionCookieName is the expected cookie name for session cookies in tests.
// This should match the pattern used in routes.go: cfg.AppName + "_session"
const SessionCookieName = "pantryadmin_session"

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager with pantryadmin's interface
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

// allModels returns all pantryadmin models for migration
func allModels() []any {
	models := []any{
		&cache.CacheRecord{},
		&users.User{},
	}
	return append(models, store.Models()...)
}

// SetupTestDB creates a test database with all pantryadmin models migrated.
// Uses a named in-memory database with cache=shared to allow multiple
// connections to share the same database within a test. Caches the database
// by test name so multiple calls within the same test return the same one.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testName := t.Name()

	// Use root test name for caching to handle closure issues where
	// setup functions capture the outer t while t.Run has subtest t
	rootName := testName
	if idx := strings.Index(testName, "/"); idx > 0 {
		rootName = testName[:idx]
	}

	// Check cache first
	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	// Create a unique named in-memory database for each test
	// cache=shared allows multiple connections to the same database
	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	// Apply SQLite pragmas
	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	// Auto-migrate models
	if err := db.AutoMigrate(allModels()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	// Cache the database
	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	// Register cleanup
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
		t.Fatalf("CRITICAL: Tests must run in test environment! Current: %s. Set PANTRYADMIN_ENV=test", cfg.Environment)
	}

	db := SetupTestDB(t)
	logger := GetLogger()
	dbManager := NewTestDBManager(db)

	return dbManager, logger
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

// CreateTestUser creates an admin login account in the database
func CreateTestUser(db *gorm.DB, email, password string) users.User {
	var user users.User
	if db.Where("email = ?", email).First(&user).Error == nil {
		return user
	}

	user = users.User{
		Email:             email,
		EncryptedPassword: password,
		IsAdmin:           true,
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	db.Create(&user)
	return user
}

// CreateTestUserForAuth creates a login account with a properly hashed
// password for auth testing. isAdmin controls the authorization flag.
func CreateTestUserForAuth(t *testing.T, db *gorm.DB, email, password string, isAdmin bool) *users.User {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)

	user := &users.User{
		Email:             email,
		EncryptedPassword: string(hashedPassword),
		IsAdmin:           isAdmin,
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateAppUser inserts an app user record into the local store replica.
func CreateAppUser(t *testing.T, db *gorm.DB, displayName, email, userType, abGroup string) store.UserRecord {
	t.Helper()

	user := store.UserRecord{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		Email:       email,
		UserType:    userType,
		ABTestGroup: abGroup,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// CreateAppEvent inserts an app event record owned by uid.
func CreateAppEvent(t *testing.T, db *gorm.DB, uid, eventType string, ts time.Time) store.EventRecord {
	t.Helper()

	event := store.EventRecord{
		ID:        uuid.NewString(),
		UID:       uid,
		Type:      eventType,
		Timestamp: ts,
	}
	require.NoError(t, db.Create(&event).Error)
	return event
}

// CreateAppPost inserts a feed post record owned by uid.
func CreateAppPost(t *testing.T, db *gorm.DB, uid string, createdAt time.Time) store.PostRecord {
	t.Helper()

	post := store.PostRecord{
		ID:        uuid.NewString(),
		UID:       uid,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(&post).Error)
	return post
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// CreateMinimalTestApp builds a fiber app with all routes mounted against
// the given test database.
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
	// Enable SecFetchSite validation in tests to match production behavior
	cfg.EnableSecFetchSite = true
	cfg.SecFetchSiteAllowedValues = []string{"cross-site", "same-site", "same-origin"}

	srv, err := cartridge.NewServer(cfg)
	require.NoError(t, err)

	internal.MountAppRoutes(srv)
	return srv.App()
}

// ExtractCSRFToken extracts the CSRF token from response body
func ExtractCSRFToken(body string) string {
	re := regexp.MustCompile(`<meta name="csrf-token" content="([^"]+)">`)
	if matches := re.FindStringSubmatch(body); len(matches) > 1 {
		return matches[1]
	}
	return ""
}

// LoginTestUser simulates login and returns session cookie, CSRF token, and CSRF cookie
func LoginTestUser(t *testing.T, app *fiber.App, email, password string) (string, string, string) {
	t.Helper()

	// GET /login for CSRF token
	req := httptest.NewRequest("GET", "/login", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 Test Browser")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	csrfToken := ExtractCSRFToken(string(body))

	var csrfCookie string
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "csrf_" {
			if csrfToken == "" {
				csrfToken = cookie.Value
			}
			csrfCookie = fmt.Sprintf("%s=%s", cookie.Name, cookie.Value)
			break
		}
	}
	require.NotEmpty(t, csrfToken)
	require.NotEmpty(t, csrfCookie)

	// POST /login
	loginData := url.Values{}
	loginData.Add("email", email)
	loginData.Add("password", password)
	loginData.Add("_csrf", csrfToken)

	req = httptest.NewRequest("POST", "/login", strings.NewReader(loginData.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 Test Browser")
	req.Header.Set("Cookie", csrfCookie)

	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get("Location"))

	var sessionValue string
	for _, cookie := range resp.Cookies() {
		if cookie.Name == SessionCookieName {
			sessionValue = cookie.Value
			break
		}
	}
	require.NotEmpty(t, sessionValue)

	return sessionValue, csrfToken, csrfCookie
}
