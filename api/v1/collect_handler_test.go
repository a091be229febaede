package v1_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navlens/internal/events"
	"navlens/internal/testsupport"
	"navlens/internal/tokens"
)

const browserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func collectRequest(params url.Values) *http.Request {
	req := httptest.NewRequest("POST", "/api/collect", strings.NewReader(params.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", "https://demo.example.com")
	req.Header.Set("User-Agent", browserAgent)
	req.Header.Set("X-Forwarded-For", "93.184.216.34")
	return req
}

func TestCollectHandler(t *testing.T) {
	t.Run("first view returns the cache token with 201", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)
		site := testsupport.CreateTestSite(t, db, "demo.example.com")

		app := testsupport.CreateMinimalTestApp(t, db)

		params := url.Values{}
		params.Set("id", site.PublicID)
		params.Set("route", "view")
		params.Set("href", "https://demo.example.com/pricing")
		params.Set("title", "Pricing")
		params.Set("ref", "https://duckduckgo.com/")

		resp, err := app.Test(collectRequest(params), 30000)
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		cache := tokens.ReadSessionCache(string(body))
		require.NotNil(t, cache, "body must be a verifiable cache token")
		assert.Equal(t, site.PublicID, cache.SiteID)

		var count int64
		require.NoError(t, db.Model(&events.View{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("replayed token returns 204 without a body", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)
		site := testsupport.CreateTestSite(t, db, "demo.example.com")

		app := testsupport.CreateMinimalTestApp(t, db)

		params := url.Values{}
		params.Set("id", site.PublicID)
		params.Set("route", "view")
		params.Set("href", "https://demo.example.com/")

		resp, err := app.Test(collectRequest(params), 30000)
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		token, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		cache := tokens.ReadSessionCache(string(token))
		require.NotNil(t, cache)

		replay := url.Values{}
		replay.Set("cache", string(token))
		replay.Set("route", "vital")
		replay.Set("href", "https://demo.example.com/")
		replay.Set("fcp", "812.5")
		replay.Set("lcp", "1600")

		resp, err = app.Test(collectRequest(replay), 30000)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Empty(t, body)

		var count int64
		require.NoError(t, db.Model(&events.Vital{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)

		// the view and the replayed vital belong to one visitor
		var view events.View
		require.NoError(t, db.First(&view).Error)
		var vital events.Vital
		require.NoError(t, db.First(&vital).Error)
		assert.Equal(t, cache.Fingerprint, view.Fingerprint)
		assert.Equal(t, cache.Fingerprint, vital.Fingerprint)
	})

	t.Run("unknown site id is a 400 with a plain reason", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		app := testsupport.CreateMinimalTestApp(t, db)

		params := url.Values{}
		params.Set("id", "ffffffffffffffffffffffff")
		params.Set("route", "view")
		params.Set("href", "https://demo.example.com/")

		resp, err := app.Test(collectRequest(params), 30000)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "invalid site id", string(body))
	})

	t.Run("missing user agent is forbidden", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)
		site := testsupport.CreateTestSite(t, db, "demo.example.com")

		app := testsupport.CreateMinimalTestApp(t, db)

		params := url.Values{}
		params.Set("id", site.PublicID)
		params.Set("route", "view")
		params.Set("href", "https://demo.example.com/")

		req := collectRequest(params)
		req.Header.Del("User-Agent")

		resp, err := app.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("preflight is a 204", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		app := testsupport.CreateMinimalTestApp(t, db)

		req := httptest.NewRequest("OPTIONS", "/api/collect", nil)
		req.Header.Set("Origin", "https://demo.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")

		resp, err := app.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})
}

func TestCollectHandlerQueryFallback(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)
	site := testsupport.CreateTestSite(t, db, "demo.example.com")

	app := testsupport.CreateMinimalTestApp(t, db)

	// GET beacons carry everything in the query string.
	target := "/api/collect?id=" + site.PublicID +
		"&route=view&href=" + url.QueryEscape("https://demo.example.com/pricing")
	req := httptest.NewRequest("GET", target, nil)
	req.Header.Set("Origin", "https://demo.example.com")
	req.Header.Set("User-Agent", browserAgent)
	req.Header.Set("X-Forwarded-For", "93.184.216.34")

	resp, err := app.Test(req, 30000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}
