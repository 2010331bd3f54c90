package payments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hazem-e99/lawyers-sub000/internal/auth"
	"github.com/hazem-e99/lawyers-sub000/internal/entitlement"
	"github.com/hazem-e99/lawyers-sub000/pkg/models"
)

/* ===== helpers ===== */

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Subscription{}, &models.PaymentRequest{},
		&models.PricingSettings{}, &models.SubscriptionEvent{},
	))
	require.NoError(t, EnsureDefaultSettings(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	t.Helper()

	u := models.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("u+%s@test.local", uuid.NewString()),
		PasswordHash: "x",
		Role:         role,
		Name:         "Test User",
		Subscription: models.Subscription{IsActive: false},
	}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

// fakeBlobs is an in-memory BlobStore so handler tests run without Supabase.
type fakeBlobs struct {
	objects map[string][]byte
}

func newFakeBlobs() *fakeBlobs { return &fakeBlobs{objects: map[string][]byte{}} }

func (f *fakeBlobs) MakeObjectKey(userID, filename string) string {
	return "payments/" + userID + "/" + uuid.NewString() + "-" + filename
}

func (f *fakeBlobs) Upload(key string, r io.Reader, contentType string, size int64) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = b
	return nil
}

func (f *fakeBlobs) SignedURL(key string, expiresInSeconds int) (string, error) {
	if _, ok := f.objects[key]; !ok {
		return "", fmt.Errorf("no such object: %s", key)
	}
	return "https://signed.test/" + key, nil
}

func (f *fakeBlobs) Delete(key string) error {
	delete(f.objects, key)
	return nil
}

func newTestApp(db *gorm.DB, blobs *fakeBlobs) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: auth.ErrorHandler,
		BodyLimit:    MaxScreenshotSize + 1024*1024,
	})
	h := NewHandler(db, blobs)

	api := app.Group("/api")
	api.Post("/payments/instapay/request", auth.RequireAuth(), h.Submit)
	api.Get("/payments/mine", auth.RequireAuth(), h.ListMine)

	adminOrSuper := auth.RequireAnyRole(models.RoleAdmin, models.RoleSuperadmin)
	api.Get("/payments/admin/pending", auth.RequireAuth(), adminOrSuper, h.ListPending)
	api.Get("/payments/admin/all", auth.RequireAuth(), adminOrSuper, h.ListAll)
	api.Get("/payments/admin/settings", auth.RequireAuth(), auth.RequireRole(models.RoleSuperadmin), h.GetSettings)
	api.Put("/payments/admin/settings", auth.RequireAuth(), auth.RequireRole(models.RoleSuperadmin), h.UpdateSettings)
	api.Get("/payments/admin/:id/screenshot-url", auth.RequireAuth(), adminOrSuper, h.ScreenshotURL)
	api.Post("/payments/admin/:id/approve", auth.RequireAuth(), auth.RequireRole(models.RoleSuperadmin), h.Approve)
	api.Post("/payments/admin/:id/reject", auth.RequireAuth(), auth.RequireRole(models.RoleSuperadmin), h.Reject)
	return app
}

func bearer(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := auth.IssueToken(u.ID.String(), string(u.Role))
	require.NoError(t, err)
	return "Bearer " + token
}

// submitReq builds the multipart submission request.
func submitReq(t *testing.T, u *models.User, plan, refnum, filename, mimeType string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if plan != "" {
		require.NoError(t, w.WriteField("plan_duration", plan))
	}
	if refnum != "" {
		require.NoError(t, w.WriteField("reference_number", refnum))
	}
	if filename != "" {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="screenshot"; filename="%s"`, filename))
		hdr.Set("Content-Type", mimeType)
		part, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/payments/instapay/request", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", bearer(t, u))
	return req
}

func jsonReq(t *testing.T, u *models.User, method, target string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, u))
	return req
}

func loadRequest(t *testing.T, db *gorm.DB, id uuid.UUID) models.PaymentRequest {
	t.Helper()
	var req models.PaymentRequest
	require.NoError(t, db.First(&req, "id = ?", id).Error)
	return req
}

func loadSubscription(t *testing.T, db *gorm.DB, userID uuid.UUID) models.Subscription {
	t.Helper()
	var sub models.Subscription
	require.NoError(t, db.Where("user_id = ?", userID).First(&sub).Error)
	return sub
}

func seedPending(t *testing.T, db *gorm.DB, userID uuid.UUID, plan models.PlanDuration, blobs *fakeBlobs) models.PaymentRequest {
	t.Helper()

	key := blobs.MakeObjectKey(userID.String(), "proof.png")
	blobs.objects[key] = []byte("png")

	req := models.PaymentRequest{
		UserID:          userID,
		Amount:          decimal.NewFromInt(199),
		PricingVersion:  1,
		PlanDuration:    plan,
		ReferenceNumber: "INS123",
		ScreenshotKey:   key,
		ScreenshotMime:  "image/png",
		ScreenshotSize:  3,
		Status:          models.PaymentPending,
	}
	require.NoError(t, db.Create(&req).Error)
	return req
}

/* ============================= Submission =============================== */

func TestSubmitCreatesPendingRequest(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := openTestDB(t)
	blobs := newFakeBlobs()
	app := newTestApp(db, blobs)

	viewer := seedUser(t, db, models.RoleViewer)

	res, err := app.Test(submitReq(t, viewer, "monthly", "INS123", "proof.jpg", "image/jpeg", []byte("jpeg-bytes")))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, res.StatusCode)

	var out models.PaymentRequest
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	assert.Equal(t, models.PaymentPending, out.Status)
	assert.Equal(t, models.PlanMonthly, out.PlanDuration)
	assert.Equal(t, "INS123", out.ReferenceNumber)
	assert.True(t, out.Amount.Equal(decimal.NewFromInt(199)), "amount = %s", out.Amount)
	assert.EqualValues(t, 1, out.PricingVersion)
	assert.Nil(t, out.ReviewedBy)

	// Blob landed in storage.
	stored := loadRequest(t, db, out.ID)
	assert.Contains(t, blobs.objects, stored.ScreenshotKey)
}

func TestSubmitValidation(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := openTestDB(t)
	blobs := newFakeBlobs()
	app := newTestApp(db, blobs)

	viewer := seedUser(t, db, models.RoleViewer)
	png := []byte("png-bytes")

	cases := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"missing reference number", submitReq(t, viewer, "monthly", "", "p.png", "image/png", png), http.StatusBadRequest},
		{"bad plan", submitReq(t, viewer, "weekly", "INS123", "p.png", "image/png", png), http.StatusBadRequest},
		{"missing file", submitReq(t, viewer, "monthly", "INS123", "", "", nil), http.StatusBadRequest},
		{"unsupported mime", submitReq(t, viewer, "monthly", "INS123", "p.gif", "image/gif", png), http.StatusBadRequest},
		{"bad refnum characters", submitReq(t, viewer, "monthly", "INS_123!!", "p.png", "image/png", png), http.StatusBadRequest},
	}
	for _, tc := range cases {
		res, err := app.Test(tc.req)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, res.StatusCode, tc.name)
	}

	// Nothing was persisted or uploaded.
	var count int64
	db.Model(&models.PaymentRequest{}).Count(&count)
	assert.Zero(t, count)
	assert.Empty(t, blobs.objects)
}

func TestSubmitRejectsOversizedScreenshot(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := openTestDB(t)
	blobs := newFakeBlobs()
	app := newTestApp(db, blobs)

	viewer := seedUser(t, db, models.RoleViewer)
	big := bytes.Repeat([]byte("a"), MaxScreenshotSize+1)

	res, err := app.Test(submitReq(t, viewer, "monthly", "INS123", "big.png", "image/png", big), 30000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestSubmitForbiddenForBackOfficeRoles(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := openTestDB(t)
	app := newTestApp(db, newFakeBlobs())

	for _, role := range []models.Role{models.RoleAdmin, models.RoleSuperadmin} {
		u := seedUser(t, db, role)
		res, err := app.Test(submitReq(t, u, "monthly", "INS123", "p.png", "image/png", []byte("png")))
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, res.StatusCode, "role %s", role)
	}
}

func TestAmountSnapshotSurvivesSettingsChange(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := openTestDB(t)
	blobs := newFakeBlobs()
	app := newTestApp(db, blobs)

	viewer := seedUser(t, db, models.RoleViewer)
	superadmin := seedUser(t, db, models.RoleSuperadmin)

	res, err := app.Test(submitReq(t, viewer, "monthly", "INS100", "p.png", "image/png", []byte("png")))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var first models.PaymentRequest
	require.NoError(t, json.NewDecoder(res.Body).Decode(&first))

	// Superadmin raises prices.
	res, err = app.Test(jsonReq(t, superadmin, http.MethodPut, "/api/payments/admin/settings", fiber.Map{
		"instapay_identifier": "lawyers@instapay",
		"monthly_price":       299,
		"yearly_price":        2999,
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	// The old request keeps its frozen amount.
	stored := loadRequest(t, db, first.ID)
	assert.True(t, stored.Amount.Equal(decimal.NewFromInt(199)), "amount = %s", stored.Amount)

	// A new submission picks up the new price and version.
	res, err = app.Test(submitReq(t, viewer, "monthly", "INS101", "p.png", "image/png", []byte("png")))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var second models.PaymentRequest
	require.NoError(t, json.NewDecoder(res.Body).Decode(&second))
	assert.True(t, second.Amount.Equal(decimal.NewFromInt(299)), "amount = %s", second.Amount)
	assert.Greater(t, second.PricingVersion, first.PricingVersion)
}

/* ================================ Review ================================ */

func TestApproveActivatesSubscription(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := openTestDB(t)
	blobs := newFakeBlobs()
	app := newTestApp(db, blobs)

	viewer := seedUser(t, db, models.RoleViewer)
	superadmin := seedUser(t, db, models.RoleSuperadmin)
	req := seedPending(t, db, viewer.ID, models.PlanYearly, blobs)

	before := time.Now()
	res, err := app.Test(jsonReq(t, superadmin, http.MethodPost,
		"/api/payments/admin/"+req.ID.String()+"/approve", fiber.Map{"admin_note": "verified"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	stored := loadRequest(t, db, req.ID)
	assert.Equal(t, models.PaymentApproved, stored.Status)
	require.NotNil(t, stored.ReviewedBy)
	assert.Equal(t, superadmin.ID, *stored.ReviewedBy)
	assert.NotNil(t, stored.ReviewedAt)
	require.NotNil(t, stored.AdminNote)
	assert.Equal(t, "verified", *stored.AdminNote)

	sub := loadSubscription(t, db, viewer.ID)
	assert.True(t, sub.IsActive)
	assert.False(t, sub.IsTrial)
	require.NotNil(t, sub.ExpiresAt)
	assert.WithinDuration(t, before.AddDate(0, 0, 365), *sub.ExpiresAt, 5*time.Second)
}

func TestSecondReviewConflicts(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := openTestDB(t)
	blobs := newFakeBlobs()
	app := newTestApp(db, blobs)

	viewer := seedUser(t, db, models.RoleViewer)
	superadmin := seedUser(t, db, models.RoleSuperadmin)
	req := seedPending(t, db, viewer.ID, models.PlanMonthly, blobs)

	res, err := app.Test(jsonReq(t, superadmin, http.MethodPost,
		"/api/payments/admin/"+req.ID.String()+"/approve", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	firstExpiry := loadSubscription(t, db, viewer.ID).ExpiresAt

	// A stale reject of the same request loses with a conflict, not a
	// double-reviewed record.
	res, err = app.Test(jsonReq(t, superadmin, http.MethodPost,
		"/api/payments/admin/"+req.ID.String()+"/reject", fiber.Map{"admin_note": "late"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	// So does a duplicate approve: no double credit.
	res, err = app.Test(jsonReq(t, superadmin, http.MethodPost,
		"/api/payments/admin/"+req.ID.String()+"/approve", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	stored := loadRequest(t, db, req.ID)
	assert.Equal(t, models.PaymentApproved, stored.Status)
	sub := loadSubscription(t, db, viewer.ID)
	require.NotNil(t, sub.ExpiresAt)
	assert.True(t, sub.ExpiresAt.Equal(*firstExpiry), "subscription credited twice")
}

func TestRejectRequiresNote(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := openTestDB(t)
	blobs := newFakeBlobs()
	app := newTestApp(db, blobs)

	viewer := seedUser(t, db, models.RoleViewer)
	superadmin := seedUser(t, db, models.RoleSuperadmin)
	req := seedPending(t, db, viewer.ID, models.PlanMonthly, blobs)

	res, err := app.Test(jsonReq(t, superadmin, http.MethodPost,
		"/api/payments/admin/"+req.ID.String()+"/reject", fiber.Map{"admin_note": ""}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, models.PaymentPending, loadRequest(t, db, req.ID).Status)

	res, err = app.Test(jsonReq(t, superadmin, http.MethodPost,
		"/api/payments/admin/"+req.ID.String()+"/reject", fiber.Map{"admin_note": "bad screenshot"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	stored := loadRequest(t, db, req.ID)
	assert.Equal(t, models.PaymentRejected, stored.Status)
	require.NotNil(t, stored.AdminNote)
	assert.Equal(t, "bad screenshot", *stored.AdminNote)

	// Rejection has no subscription side effect.
	sub := loadSubscription(t, db, viewer.ID)
	assert.False(t, sub.IsActive)
	assert.Nil(t, sub.ExpiresAt)
}

func TestReviewUnknownRequest(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := openTestDB(t)
	app := newTestApp(db, newFakeBlobs())

	superadmin := seedUser(t, db, models.RoleSuperadmin)
	missing := uuid.NewString()

	res, err := app.Test(jsonReq(t, superadmin, http.MethodPost,
		"/api/payments/admin/"+missing+"/approve", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, err = app.Test(jsonReq(t, superadmin, http.MethodPost,
		"/api/payments/admin/"+missing+"/reject", fiber.Map{"admin_note": "n/a"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestApproveRollsBackWhenActivationFails(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := openTestDB(t)
	blobs := newFakeBlobs()
	app := newTestApp(db, blobs)

	viewer := seedUser(t, db, models.RoleViewer)
	superadmin := seedUser(t, db, models.RoleSuperadmin)
	req := seedPending(t, db, viewer.ID, models.PlanMonthly, blobs)

	// Account deleted between submission and review: activation cannot
	// succeed, so the status write must not stick either.
	require.NoError(t, db.Delete(&models.User{}, "id = ?", viewer.ID).Error)

	res, err := app.Test(jsonReq(t, superadmin, http.MethodPost,
		"/api/payments/admin/"+req.ID.String()+"/approve", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, models.PaymentPending, loadRequest(t, db, req.ID).Status)
}

/* ================================ Listing =============================== */

func TestAdminListsAndRoleGates(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := openTestDB(t)
	blobs := newFakeBlobs()
	app := newTestApp(db, blobs)

	viewer := seedUser(t, db, models.RoleViewer)
	admin := seedUser(t, db, models.RoleAdmin)
	superadmin := seedUser(t, db, models.RoleSuperadmin)

	pending := seedPending(t, db, viewer.ID, models.PlanMonthly, blobs)
	_ = seedPending(t, db, viewer.ID, models.PlanYearly, blobs)

	// Regular roles cannot reach the back office.
	res, err := app.Test(jsonReq(t, viewer, http.MethodGet, "/api/payments/admin/pending", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, err = app.Test(jsonReq(t, admin, http.MethodGet, "/api/payments/admin/pending", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var page pageRequests
	require.NoError(t, json.NewDecoder(res.Body).Decode(&page))
	assert.EqualValues(t, 2, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, viewer.Email, page.Items[0].UserEmail)

	// Approve one, then filter.
	res, err = app.Test(jsonReq(t, superadmin, http.MethodPost,
		"/api/payments/admin/"+pending.ID.String()+"/approve", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, err = app.Test(jsonReq(t, admin, http.MethodGet, "/api/payments/admin/all?status=approved", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, json.NewDecoder(res.Body).Decode(&page))
	assert.EqualValues(t, 1, page.Total)

	res, err = app.Test(jsonReq(t, admin, http.MethodGet, "/api/payments/admin/all?status=bogus", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	// Users see their own history.
	res, err = app.Test(jsonReq(t, viewer, http.MethodGet, "/api/payments/mine", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var mine []models.PaymentRequest
	require.NoError(t, json.NewDecoder(res.Body).Decode(&mine))
	assert.Len(t, mine, 2)
}

func TestScreenshotURL(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := openTestDB(t)
	blobs := newFakeBlobs()
	app := newTestApp(db, blobs)

	viewer := seedUser(t, db, models.RoleViewer)
	admin := seedUser(t, db, models.RoleAdmin)
	req := seedPending(t, db, viewer.ID, models.PlanMonthly, blobs)

	res, err := app.Test(jsonReq(t, admin, http.MethodGet,
		"/api/payments/admin/"+req.ID.String()+"/screenshot-url", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var out struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	assert.Equal(t, "https://signed.test/"+req.ScreenshotKey, out.URL)

	res, err = app.Test(jsonReq(t, viewer, http.MethodGet,
		"/api/payments/admin/"+req.ID.String()+"/screenshot-url", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

/* =============================== Settings =============================== */

func TestSettingsEndpoints(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := openTestDB(t)
	app := newTestApp(db, newFakeBlobs())

	admin := seedUser(t, db, models.RoleAdmin)
	superadmin := seedUser(t, db, models.RoleSuperadmin)

	// Settings are superadmin-only, even for admins.
	res, err := app.Test(jsonReq(t, admin, http.MethodGet, "/api/payments/admin/settings", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, err = app.Test(jsonReq(t, superadmin, http.MethodGet, "/api/payments/admin/settings", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var s models.PricingSettings
	require.NoError(t, json.NewDecoder(res.Body).Decode(&s))
	assert.True(t, s.MonthlyPrice.Equal(decimal.NewFromInt(199)))

	// Invalid updates are rejected.
	res, err = app.Test(jsonReq(t, superadmin, http.MethodPut, "/api/payments/admin/settings", fiber.Map{
		"instapay_identifier": "",
		"monthly_price":       299,
		"yearly_price":        2999,
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, err = app.Test(jsonReq(t, superadmin, http.MethodPut, "/api/payments/admin/settings", fiber.Map{
		"instapay_identifier": "office@instapay",
		"monthly_price":       299,
		"yearly_price":        -1,
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	// Valid update appends a new version.
	res, err = app.Test(jsonReq(t, superadmin, http.MethodPut, "/api/payments/admin/settings", fiber.Map{
		"instapay_identifier": "office@instapay",
		"monthly_price":       299,
		"yearly_price":        2999,
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var updated models.PricingSettings
	require.NoError(t, json.NewDecoder(res.Body).Decode(&updated))
	assert.Greater(t, updated.Version, s.Version)

	var count int64
	db.Model(&models.PricingSettings{}).Count(&count)
	assert.EqualValues(t, 2, count)
}

/* ============================== End to end ============================== */

func TestEndToEndMonthlyApproval(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := openTestDB(t)
	blobs := newFakeBlobs()
	app := newTestApp(db, blobs)

	lawyer := seedUser(t, db, models.RoleLawyer)
	superadmin := seedUser(t, db, models.RoleSuperadmin)

	// Submit a monthly proof.
	res, err := app.Test(submitReq(t, lawyer, "monthly", "INS123", "proof.jpg", "image/jpeg", []byte("jpeg")))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var req models.PaymentRequest
	require.NoError(t, json.NewDecoder(res.Body).Decode(&req))
	assert.Equal(t, models.PaymentPending, req.Status)
	assert.True(t, req.Amount.Equal(decimal.NewFromInt(199)))

	// Superadmin approves.
	res, err = app.Test(jsonReq(t, superadmin, http.MethodPost,
		"/api/payments/admin/"+req.ID.String()+"/approve", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	sub := loadSubscription(t, db, lawyer.ID)
	assert.True(t, sub.IsActive)
	assert.False(t, sub.IsTrial)
	require.NotNil(t, sub.ExpiresAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), *sub.ExpiresAt, 5*time.Second)

	// Entitlement reflects the new state without any transition event:
	// usable today, expired 31 days from now.
	var u models.User
	require.NoError(t, db.Preload("Subscription").First(&u, "id = ?", lawyer.ID).Error)
	assert.True(t, entitlement.Resolve(&u, time.Now()).Usable)

	later := entitlement.Resolve(&u, time.Now().AddDate(0, 0, 31))
	assert.False(t, later.Usable)
	assert.Equal(t, entitlement.ReasonExpired, later.Reason)
}
