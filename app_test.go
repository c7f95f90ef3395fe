package medlog_test

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/medlog"
	"github.com/eringen/medlog/views"
	"github.com/eringen/medlog/visits"
)

var testNow = time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	a := medlog.New(medlog.SiteConfig{
		SessionSecret: "test-session-secret-0123456789abcdef",
		DatabasePath:  filepath.Join(dir, "medlog.db"),
		UploadsDir:    filepath.Join(dir, "uploads"),
	}, views.Funcs(), medlog.WithClock(func() time.Time { return testNow }))
	require.NoError(t, a.Init())

	srv := httptest.NewServer(a.Echo)
	t.Cleanup(func() {
		srv.Close()
		a.Close()
	})
	return srv
}

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newClient(t *testing.T, srv *httptest.Server) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{
		t:    t,
		base: srv.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *client) do(req *http.Request) (*http.Response, string) {
	c.t.Helper()
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, string(body)
}

func (c *client) get(path string) (*http.Response, string) {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	require.NoError(c.t, err)
	return c.do(req)
}

func (c *client) postForm(path string, form url.Values) (*http.Response, string) {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.base+path, strings.NewReader(form.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) sendJSON(method, path string, body any) (*http.Response, string) {
	c.t.Helper()
	b, err := json.Marshal(body)
	require.NoError(c.t, err)
	req, err := http.NewRequest(method, c.base+path, bytes.NewReader(b))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// csrf returns the token from the _csrf cookie, fetching the sign-in page
// first when no cookie has been set yet.
func (c *client) csrf() string {
	c.t.Helper()
	u, err := url.Parse(c.base + "/")
	require.NoError(c.t, err)
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == "_csrf" {
			return ck.Value
		}
	}
	resp, _ := c.get("/login/")
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == "_csrf" {
			return ck.Value
		}
	}
	c.t.Fatal("no _csrf cookie")
	return ""
}

func (c *client) signIn(email string) {
	c.t.Helper()
	resp, _ := c.postForm("/login/", url.Values{"email": {email}, "_csrf": {c.csrf()}})
	require.Equal(c.t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(c.t, "/", resp.Header.Get("Location"))
}

func sampleVisit() map[string]any {
	return map[string]any{
		"visit_date":     "2024-03-05",
		"doctor_name":    "Dr. Smith",
		"reason":         "Persistent cough",
		"category":       "Flu/Cold",
		"follow_up_date": "2024-03-19",
		"medications":    []string{"Amoxicillin"},
		"symptoms": []map[string]any{
			{"name": "Cough", "severity": 6, "category": "Respiratory"},
		},
	}
}

func (c *client) createVisit() visits.Visit {
	c.t.Helper()
	resp, body := c.sendJSON(http.MethodPost, "/api/visits", sampleVisit())
	require.Equal(c.t, http.StatusCreated, resp.StatusCode, body)
	var v visits.Visit
	require.NoError(c.t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestPagesRequireSignIn(t *testing.T) {
	c := newClient(t, newTestServer(t))

	resp, _ := c.get("/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login/", resp.Header.Get("Location"))

	resp, body := c.get("/api/visits")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"error":"sign in required"}`, body)

	resp, _ = c.get("/analytics/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	c := newClient(t, newTestServer(t))

	resp, body := c.get("/login/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="_csrf"`)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	resp, _ = c.postForm("/login/", url.Values{"email": {"alice@example.com"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "missing CSRF token")

	resp, body = c.postForm("/login/", url.Values{"email": {"not-an-email"}, "_csrf": {c.csrf()}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Enter a valid email address.")

	c.signIn("Alice@Example.com")
	resp, body = c.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "alice@example.com")

	resp, _ = c.get("/login/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = c.postForm("/logout/", url.Values{"_csrf": {c.csrf()}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = c.get("/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestAPIVisitLifecycle(t *testing.T) {
	c := newClient(t, newTestServer(t))
	c.signIn("alice@example.com")

	v := c.createVisit()
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, visits.UserIDFromEmail("alice@example.com"), v.UserID)
	assert.Equal(t, testNow, v.CreatedAt)
	require.Len(t, v.Symptoms, 1)
	assert.NotEmpty(t, v.Symptoms[0].ID)

	resp, body := c.get("/api/visits")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []visits.Visit
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	assert.Len(t, list, 1)

	_, body = c.get("/api/visits?q=zzz")
	assert.JSONEq(t, `[]`, body)

	resp, body = c.sendJSON(http.MethodPatch, "/api/visits/"+v.ID, map[string]any{"reason": "Cough follow-up"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	var patched visits.Visit
	require.NoError(t, json.Unmarshal([]byte(body), &patched))
	assert.Equal(t, "Cough follow-up", patched.Reason)
	assert.Equal(t, v.DoctorName, patched.DoctorName)
	assert.Equal(t, v.CreatedAt, patched.CreatedAt)

	resp, _ = c.sendJSON(http.MethodPatch, "/api/visits/"+v.ID, map[string]any{"owner": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, c.base+"/api/visits/"+v.ID, nil)
	require.NoError(t, err)
	resp, _ = c.do(req)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = c.get("/api/visits/" + v.ID)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"visit not found"}`, body)
}

func TestAPIValidation(t *testing.T) {
	c := newClient(t, newTestServer(t))
	c.signIn("alice@example.com")

	bad := sampleVisit()
	delete(bad, "doctor_name")
	bad["symptoms"] = []map[string]any{}
	resp, body := c.sendJSON(http.MethodPost, "/api/visits", bad)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var verr struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &verr))
	assert.Equal(t, "validation failed", verr.Error)
	assert.Contains(t, verr.Fields, "doctor_name")
	assert.Contains(t, verr.Fields, "symptoms")

	req, err := http.NewRequest(http.MethodPost, c.base+"/api/visits", strings.NewReader("visit_date=2024-03-05"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, _ = c.do(req)
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestVisitsAreScopedToOwner(t *testing.T) {
	srv := newTestServer(t)
	alice := newClient(t, srv)
	alice.signIn("alice@example.com")
	bob := newClient(t, srv)
	bob.signIn("bob@example.com")

	v := alice.createVisit()

	resp, _ := bob.get("/api/visits/" + v.ID)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = bob.sendJSON(http.MethodPatch, "/api/visits/"+v.ID, map[string]any{"reason": "hijack"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body := bob.get("/api/visits")
	assert.JSONEq(t, `[]`, body)

	resp, _ = alice.get("/api/visits/" + v.ID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTMLVisitForm(t *testing.T) {
	c := newClient(t, newTestServer(t))
	c.signIn("alice@example.com")

	resp, body := c.get("/visits/new/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Add New Visit")
	assert.Contains(t, body, `value="2024-03-14"`)

	form := url.Values{
		"_csrf":            {c.csrf()},
		"visit_date":       {"2024-03-10"},
		"doctor_name":      {""},
		"reason":           {"Back pain"},
		"category":         {"Specialist Consultation"},
		"symptom_id":       {"", ""},
		"symptom_name":     {"Lower back pain", ""},
		"symptom_severity": {"7", "5"},
		"symptom_category": {"Pain", "General"},
	}
	resp, body = c.postForm("/visits/save/", form)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Doctor name is required")
	assert.Contains(t, body, "Lower back pain")

	form.Set("doctor_name", "Dr. Patel")
	form.Set("medications", "Ibuprofen\n\nHeat pack\n")
	resp, _ = c.postForm("/visits/save/", form)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/visits/?msg=Visit+saved.", resp.Header.Get("Location"))

	resp, body = c.get("/visits/?msg=Visit+saved.")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Visit saved.")
	assert.Contains(t, body, "Dr. Patel")

	_, body = c.get("/api/visits")
	var list []visits.Visit
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	require.Len(t, list, 1)
	saved := list[0]
	assert.Equal(t, []string{"Ibuprofen", "Heat pack"}, saved.Medications)
	require.Len(t, saved.Symptoms, 1)
	assert.Equal(t, 7, saved.Symptoms[0].Severity)

	resp, body = c.get("/visits/" + saved.ID + "/edit/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Edit Visit")
	assert.Contains(t, body, "Ibuprofen\nHeat pack")

	resp, _ = c.postForm("/visits/"+saved.ID+"/", url.Values{"_method": {"DELETE"}, "_csrf": {c.csrf()}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/visits/?msg=Visit+deleted.", resp.Header.Get("Location"))

	resp, body = c.get("/visits/" + saved.ID + "/edit/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "Not found")
}

func TestHistorySearch(t *testing.T) {
	c := newClient(t, newTestServer(t))
	c.signIn("alice@example.com")
	c.createVisit()

	_, body := c.get("/visits/?q=cough")
	assert.Contains(t, body, "Dr. Smith")

	_, body = c.get("/visits/?q=fracture")
	assert.Contains(t, body, "No visits match your search.")

	_, body = c.get("/visits/?category=Checkup")
	assert.NotContains(t, body, "Dr. Smith")
}

func TestDashboardAndAnalytics(t *testing.T) {
	c := newClient(t, newTestServer(t))
	c.signIn("alice@example.com")
	c.createVisit()

	resp, body := c.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Upcoming Follow-ups")
	assert.Contains(t, body, "Mar 19, 2024")

	resp, body = c.get("/api/analytics?range=3")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report struct {
		Report struct {
			Summary struct {
				TotalVisits int `json:"total_visits"`
			} `json:"summary"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &report))
	assert.Equal(t, 1, report.Report.Summary.TotalVisits)

	resp, body = c.get("/analytics/?range=12")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Health Analytics")
	assert.Contains(t, body, "Visit Frequency")
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (c *client) upload(visitID, filename string, data []byte) (*http.Response, string) {
	c.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(c.t, mw.WriteField("_csrf", c.csrf()))
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(c.t, err)
	_, err = fw.Write(data)
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, c.base+"/visits/"+visitID+"/attachments/", &body)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func TestAttachments(t *testing.T) {
	srv := newTestServer(t)
	alice := newClient(t, srv)
	alice.signIn("alice@example.com")
	v := alice.createVisit()

	resp, _ := alice.upload(v.ID, "Lab Report.png", pngBytes(t, 40, 30))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/visits/"+v.ID+"/edit/", resp.Header.Get("Location"))

	resp, _ = alice.upload(v.ID, "Lab Report.png", pngBytes(t, 40, 30))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body := alice.get("/api/visits/" + v.ID)
	var got visits.Visit
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	require.Len(t, got.Attachments, 2)
	assert.Equal(t, "lab-report.jpg", got.Attachments[0].Filename)
	assert.Equal(t, "lab-report-2.jpg", got.Attachments[1].Filename)
	assert.Equal(t, 40, got.Attachments[0].Width)
	assert.Equal(t, "Lab Report.png", got.Attachments[0].OriginalName)

	resp, _ = alice.get("/uploads/lab-report.jpg")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	bob := newClient(t, srv)
	bob.signIn("bob@example.com")
	resp, _ = bob.get("/uploads/lab-report.jpg")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = alice.upload(v.ID, "notes.txt", []byte("not an image"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Invalid image")

	resp, _ = alice.postForm("/visits/"+v.ID+"/attachments/lab-report.jpg/",
		url.Values{"_method": {"DELETE"}, "_csrf": {alice.csrf()}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = alice.get("/uploads/lab-report.jpg")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_, body = alice.get("/api/visits/" + v.ID)
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "lab-report-2.jpg", got.Attachments[0].Filename)
}

func TestStaticAssets(t *testing.T) {
	c := newClient(t, newTestServer(t))

	resp, body := c.get("/public/style.css")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, ".card")
	assert.Equal(t, "public, max-age=86400", resp.Header.Get("Cache-Control"))

	resp, _ = c.get("/public/medlog.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
