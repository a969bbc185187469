package handlers

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
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
	"regexp"
	"strings"
	"testing"
	"time"

	"gridquiz/internal/assets"
	"gridquiz/internal/catalog"
	"gridquiz/internal/database"
	"gridquiz/internal/security"
	"gridquiz/internal/service"
	"gridquiz/internal/templates"
)

var (
	csrfPattern      = regexp.MustCompile(`name="csrf_token" value="([0-9a-f]+)"`)
	challengePattern = regexp.MustCompile(`id="challenge-link" href="[^"]*/challenge/([^"]+)"`)
	imagePattern     = regexp.MustCompile(`/quiz/images/([0-9a-f-]+)`)
)

type testApp struct {
	server *httptest.Server
	db     *database.DB
}

type testClient struct {
	t      *testing.T
	http   *http.Client
	server *httptest.Server
}

func newTestApp(t *testing.T, rateLimit int) *testApp {
	t.Helper()

	sampleServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(testPNG(t))
	}))
	t.Cleanup(sampleServer.Close)

	cat, err := catalog.Parse([]byte(fmt.Sprintf(`
glyph "apple" {
  symbol = "🍎"
  label  = "사과"
}

glyph "dog" {
  symbol = "🐶"
  label  = "강아지"
}

sample "ball" {
  label    = "공"
  url      = "%s/ball.png"
  fallback = "⚽"
}
`, sampleServer.URL)), "test.hcl")
	if err != nil {
		t.Fatalf("catalog.Parse() error = %v", err)
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "handlers.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	tmpl, err := templates.Load()
	if err != nil {
		t.Fatalf("templates.Load() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	sessionService := service.NewSessionService(db, time.Hour)
	quizService := service.NewQuizService(db, cat, false)
	imageService := service.NewImageService(db, 1<<20)
	challengeService := service.NewChallengeService("challenge-secret", time.Hour, "http://quiz.test")
	emailService, err := service.NewEmailService("us-east-1", "", "", "", false)
	if err != nil {
		t.Fatalf("NewEmailService() error = %v", err)
	}

	middleware := NewMiddleware(sessionService, security.NewCSRFGenerator("csrf-secret"), security.NewRateLimiter(ctx, rateLimit, time.Minute), imageService.MaxBytes())
	quizHandler := NewQuizHandler(quizService, imageService, challengeService, emailService,
		assets.NewSampleCache(t.TempDir()), middleware, tmpl, false)

	mux := http.NewServeMux()
	RegisterRoutes(mux, middleware, quizHandler, NewHealthHandler(db))

	server := httptest.NewServer(Logging(mux))
	t.Cleanup(server.Close)
	return &testApp{server: server, db: db}
}

func (a *testApp) countImages(t *testing.T) int {
	t.Helper()
	var n int
	if err := a.db.QueryRow("SELECT COUNT(*) FROM uploaded_images").Scan(&n); err != nil {
		t.Fatalf("count uploaded_images: %v", err)
	}
	return n
}

// escaped is how a message appears in rendered page text
func escaped(msg string) string {
	return template.HTMLEscapeString(msg)
}

func (a *testApp) client(t *testing.T) *testClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New() error = %v", err)
	}
	return &testClient{
		t:      t,
		server: a.server,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// get returns the status and body of a GET request
func (c *testClient) get(path string) (int, string) {
	c.t.Helper()
	resp, err := c.http.Get(c.server.URL + path)
	if err != nil {
		c.t.Fatalf("GET %s error = %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

// csrf loads the page and extracts the form token
func (c *testClient) csrf() string {
	c.t.Helper()
	_, body := c.get("/")
	m := csrfPattern.FindStringSubmatch(body)
	if m == nil {
		c.t.Fatalf("no CSRF token in page:\n%s", body)
	}
	return m[1]
}

func (c *testClient) post(path string, form url.Values) (int, string) {
	c.t.Helper()
	resp, err := c.http.PostForm(c.server.URL+path, form)
	if err != nil {
		c.t.Fatalf("POST %s error = %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func (c *testClient) postMultipart(path string, fields map[string]string, image []byte) (int, string) {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", "cat.png")
		if err != nil {
			c.t.Fatalf("CreateFormFile() error = %v", err)
		}
		part.Write(image)
	}
	mw.Close()

	resp, err := c.http.Post(c.server.URL+path, mw.FormDataContentType(), &buf)
	if err != nil {
		c.t.Fatalf("POST %s error = %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 24, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 24; x++ {
			img.Set(x, y, color.RGBA{R: 30, G: uint8(x * 10), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestHomeStartsSessionWithDefaults(t *testing.T) {
	app := newTestApp(t, 100)
	c := app.client(t)

	status, body := c.get("/")
	if status != http.StatusOK {
		t.Fatalf("GET / status = %d", status)
	}
	for _, want := range []string{`name="rows" min="1" max="12" value="3"`, `name="cols" min="1" max="12" value="4"`, `value="glyph" checked`} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, `class="cell"`) {
		t.Error("grid rendered before visualization")
	}

	serverURL, _ := url.Parse(app.server.URL)
	cookies := c.http.Jar.Cookies(serverURL)
	if len(cookies) != 1 || cookies[0].Name != security.SessionCookieName {
		t.Errorf("cookies = %v, want one session cookie", cookies)
	}
}

func TestPostRequiresCSRFToken(t *testing.T) {
	app := newTestApp(t, 100)
	c := app.client(t)
	c.get("/")

	status, _ := c.post("/quiz/visualize", url.Values{"rows": {"3"}, "cols": {"4"}, "mode": {"glyph"}})
	if status != http.StatusForbidden {
		t.Errorf("status = %d, want 403", status)
	}

	other := app.client(t)
	token := other.csrf()
	status, _ = c.post("/quiz/visualize", url.Values{"csrf_token": {token}, "rows": {"3"}, "cols": {"4"}, "mode": {"glyph"}})
	if status != http.StatusForbidden {
		t.Errorf("status with another session's token = %d, want 403", status)
	}
}

func TestVisualizeAndGuess(t *testing.T) {
	app := newTestApp(t, 100)
	c := app.client(t)
	token := c.csrf()

	status, body := c.post("/quiz/guess", url.Values{"csrf_token": {token}, "guess": {"12"}})
	if status != http.StatusBadRequest || !strings.Contains(body, escaped(MsgNotVisualized)) {
		t.Errorf("guess before visualize = %d, want 400 with message", status)
	}

	status, _ = c.post("/quiz/visualize", url.Values{"csrf_token": {token}, "rows": {"3"}, "cols": {"4"}, "mode": {"glyph"}, "glyph_choice": {"dog"}})
	if status != http.StatusSeeOther {
		t.Fatalf("visualize status = %d, want 303", status)
	}

	_, body = c.get("/")
	if n := strings.Count(body, `class="cell"`); n != 12 {
		t.Errorf("grid has %d cells, want 12", n)
	}
	if !strings.Contains(body, `<td class="cell">🐶</td>`) {
		t.Error("grid cells do not show the dog glyph")
	}
	if !strings.Contains(body, "3행 × 4열 = 각 행에 4개씩, 총 12개") {
		t.Error("hint missing")
	}

	status, _ = c.post("/quiz/guess", url.Values{"csrf_token": {token}, "guess": {"11"}})
	if status != http.StatusSeeOther {
		t.Fatalf("guess status = %d, want 303", status)
	}
	_, body = c.get("/")
	if !strings.Contains(body, "11개가 아니라 12개예요") {
		t.Error("incorrect result not shown")
	}

	c.post("/quiz/guess", url.Values{"csrf_token": {token}, "guess": {"12"}})
	_, body = c.get("/")
	if !strings.Contains(body, "정답이에요!") {
		t.Error("correct result not shown")
	}
	if !strings.Contains(body, "푼 문제 2개 · 맞힌 문제 1개 · 정확도 50%") {
		t.Error("stats not shown")
	}

	status, _ = c.post("/quiz/reset", url.Values{"csrf_token": {token}})
	if status != http.StatusSeeOther {
		t.Fatalf("reset status = %d, want 303", status)
	}
	_, body = c.get("/")
	if strings.Contains(body, `class="cell"`) {
		t.Error("grid still shown after reset")
	}
}

func TestFormErrorsRerenderPage(t *testing.T) {
	app := newTestApp(t, 100)
	c := app.client(t)
	token := c.csrf()

	tests := []struct {
		name string
		path string
		form url.Values
		want string
	}{
		{"rows too big", "/quiz/visualize", url.Values{"rows": {"13"}, "cols": {"4"}, "mode": {"glyph"}}, MsgDimensionRange},
		{"cols zero", "/quiz/configure", url.Values{"rows": {"3"}, "cols": {"0"}, "mode": {"glyph"}}, MsgDimensionRange},
		{"rows not a number", "/quiz/visualize", url.Values{"rows": {"three"}, "cols": {"4"}, "mode": {"glyph"}}, MsgDimensionRange},
		{"unknown mode", "/quiz/visualize", url.Values{"rows": {"3"}, "cols": {"4"}, "mode": {"video"}}, MsgChoiceInvalid},
		{"unknown glyph", "/quiz/visualize", url.Values{"rows": {"3"}, "cols": {"4"}, "mode": {"glyph"}, "glyph_choice": {"unicorn"}}, MsgChoiceInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.form.Set("csrf_token", token)
			status, body := c.post(tt.path, tt.form)
			if status != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", status)
			}
			if !strings.Contains(body, escaped(tt.want)) {
				t.Errorf("page missing %q", tt.want)
			}
		})
	}

	c.post("/quiz/visualize", url.Values{"csrf_token": {token}, "rows": {"2"}, "cols": {"2"}, "mode": {"glyph"}})
	status, body := c.post("/quiz/guess", url.Values{"csrf_token": {token}, "guess": {"-4"}})
	if status != http.StatusBadRequest || !strings.Contains(body, escaped(MsgGuessInvalid)) {
		t.Errorf("negative guess = %d, want 400 with message", status)
	}
	status, body = c.post("/quiz/guess", url.Values{"csrf_token": {token}, "guess": {"3000000000"}})
	if status != http.StatusBadRequest || !strings.Contains(body, escaped(MsgGuessInvalid)) {
		t.Errorf("oversized guess = %d, want 400 with message", status)
	}
}

func TestConfigureDoesNotVisualize(t *testing.T) {
	app := newTestApp(t, 100)
	c := app.client(t)
	token := c.csrf()

	status, _ := c.post("/quiz/configure", url.Values{"csrf_token": {token}, "rows": {"5"}, "cols": {"6"}, "mode": {"glyph"}})
	if status != http.StatusSeeOther {
		t.Fatalf("configure status = %d, want 303", status)
	}
	_, body := c.get("/")
	if !strings.Contains(body, `value="5"`) || strings.Contains(body, `class="cell"`) {
		t.Error("configure should prefill the form without drawing the grid")
	}
}

func TestUploadFlow(t *testing.T) {
	app := newTestApp(t, 100)
	c := app.client(t)
	token := c.csrf()

	fields := map[string]string{"csrf_token": token, "rows": "2", "cols": "3", "mode": "upload"}

	status, _ := c.postMultipart("/quiz/visualize", fields, nil)
	if status != http.StatusSeeOther {
		t.Fatalf("visualize without image status = %d", status)
	}
	_, body := c.get("/")
	if n := strings.Count(body, "(업로드된 이미지 없음)"); n != 7 {
		t.Errorf("placeholder shown %d times, want 6 cells and the preview", n)
	}

	status, body = c.postMultipart("/quiz/visualize", fields, []byte("definitely not a picture"))
	if status != http.StatusBadRequest || !strings.Contains(body, escaped(MsgUploadFormat)) {
		t.Errorf("bad upload = %d, want 400 with format message", status)
	}

	status, _ = c.postMultipart("/quiz/visualize", fields, testPNG(t))
	if status != http.StatusSeeOther {
		t.Fatalf("upload status = %d", status)
	}
	_, body = c.get("/")
	m := imagePattern.FindStringSubmatch(body)
	if m == nil {
		t.Fatalf("no image URL in page")
	}
	if n := strings.Count(body, `<img src="/quiz/images/`+m[1]); n != 7 {
		t.Errorf("image shown %d times, want 6 cells and the preview", n)
	}

	status, _ = c.get("/quiz/images/" + m[1])
	if status != http.StatusOK {
		t.Errorf("image status = %d, want 200", status)
	}

	stranger := app.client(t)
	if status, _ := stranger.get("/quiz/images/" + m[1]); status != http.StatusNotFound {
		t.Errorf("image for another session status = %d, want 404", status)
	}
}

func TestOutOfRangeUploadIsNotStored(t *testing.T) {
	app := newTestApp(t, 100)
	c := app.client(t)
	token := c.csrf()

	fields := map[string]string{"csrf_token": token, "rows": "13", "cols": "3", "mode": "upload"}
	status, body := c.postMultipart("/quiz/visualize", fields, testPNG(t))
	if status != http.StatusBadRequest || !strings.Contains(body, escaped(MsgDimensionRange)) {
		t.Errorf("visualize rows=13 = %d, want 400 with range message", status)
	}
	if n := app.countImages(t); n != 0 {
		t.Errorf("uploaded_images has %d rows after a rejected form, want 0", n)
	}

	fields["rows"] = "2"
	if status, _ := c.postMultipart("/quiz/configure", fields, testPNG(t)); status != http.StatusSeeOther {
		t.Fatalf("configure status = %d", status)
	}
	if n := app.countImages(t); n != 1 {
		t.Errorf("uploaded_images has %d rows, want 1", n)
	}
}

func TestSampleMode(t *testing.T) {
	app := newTestApp(t, 100)
	c := app.client(t)
	token := c.csrf()

	status, _ := c.post("/quiz/visualize", url.Values{"csrf_token": {token}, "rows": {"1"}, "cols": {"2"}, "mode": {"sample"}, "sample_choice": {"ball"}})
	if status != http.StatusSeeOther {
		t.Fatalf("visualize status = %d", status)
	}
	_, body := c.get("/")
	if n := strings.Count(body, `<img src="/quiz/samples/ball"`); n != 3 {
		t.Errorf("sample shown %d times, want 2 cells and the preview", n)
	}

	status, img := c.get("/quiz/samples/ball")
	if status != http.StatusOK || !bytes.Equal([]byte(img), testPNG(t)) {
		t.Errorf("sample status = %d, body %d bytes", status, len(img))
	}
	if status, _ := c.get("/quiz/samples/unknown"); status != http.StatusNotFound {
		t.Errorf("unknown sample status = %d, want 404", status)
	}
}

func TestChallengeLink(t *testing.T) {
	app := newTestApp(t, 100)
	author := app.client(t)
	token := author.csrf()

	status, body := author.post("/quiz/challenge", url.Values{"csrf_token": {token}})
	if status != http.StatusBadRequest || !strings.Contains(body, escaped(MsgNotVisualized)) {
		t.Errorf("challenge before visualize = %d", status)
	}

	author.post("/quiz/visualize", url.Values{"csrf_token": {token}, "rows": {"7"}, "cols": {"8"}, "mode": {"glyph"}, "glyph_choice": {"apple"}})
	status, body = author.post("/quiz/challenge", url.Values{"csrf_token": {token}})
	if status != http.StatusOK {
		t.Fatalf("challenge status = %d", status)
	}
	m := challengePattern.FindStringSubmatch(body)
	if m == nil {
		t.Fatalf("no challenge link in page")
	}

	friend := app.client(t)
	status, _ = friend.get("/challenge/" + m[1])
	if status != http.StatusSeeOther {
		t.Fatalf("apply challenge status = %d, want 303", status)
	}
	_, body = friend.get("/")
	if n := strings.Count(body, `class="cell"`); n != 56 {
		t.Errorf("friend's grid has %d cells, want 56", n)
	}

	status, body = friend.get("/challenge/garbage")
	if status != http.StatusBadRequest || !strings.Contains(body, escaped(MsgChallengeInvalid)) {
		t.Errorf("bad challenge = %d", status)
	}
}

func TestRateLimit(t *testing.T) {
	app := newTestApp(t, 2)
	c := app.client(t)
	token := c.csrf()

	form := url.Values{"csrf_token": {token}, "rows": {"3"}, "cols": {"4"}, "mode": {"glyph"}}
	for i := 0; i < 2; i++ {
		if status, _ := c.post("/quiz/visualize", form); status != http.StatusSeeOther {
			t.Fatalf("request %d status = %d", i+1, status)
		}
	}
	if status, _ := c.post("/quiz/visualize", form); status != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", status)
	}
}

func TestSummaryWithEmailDisabled(t *testing.T) {
	app := newTestApp(t, 100)
	c := app.client(t)
	token := c.csrf()

	status, body := c.post("/quiz/summary", url.Values{"csrf_token": {token}, "email": {"nope"}})
	if status != http.StatusBadRequest || !strings.Contains(body, escaped(MsgEmailInvalid)) {
		t.Errorf("invalid email = %d", status)
	}

	status, body = c.post("/quiz/summary", url.Values{"csrf_token": {token}, "email": {"parent@example.com"}})
	if status != http.StatusOK || !strings.Contains(body, escaped(MsgEmailDisabled)) {
		t.Errorf("summary = %d, want 200 with disabled notice", status)
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, 100)
	status, body := app.client(t).get("/healthz")
	if status != http.StatusOK || strings.TrimSpace(body) != "ok" {
		t.Errorf("GET /healthz = %d %q", status, body)
	}
}
