package handlers

import (
	"bytes"
	"errors"
	"html/template"
	"log"
	"net/http"

	"gridquiz/internal/assets"
	"gridquiz/internal/models"
	"gridquiz/internal/quiz"
	"gridquiz/internal/service"
	"gridquiz/internal/validation"
)

// QuizHandler serves the quiz page and its form actions
type QuizHandler struct {
	quizService      *service.QuizService
	imageService     *service.ImageService
	challengeService *service.ChallengeService
	emailService     *service.EmailService
	samples          *assets.SampleCache
	middleware       *Middleware
	templates        *template.Template
	debug            bool
}

// NewQuizHandler creates a new quiz handler
func NewQuizHandler(
	quizService *service.QuizService,
	imageService *service.ImageService,
	challengeService *service.ChallengeService,
	emailService *service.EmailService,
	samples *assets.SampleCache,
	middleware *Middleware,
	templates *template.Template,
	debug bool,
) *QuizHandler {
	return &QuizHandler{
		quizService:      quizService,
		imageService:     imageService,
		challengeService: challengeService,
		emailService:     emailService,
		samples:          samples,
		middleware:       middleware,
		templates:        templates,
		debug:            debug,
	}
}

// pageMessages carries one-off text for a rendered page
type pageMessages struct {
	Error         string
	Notice        string
	ChallengeLink string
}

// Home renders the quiz page
func (h *QuizHandler) Home(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	h.renderPage(w, session, http.StatusOK, pageMessages{})
}

// Configure stores the form selection, with an optional upload, without visualizing
func (h *QuizHandler) Configure(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	in, err := h.readConfigureForm(r, session)
	if err == nil {
		_, err = h.quizService.Configure(session.ID, in)
	}
	h.finish(w, r, session, err)
}

// Visualize stores the form selection and commits it, computing the answer
func (h *QuizHandler) Visualize(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	in, err := h.readConfigureForm(r, session)
	if err == nil {
		_, err = h.quizService.ConfigureAndVisualize(session.ID, in)
	}
	h.finish(w, r, session, err)
}

// Guess checks the learner's answer
func (h *QuizHandler) Guess(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	guess, err := validation.ParseInt("guess", r.PostFormValue("guess"))
	if err == nil {
		_, _, err = h.quizService.SubmitGuess(session.ID, guess)
	}
	h.finish(w, r, session, err)
}

// Reset restores the defaults and forgets uploads
func (h *QuizHandler) Reset(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	_, err := h.quizService.Reset(session.ID)
	h.finish(w, r, session, err)
}

// Image serves the thumbnail of an image the session uploaded
func (h *QuizHandler) Image(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	thumb, err := h.imageService.Thumbnail(session.ID, r.PathValue("id"))
	if errors.Is(err, service.ErrImageNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to load image", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(thumb)
}

// Sample serves a catalog sample image from the local cache
func (h *QuizHandler) Sample(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	sample, ok := h.quizService.Catalog().Sample(key)
	if !ok {
		http.NotFound(w, r)
		return
	}

	cached, err := h.samples.Get(r.Context(), sample.Key, sample.URL)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Sample image unavailable", "Failed to fetch sample "+key, err)
		return
	}

	w.Header().Set("Content-Type", cached.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(cached.Data)
}

// Challenge issues a share link for the visualized problem
func (h *QuizHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	state, err := h.quizService.State(session.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to load quiz state", err)
		return
	}

	ch, err := service.FromState(state)
	var token string
	if err == nil {
		token, err = h.challengeService.Issue(ch)
	}
	if err != nil {
		h.renderError(w, session, err)
		return
	}

	h.renderPage(w, session, http.StatusOK, pageMessages{
		Notice:        MsgChallengeReady,
		ChallengeLink: h.challengeService.Link(token),
	})
}

// ApplyChallenge loads the problem from a share link into the session
func (h *QuizHandler) ApplyChallenge(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	ch, err := h.challengeService.Parse(r.PathValue("token"))
	if err == nil {
		_, err = h.quizService.ApplyChallenge(session.ID, ch)
	}
	h.finish(w, r, session, err)
}

// Summary emails the session's practice summary
func (h *QuizHandler) Summary(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	stats, err := h.quizService.Stats(session.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to load stats", err)
		return
	}
	recent, err := h.quizService.RecentAttempts(session.ID, recentAttemptLimit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to load attempts", err)
		return
	}

	summary := service.PracticeSummary{Stats: stats, Recent: recent}
	if err := h.emailService.SendPracticeSummary(r.Context(), r.PostFormValue("email"), summary); err != nil {
		h.renderError(w, session, err)
		return
	}

	notice := MsgSummarySent
	if !h.emailService.IsEnabled() {
		notice = MsgEmailDisabled
	}
	h.renderPage(w, session, http.StatusOK, pageMessages{Notice: notice})
}

// readConfigureForm reads rows, cols, mode and choice, storing an uploaded
// image first when the upload mode is selected
func (h *QuizHandler) readConfigureForm(r *http.Request, session *models.Session) (service.ConfigureInput, error) {
	var in service.ConfigureInput

	rows, err := validation.ParseInt("rows", r.PostFormValue("rows"))
	if err != nil {
		return in, err
	}
	cols, err := validation.ParseInt("cols", r.PostFormValue("cols"))
	if err != nil {
		return in, err
	}
	in.Rows, in.Cols = rows, cols

	// Bounds are checked here too so a rejected form never stores its upload
	if err := validation.ValidateDimension("rows", rows); err != nil {
		return in, err
	}
	if err := validation.ValidateDimension("cols", cols); err != nil {
		return in, err
	}

	mode, err := quiz.ParseDisplayMode(r.PostFormValue("mode"))
	if err != nil {
		return in, err
	}
	in.Mode = string(mode)

	switch mode {
	case quiz.ModeGlyph:
		in.Choice = r.PostFormValue("glyph_choice")
	case quiz.ModeSampleImage:
		in.Choice = r.PostFormValue("sample_choice")
	case quiz.ModeUploadedImage:
		file, header, err := r.FormFile("image")
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return in, nil
		}
		if err != nil {
			return in, err
		}
		defer file.Close()

		img, err := h.imageService.Store(session.ID, header.Filename, file)
		if err != nil {
			return in, err
		}
		in.ImageID = img.ID
	}

	return in, nil
}

// finish redirects back to the page after a successful action, or re-renders
// it with the error
func (h *QuizHandler) finish(w http.ResponseWriter, r *http.Request, session *models.Session, err error) {
	if err != nil {
		h.renderError(w, session, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *QuizHandler) renderError(w http.ResponseWriter, session *models.Session, err error) {
	msg, ok := userMessage(err)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Quiz action failed", err)
		return
	}
	if h.debug {
		log.Printf("[DEBUG] Rejected input for session %s: %v", session.ID, err)
	}
	h.renderPage(w, session, http.StatusBadRequest, pageMessages{Error: msg})
}

func (h *QuizHandler) renderPage(w http.ResponseWriter, session *models.Session, status int, msgs pageMessages) {
	state, err := h.quizService.State(session.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to load quiz state", err)
		return
	}
	stats, err := h.quizService.Stats(session.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to load stats", err)
		return
	}
	recent, err := h.quizService.RecentAttempts(session.ID, recentAttemptLimit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to load attempts", err)
		return
	}
	csrfToken, err := h.middleware.GetCSRFToken(session.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to create CSRF token", err)
		return
	}

	data := newQuizPageViewData(state, h.quizService.Catalog())
	data.CSRFToken = csrfToken
	data.Stats = stats
	data.Recent = recent
	data.Error = msgs.Error
	data.Notice = msgs.Notice
	data.ChallengeLink = msgs.ChallengeLink
	data.EmailEnabled = h.emailService.IsEnabled()
	data.UploadMaxBytes = h.imageService.MaxBytes()

	// Render into a buffer so a template error does not leave a half-written page
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, "quiz.tmpl", data); err != nil {
		log.Printf("Error rendering quiz template: %v", err)
		http.Error(w, ErrInternalServerError, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
