package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"server/internal/activity"
	"server/internal/domain"
	"server/internal/events"
	"server/internal/middleware"
	"server/internal/storage"
)

type fakePodcasts struct {
	items map[string]*domain.Podcast
	seq   int
}

func newFakePodcasts() *fakePodcasts {
	return &fakePodcasts{items: make(map[string]*domain.Podcast)}
}

func (f *fakePodcasts) Create(ctx context.Context, p *domain.Podcast) error {
	f.seq++
	p.ID = fmt.Sprintf("pod-%d", f.seq)
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	f.items[p.ID] = &cp
	return nil
}

func (f *fakePodcasts) GetByID(ctx context.Context, id string) (*domain.Podcast, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, domain.ErrNotFound("podcast")
	}
	cp := *p
	return &cp, nil
}

func (f *fakePodcasts) ListByOwner(ctx context.Context, userID string) ([]domain.Podcast, error) {
	var out []domain.Podcast
	for _, p := range f.items {
		if p.CreatedBy == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePodcasts) SetAudioResult(ctx context.Context, id, audioURL string, durationSeconds float64) error {
	p, ok := f.items[id]
	if !ok {
		return domain.ErrNotFound("podcast")
	}
	p.AudioURL = audioURL
	p.DurationSeconds = durationSeconds
	return nil
}

func (f *fakePodcasts) Delete(ctx context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return domain.ErrNotFound("podcast")
	}
	delete(f.items, id)
	return nil
}

type fakeVoiceovers struct {
	items map[string]*domain.Voiceover
	seq   int
}

func newFakeVoiceovers() *fakeVoiceovers {
	return &fakeVoiceovers{items: make(map[string]*domain.Voiceover)}
}

func (f *fakeVoiceovers) Create(ctx context.Context, v *domain.Voiceover) error {
	f.seq++
	v.ID = fmt.Sprintf("vo-%d", f.seq)
	v.CreatedAt = time.Now().UTC()
	v.UpdatedAt = v.CreatedAt
	cp := *v
	f.items[v.ID] = &cp
	return nil
}

func (f *fakeVoiceovers) GetByID(ctx context.Context, id string) (*domain.Voiceover, error) {
	v, ok := f.items[id]
	if !ok {
		return nil, domain.ErrNotFound("voiceover")
	}
	cp := *v
	return &cp, nil
}

func (f *fakeVoiceovers) ListByOwner(ctx context.Context, userID string) ([]domain.Voiceover, error) {
	var out []domain.Voiceover
	for _, v := range f.items {
		if v.CreatedBy == userID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeVoiceovers) SetAudioResult(ctx context.Context, id, audioURL string, durationSeconds float64) error {
	v, ok := f.items[id]
	if !ok {
		return domain.ErrNotFound("voiceover")
	}
	v.AudioURL = audioURL
	v.DurationSeconds = durationSeconds
	return nil
}

func (f *fakeVoiceovers) Delete(ctx context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return domain.ErrNotFound("voiceover")
	}
	delete(f.items, id)
	return nil
}

type fakeInfographics struct {
	items map[string]*domain.Infographic
	seq   int
}

func newFakeInfographics() *fakeInfographics {
	return &fakeInfographics{items: make(map[string]*domain.Infographic)}
}

func (f *fakeInfographics) Create(ctx context.Context, i *domain.Infographic) error {
	f.seq++
	i.ID = fmt.Sprintf("info-%d", f.seq)
	i.CreatedAt = time.Now().UTC()
	i.UpdatedAt = i.CreatedAt
	cp := *i
	f.items[i.ID] = &cp
	return nil
}

func (f *fakeInfographics) GetByID(ctx context.Context, id string) (*domain.Infographic, error) {
	i, ok := f.items[id]
	if !ok {
		return nil, domain.ErrNotFound("infographic")
	}
	cp := *i
	return &cp, nil
}

func (f *fakeInfographics) ListByOwner(ctx context.Context, userID string) ([]domain.Infographic, error) {
	var out []domain.Infographic
	for _, i := range f.items {
		if i.CreatedBy == userID {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (f *fakeInfographics) SetImageResult(ctx context.Context, id, imageKey string) error {
	i, ok := f.items[id]
	if !ok {
		return domain.ErrNotFound("infographic")
	}
	i.ImageKey = imageKey
	return nil
}

func (f *fakeInfographics) SetFeedback(ctx context.Context, id, feedback string) error {
	i, ok := f.items[id]
	if !ok {
		return domain.ErrNotFound("infographic")
	}
	i.Feedback = feedback
	return nil
}

func (f *fakeInfographics) Delete(ctx context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return domain.ErrNotFound("infographic")
	}
	delete(f.items, id)
	return nil
}

type fakeScripts struct {
	versions map[string][]domain.ScriptVersion
}

func newFakeScripts() *fakeScripts {
	return &fakeScripts{versions: make(map[string][]domain.ScriptVersion)}
}

func (f *fakeScripts) CreateVersion(ctx context.Context, podcastID string, content domain.ScriptContent) (*domain.ScriptVersion, error) {
	existing := f.versions[podcastID]
	for i := range existing {
		existing[i].IsActive = false
	}
	v := domain.ScriptVersion{
		ID:        fmt.Sprintf("sv-%s-%d", podcastID, len(existing)+1),
		PodcastID: podcastID,
		Version:   len(existing) + 1,
		Content:   content,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	f.versions[podcastID] = append(existing, v)
	return &v, nil
}

func (f *fakeScripts) GetActive(ctx context.Context, podcastID string) (*domain.ScriptVersion, error) {
	for _, v := range f.versions[podcastID] {
		if v.IsActive {
			cp := v
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound("script")
}

func (f *fakeScripts) ListVersions(ctx context.Context, podcastID string) ([]domain.ScriptVersion, error) {
	return append([]domain.ScriptVersion(nil), f.versions[podcastID]...), nil
}

type fakeActivity struct {
	entries []domain.ActivityEntry
}

func (f *fakeActivity) Record(ctx context.Context, entry *domain.ActivityEntry) error {
	entry.ID = fmt.Sprintf("act-%d", len(f.entries)+1)
	entry.CreatedAt = time.Now().UTC()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeActivity) ListRecent(ctx context.Context, userID string, limit int) ([]domain.ActivityEntry, error) {
	var out []domain.ActivityEntry
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].UserID == userID {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

// fakeQueue keys jobs by (entity, job type) and hands back the existing job
// on repeated enqueues, matching the durable queue's idempotency contract.
type fakeQueue struct {
	jobs map[string]*domain.Job
	byID map[string]*domain.Job
	err  error
	seq  int
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{jobs: make(map[string]*domain.Job), byID: make(map[string]*domain.Job)}
}

func (f *fakeQueue) Enqueue(ctx context.Context, entityID string, entityType domain.EntityType, jobType domain.JobType, payload []byte) (*domain.Job, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	key := entityID + "/" + string(jobType)
	if job, ok := f.jobs[key]; ok && !job.Status.Terminal() {
		cp := *job
		return &cp, false, nil
	}
	f.seq++
	job := &domain.Job{
		ID:         fmt.Sprintf("job-%d", f.seq),
		EntityID:   entityID,
		EntityType: entityType,
		JobType:    jobType,
		Status:     domain.JobStatusPending,
		Payload:    payload,
		CreatedAt:  time.Now().UTC(),
	}
	f.jobs[key] = job
	f.byID[job.ID] = job
	cp := *job
	return &cp, true, nil
}

func (f *fakeQueue) GetStatus(ctx context.Context, jobID string) (*domain.Job, error) {
	job, ok := f.byID[jobID]
	if !ok {
		return nil, domain.ErrNotFound("job")
	}
	cp := *job
	return &cp, nil
}

type testEnv struct {
	app          *App
	podcasts     *fakePodcasts
	voiceovers   *fakeVoiceovers
	infographics *fakeInfographics
	scripts      *fakeScripts
	queue        *fakeQueue
	activity     *fakeActivity
	publisher    *events.MemoryPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	env := &testEnv{
		podcasts:     newFakePodcasts(),
		voiceovers:   newFakeVoiceovers(),
		infographics: newFakeInfographics(),
		scripts:      newFakeScripts(),
		queue:        newFakeQueue(),
		activity:     &fakeActivity{},
		publisher:    events.NewMemoryPublisher(logger),
	}
	env.app = &App{
		Podcasts:     env.podcasts,
		Scripts:      env.scripts,
		Voiceovers:   env.voiceovers,
		Infographics: env.infographics,
		Queue:        env.queue,
		Publisher:    env.publisher,
		Activity:     activity.NewRecorder(env.activity, nil, env.publisher, logger),
		Store:        store,
		Logger:       logger,
	}
	return env
}

// router mirrors the production route table for the handlers under test.
func (env *testEnv) router(userID string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.ContextWithUserID(req.Context(), userID)))
		})
	})
	a := env.app
	r.Post("/v1/podcasts", a.PodcastsCreate)
	r.Get("/v1/podcasts", a.PodcastsList)
	r.Get("/v1/podcasts/{id}", a.PodcastsGet)
	r.Delete("/v1/podcasts/{id}", a.PodcastsDelete)
	r.Post("/v1/podcasts/{id}/script", a.PodcastsGenerateScript)
	r.Put("/v1/podcasts/{id}/script", a.PodcastsSaveScript)
	r.Get("/v1/podcasts/{id}/script", a.PodcastsGetScript)
	r.Get("/v1/podcasts/{id}/script/versions", a.PodcastsListScriptVersions)
	r.Post("/v1/podcasts/{id}/audio", a.PodcastsGenerateAudio)
	r.Get("/v1/podcasts/{id}/export", a.PodcastsExport)
	r.Post("/v1/voiceovers", a.VoiceoversCreate)
	r.Get("/v1/voiceovers/{id}", a.VoiceoversGet)
	r.Post("/v1/voiceovers/{id}/generate", a.VoiceoversGenerate)
	r.Post("/v1/infographics", a.InfographicsCreate)
	r.Get("/v1/infographics/{id}", a.InfographicsGet)
	r.Post("/v1/infographics/{id}/generate", a.InfographicsGenerate)
	r.Get("/v1/jobs/{id}", a.JobsGet)
	r.Get("/v1/activity", a.ActivityList)
	r.Get("/v1/events", a.EventsStream)
	r.Get("/v1/media/*", a.MediaServe)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestPodcastCreateAndGet(t *testing.T) {
	env := newTestEnv(t)
	h := env.router("user-1")

	rr := doJSON(t, h, http.MethodPost, "/v1/podcasts", map[string]string{
		"title":           "Quarterly Review",
		"source_document": "Revenue grew by twelve percent.",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rr.Code, rr.Body.String())
	}
	created := decodeBody(t, rr)
	if created["status"] != "draft" {
		t.Fatalf("new podcast status = %v, want draft", created["status"])
	}
	id, _ := created["id"].(string)

	rr = doJSON(t, h, http.MethodGet, "/v1/podcasts/"+id, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}
	if got := decodeBody(t, rr)["title"]; got != "Quarterly Review" {
		t.Fatalf("title = %v", got)
	}
}

func TestPodcastHiddenFromOtherUsers(t *testing.T) {
	env := newTestEnv(t)
	owner := env.router("user-1")
	stranger := env.router("user-2")

	rr := doJSON(t, owner, http.MethodPost, "/v1/podcasts", map[string]string{
		"title":           "Private",
		"source_document": "Body.",
	})
	id := decodeBody(t, rr)["id"].(string)

	rr = doJSON(t, stranger, http.MethodGet, "/v1/podcasts/"+id, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("stranger get status = %d, want 404", rr.Code)
	}
	rr = doJSON(t, stranger, http.MethodDelete, "/v1/podcasts/"+id, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("stranger delete status = %d, want 404", rr.Code)
	}
}

func TestPodcastCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	h := env.router("user-1")

	rr := doJSON(t, h, http.MethodPost, "/v1/podcasts", map[string]string{"title": "No body"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	body := decodeBody(t, rr)
	errObj, _ := body["error"].(map[string]any)
	if errObj["code"] != "bad_request" {
		t.Fatalf("error code = %v", errObj["code"])
	}
}

func TestVoiceoverGenerateIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	h := env.router("user-1")

	rr := doJSON(t, h, http.MethodPost, "/v1/voiceovers", map[string]string{
		"title": "Promo",
		"text":  "Welcome to the launch.",
	})
	id := decodeBody(t, rr)["id"].(string)

	rr = doJSON(t, h, http.MethodPost, "/v1/voiceovers/"+id+"/generate", map[string]string{"voice": "Puck"})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("first generate status = %d, body %s", rr.Code, rr.Body.String())
	}
	first := decodeBody(t, rr)
	if first["created"] != true {
		t.Fatalf("first generate created = %v, want true", first["created"])
	}
	firstJob := first["job"].(map[string]any)

	rr = doJSON(t, h, http.MethodPost, "/v1/voiceovers/"+id+"/generate", nil)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("second generate status = %d", rr.Code)
	}
	second := decodeBody(t, rr)
	if second["created"] != false {
		t.Fatalf("second generate created = %v, want false", second["created"])
	}
	if secondJob := second["job"].(map[string]any); secondJob["id"] != firstJob["id"] {
		t.Fatalf("second job id = %v, want %v", secondJob["id"], firstJob["id"])
	}
}

func TestGenerateGuardMapsToConflict(t *testing.T) {
	env := newTestEnv(t)
	h := env.router("user-1")

	rr := doJSON(t, h, http.MethodPost, "/v1/voiceovers", map[string]string{
		"title": "Promo",
		"text":  "Welcome.",
	})
	id := decodeBody(t, rr)["id"].(string)

	env.queue.err = domain.ErrInvalidTransition(domain.EntityTypeVoiceover, domain.JobTypeGenerateAudio, domain.StatusGenerating)
	rr = doJSON(t, h, http.MethodPost, "/v1/voiceovers/"+id+"/generate", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rr.Code)
	}
	errObj := decodeBody(t, rr)["error"].(map[string]any)
	if errObj["code"] != "invalid_state" {
		t.Fatalf("error code = %v", errObj["code"])
	}
}

func TestSaveScriptRejectedWhileGenerating(t *testing.T) {
	env := newTestEnv(t)
	h := env.router("user-1")

	rr := doJSON(t, h, http.MethodPost, "/v1/podcasts", map[string]string{
		"title":           "Busy",
		"source_document": "Body.",
	})
	id := decodeBody(t, rr)["id"].(string)
	env.podcasts.items[id].Status = domain.StatusGeneratingScript

	rr = doJSON(t, h, http.MethodPut, "/v1/podcasts/"+id+"/script", map[string]any{
		"segments": []map[string]string{{"speaker": "Host", "text": "Hello."}},
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rr.Code)
	}
}

func TestSaveScriptCreatesActiveVersion(t *testing.T) {
	env := newTestEnv(t)
	h := env.router("user-1")

	rr := doJSON(t, h, http.MethodPost, "/v1/podcasts", map[string]string{
		"title":           "Edited",
		"source_document": "Body.",
	})
	id := decodeBody(t, rr)["id"].(string)

	for i := 0; i < 2; i++ {
		rr = doJSON(t, h, http.MethodPut, "/v1/podcasts/"+id+"/script", map[string]any{
			"segments": []map[string]string{{"speaker": "Host", "text": fmt.Sprintf("Take %d.", i+1)}},
			"summary":  "Edited by hand",
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("save %d status = %d, body %s", i, rr.Code, rr.Body.String())
		}
	}

	rr = doJSON(t, h, http.MethodGet, "/v1/podcasts/"+id+"/script", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get script status = %d", rr.Code)
	}
	active := decodeBody(t, rr)
	if active["version"] != float64(2) {
		t.Fatalf("active version = %v, want 2", active["version"])
	}

	rr = doJSON(t, h, http.MethodGet, "/v1/podcasts/"+id+"/script/versions", nil)
	if items := decodeBody(t, rr)["items"].([]any); len(items) != 2 {
		t.Fatalf("versions = %d, want 2", len(items))
	}
}

func TestInfographicGenerateStoresFeedback(t *testing.T) {
	env := newTestEnv(t)
	h := env.router("user-1")

	rr := doJSON(t, h, http.MethodPost, "/v1/infographics", map[string]string{
		"title": "Funnel",
		"brief": "Show the signup funnel.",
	})
	id := decodeBody(t, rr)["id"].(string)

	rr = doJSON(t, h, http.MethodPost, "/v1/infographics/"+id+"/generate", map[string]string{
		"feedback": "Use a darker palette.",
	})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("generate status = %d, body %s", rr.Code, rr.Body.String())
	}
	if got := env.infographics.items[id].Feedback; got != "Use a darker palette." {
		t.Fatalf("stored feedback = %q", got)
	}
}

func TestJobsGetScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.router("user-1")
	stranger := env.router("user-2")

	rr := doJSON(t, owner, http.MethodPost, "/v1/voiceovers", map[string]string{
		"title": "Promo",
		"text":  "Welcome.",
	})
	id := decodeBody(t, rr)["id"].(string)
	rr = doJSON(t, owner, http.MethodPost, "/v1/voiceovers/"+id+"/generate", nil)
	jobID := decodeBody(t, rr)["job"].(map[string]any)["id"].(string)

	rr = doJSON(t, owner, http.MethodGet, "/v1/jobs/"+jobID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("owner job get status = %d", rr.Code)
	}
	rr = doJSON(t, stranger, http.MethodGet, "/v1/jobs/"+jobID, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("stranger job get status = %d, want 404", rr.Code)
	}
}

func TestActivityListReturnsCallerEntries(t *testing.T) {
	env := newTestEnv(t)
	h := env.router("user-1")

	doJSON(t, h, http.MethodPost, "/v1/podcasts", map[string]string{
		"title":           "Logged",
		"source_document": "Body.",
	})

	rr := doJSON(t, h, http.MethodGet, "/v1/activity", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("activity status = %d", rr.Code)
	}
	items := decodeBody(t, rr)["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("entries = %d, want 1", len(items))
	}
	if action := items[0].(map[string]any)["action"]; action != "podcast.created" {
		t.Fatalf("action = %v", action)
	}

	rr = doJSON(t, env.router("user-2"), http.MethodGet, "/v1/activity", nil)
	if items := decodeBody(t, rr)["items"].([]any); len(items) != 0 {
		t.Fatalf("stranger entries = %d, want 0", len(items))
	}
}

func TestEventsStreamDeliversFrames(t *testing.T) {
	env := newTestEnv(t)
	h := env.router("user-1")

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil).WithContext(ctx)
	rr := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rr, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	env.app.Publisher.Publish(context.Background(), domain.EntityChangeEvent("user-1", domain.EntityTypePodcast, "pod-1", domain.ChangeUpdate))
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream handler did not return after cancel")
	}

	body := rr.Body.String()
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(body, `"type":"connected"`) {
		t.Fatalf("body missing connected frame: %q", body)
	}
	if !strings.Contains(body, `"type":"entity_change"`) {
		t.Fatalf("body missing entity_change frame: %q", body)
	}
	if !strings.Contains(body, "data: ") {
		t.Fatalf("body missing data framing: %q", body)
	}
}

func TestEventsStreamSkipsOtherUsers(t *testing.T) {
	env := newTestEnv(t)
	h := env.router("user-1")

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil).WithContext(ctx)
	rr := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rr, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	env.app.Publisher.Publish(context.Background(), domain.EntityChangeEvent("user-2", domain.EntityTypePodcast, "pod-9", domain.ChangeUpdate))
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if strings.Contains(rr.Body.String(), "pod-9") {
		t.Fatalf("received another user's event: %q", rr.Body.String())
	}
}

func TestPodcastExportBundlesArtifacts(t *testing.T) {
	env := newTestEnv(t)
	h := env.router("user-1")

	rr := doJSON(t, h, http.MethodPost, "/v1/podcasts", map[string]string{
		"title":           "Bundle",
		"source_document": "Body.",
	})
	id := decodeBody(t, rr)["id"].(string)

	rr = doJSON(t, h, http.MethodPut, "/v1/podcasts/"+id+"/script", map[string]any{
		"segments": []map[string]string{{"speaker": "Host", "text": "Hello."}},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("save script status = %d", rr.Code)
	}

	audioKey := "audio/podcasts/" + id + ".wav"
	if _, err := env.app.Store.Write(context.Background(), audioKey, []byte("wav-bytes")); err != nil {
		t.Fatalf("store write: %v", err)
	}
	env.podcasts.items[id].AudioURL = audioKey

	rr = doJSON(t, h, http.MethodGet, "/v1/podcasts/"+id+"/export", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("export status = %d, body %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("content type = %q", ct)
	}

	zr, err := zip.NewReader(bytes.NewReader(rr.Body.Bytes()), int64(rr.Body.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	names := make(map[string]bool, len(zr.File))
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"podcast.json", "script.json", id + ".wav"} {
		if !names[want] {
			t.Fatalf("archive missing %q, has %v", want, names)
		}
	}
}

func TestMediaServeReadsStoredAsset(t *testing.T) {
	env := newTestEnv(t)
	h := env.router("user-1")

	if _, err := env.app.Store.Write(context.Background(), "images/infographics/info-1.png", []byte("png-bytes")); err != nil {
		t.Fatalf("store write: %v", err)
	}

	rr := doJSON(t, h, http.MethodGet, "/v1/media/images/infographics/info-1.png", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("media status = %d", rr.Code)
	}
	if rr.Body.String() != "png-bytes" {
		t.Fatalf("media body = %q", rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodGet, "/v1/media/..%2fsecret", nil)
	if rr.Code == http.StatusOK {
		t.Fatalf("path escape served, status = %d", rr.Code)
	}
}
