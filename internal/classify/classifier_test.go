package classify

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"pharmawatch/internal/database"
	"pharmawatch/internal/models"
	"pharmawatch/internal/storage"
)

type fakeCompleter struct {
	probeErr error
	replies  []string
	errs     []error
	prompts  []string
}

func (f *fakeCompleter) Probe(ctx context.Context) error {
	return f.probeErr
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	i := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "Ticker: NONE", nil
}

func newTestStore(t *testing.T) *storage.NewsStore {
	t.Helper()
	db, err := database.NewDB(database.NewConfig(filepath.Join(t.TempDir(), "news.db")))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return storage.NewNewsStore(db)
}

func seed(t *testing.T, s *storage.NewsStore, titles ...string) []int64 {
	t.Helper()
	var ids []int64
	for i, title := range titles {
		item := models.NewNewsItem(models.SourceFDA)
		item.Title = title
		item.Link = "https://example.com/" + string(rune('a'+i))
		item.PubDate = "2025-11-21 16:30:00"
		if _, err := s.InsertIfNew(context.Background(), item); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, item.ID)
	}
	return ids
}

func newTestClassifier(client Completer, store Store) (*Classifier, *[]time.Duration) {
	c := New(client, store, Options{BatchSize: 100, Delay: 3 * time.Second, FallbackScore: 3.0, NeutralScore: 5.0})
	var sleeps []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return c, &sleeps
}

func get(t *testing.T, s *storage.NewsStore, id int64) *models.NewsItem {
	t.Helper()
	item, err := s.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return item
}

func TestRunClassifiesAndFallsBack(t *testing.T) {
	store := newTestStore(t)
	ids := seed(t, store, "Approval", "Policy", "Missing impact")

	client := &fakeCompleter{replies: []string{
		"Ticker: ARWR\nType: approval\nImpact: 8\nKoreanSummary: 승인",
		"Ticker: NONE",
		"Ticker: NVS\nType: warning",
	}}
	c, sleeps := newTestClassifier(client, store)

	report, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Aborted || report.Interrupted {
		t.Fatalf("unexpected report flags: %+v", report)
	}
	if report.Pending != 3 || len(report.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %+v", report)
	}
	if report.Identified() != 2 || report.Fallbacks() != 1 {
		t.Errorf("expected 2 identified and 1 fallback, got %d/%d", report.Identified(), report.Fallbacks())
	}
	if len(*sleeps) != 2 {
		t.Errorf("expected delay between rows only, got %d sleeps", len(*sleeps))
	}

	first := get(t, store, ids[0])
	if !first.Analyzed || *first.Ticker != "ARWR" || *first.ImpactScore != 8 || *first.NewsType != "approval" || *first.SummaryLocalized != "승인" {
		t.Errorf("unexpected classified row: %+v", first)
	}

	second := get(t, store, ids[1])
	if !second.Analyzed || second.HasTicker() || *second.ImpactScore != 3.0 {
		t.Errorf("expected NONE row to get fallback 3.0 and no ticker: %+v", second)
	}

	third := get(t, store, ids[2])
	if *third.ImpactScore != 5.0 {
		t.Errorf("expected neutral 5.0 for missing impact, got %v", *third.ImpactScore)
	}

	if pending, _ := store.CountPending(context.Background()); pending != 0 {
		t.Errorf("expected no pending rows, got %d", pending)
	}
}

func TestRunProbeFailureWritesNothing(t *testing.T) {
	store := newTestStore(t)
	ids := seed(t, store, "One", "Two")

	probeErr := errors.New("connection refused")
	client := &fakeCompleter{probeErr: probeErr}
	c, _ := newTestClassifier(client, store)

	report, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("expected nil error on probe failure, got %v", err)
	}
	if !report.Aborted || !errors.Is(report.AbortErr, probeErr) {
		t.Errorf("expected aborted report, got %+v", report)
	}
	if len(client.prompts) != 0 {
		t.Errorf("expected no completion requests, got %d", len(client.prompts))
	}
	for _, id := range ids {
		if item := get(t, store, id); item.Analyzed || item.ImpactScore != nil {
			t.Errorf("row %d modified after aborted run: %+v", id, item)
		}
	}
}

func TestRunRequestFailureFallsBack(t *testing.T) {
	store := newTestStore(t)
	ids := seed(t, store, "One", "Two")

	client := &fakeCompleter{
		errs:    []error{errors.New("timeout")},
		replies: []string{"", "Ticker: MRNA\nImpact: 9"},
	}
	c, _ := newTestClassifier(client, store)

	report, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Outcomes[0].Kind != KindRequestFailed || report.Outcomes[0].Err == nil {
		t.Errorf("expected request failure outcome, got %+v", report.Outcomes[0])
	}

	failed := get(t, store, ids[0])
	if !failed.Analyzed || *failed.ImpactScore != 3.0 || failed.HasTicker() {
		t.Errorf("expected fallback row, got %+v", failed)
	}
	if ok := get(t, store, ids[1]); *ok.Ticker != "MRNA" {
		t.Errorf("expected later row still classified, got %+v", ok)
	}
}

func TestRunUnparsableReplyFallsBack(t *testing.T) {
	store := newTestStore(t)
	ids := seed(t, store, "One")

	c, _ := newTestClassifier(&fakeCompleter{replies: []string{"Sorry, I cannot help."}}, store)
	report, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Outcomes[0].Kind != KindUnparsable {
		t.Errorf("expected unparsable outcome, got %v", report.Outcomes[0].Kind)
	}
	if item := get(t, store, ids[0]); *item.ImpactScore != 3.0 {
		t.Errorf("expected fallback score, got %v", *item.ImpactScore)
	}
}

func TestRunRespectsBatchSize(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, "One", "Two", "Three")

	c, _ := newTestClassifier(&fakeCompleter{}, store)
	c.opts.BatchSize = 2

	report, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Pending != 2 || len(report.Outcomes) != 2 {
		t.Errorf("expected batch of 2, got %+v", report)
	}
	if pending, _ := store.CountPending(context.Background()); pending != 1 {
		t.Errorf("expected 1 row left pending, got %d", pending)
	}
}

func TestRunNoPending(t *testing.T) {
	store := newTestStore(t)
	client := &fakeCompleter{}
	c, _ := newTestClassifier(client, store)

	report, err := c.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Pending != 0 || len(client.prompts) != 0 {
		t.Errorf("expected empty run, got %+v", report)
	}
}

func TestRunStopsWhenContextEnds(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, "One", "Two", "Three")

	ctx, cancel := context.WithCancel(context.Background())
	c, _ := newTestClassifier(&fakeCompleter{}, store)
	c.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	report, err := c.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Interrupted || len(report.Outcomes) != 1 {
		t.Errorf("expected interruption after first row, got %+v", report)
	}
	if pending, _ := store.CountPending(context.Background()); pending != 2 {
		t.Errorf("expected 2 rows left pending, got %d", pending)
	}
}

type failingStore struct {
	items []models.NewsItem
}

func (f *failingStore) FetchPending(ctx context.Context, limit int) ([]models.NewsItem, error) {
	return f.items, nil
}

func (f *failingStore) ApplyClassification(ctx context.Context, id int64, c models.Classification) error {
	return storage.ErrNewsItemNotFound
}

func (f *failingStore) MarkFallback(ctx context.Context, id int64, score float64) error {
	return storage.ErrNewsItemNotFound
}

func TestRunReturnsStoreErrors(t *testing.T) {
	store := &failingStore{items: []models.NewsItem{{ID: 7, Title: "Ghost"}, {ID: 8, Title: "Other"}}}
	client := &fakeCompleter{}
	c, _ := newTestClassifier(client, store)

	_, err := c.Run(context.Background())
	if !errors.Is(err, storage.ErrNewsItemNotFound) {
		t.Errorf("expected ErrNewsItemNotFound, got %v", err)
	}
	if len(client.prompts) != 1 {
		t.Errorf("expected run to stop after first row, got %d requests", len(client.prompts))
	}
}
