package ingest

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bazar-cloud/bazar/internal/domain"
	domjob "github.com/bazar-cloud/bazar/internal/domain/job"
	"github.com/bazar-cloud/bazar/internal/domain/product"
)

// --- Mocks ---

// mockJobStore keeps one job and mutates its status the way the real
// status-guarded repository would.
type mockJobStore struct {
	job domjob.Job

	createErr   error
	getErr      error
	claimOK     bool
	claimErr    error
	completeErr error
	failErr     error

	created       *domjob.Job
	claimCalled   bool
	completedWith string
	failedReason  string
	pending       []domjob.Job
}

func (m *mockJobStore) Create(_ context.Context, j *domjob.Job) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = j
	m.job = *j
	return nil
}

func (m *mockJobStore) Get(_ context.Context, _ string) (domjob.Job, error) {
	if m.getErr != nil {
		return domjob.Job{}, m.getErr
	}
	return m.job, nil
}

func (m *mockJobStore) Claim(_ context.Context, _ string) (bool, error) {
	m.claimCalled = true
	if m.claimErr != nil {
		return false, m.claimErr
	}
	if m.claimOK {
		m.setStatus(domjob.StatusProcessing, "", "")
	}
	return m.claimOK, nil
}

func (m *mockJobStore) MarkCompleted(_ context.Context, _, productID string) error {
	if m.completeErr != nil {
		return m.completeErr
	}
	m.completedWith = productID
	m.setStatus(domjob.StatusCompleted, productID, "")
	return nil
}

func (m *mockJobStore) MarkFailed(_ context.Context, _, reason string) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.failedReason = reason
	m.setStatus(domjob.StatusFailed, "", reason)
	return nil
}

func (m *mockJobStore) ListPending(_ context.Context, _ int) ([]domjob.Job, error) {
	return m.pending, nil
}

func (m *mockJobStore) setStatus(st domjob.Status, productID, errMsg string) {
	m.job = domjob.Reconstruct(
		m.job.ID(), m.job.SellerID(), m.job.Input(), m.job.Seller(), st,
		productID, errMsg, testTime(), testTime(),
	)
}

type mockProductStore struct {
	err     error
	created *product.Product
}

func (m *mockProductStore) Create(_ context.Context, p *product.Product) error {
	if m.err != nil {
		return m.err
	}
	m.created = p
	return nil
}

type mockExtractor struct {
	draft  domain.Draft
	err    error
	called bool
	gotIn  domain.RawListing
}

func (m *mockExtractor) Extract(_ context.Context, in domain.RawListing) (domain.Draft, error) {
	m.called = true
	m.gotIn = in
	return m.draft, m.err
}

type mockEmbedder struct {
	vec     []float32
	err     error
	gotText string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.gotText = text
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 5}, nil
}

type mockImageFinder struct {
	urls   []string
	err    error
	called bool
}

func (m *mockImageFinder) FindImages(_ context.Context, _ string) ([]string, error) {
	m.called = true
	return m.urls, m.err
}

type mockDispatcher struct {
	accept bool
	jobIDs []string
}

func (m *mockDispatcher) Dispatch(jobID string) bool {
	m.jobIDs = append(m.jobIDs, jobID)
	return m.accept
}

// --- Helpers ---

func testTime() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func textListing(text string) domain.RawListing {
	return domain.RawListing{Modality: domain.ModalityText, Text: text}
}

func pendingJob(t *testing.T, seller domjob.SellerContext) domjob.Job {
	t.Helper()
	j, err := domjob.New("job-1", "seller-1", textListing("selling fresh honey"), seller)
	if err != nil {
		t.Fatalf("job: %v", err)
	}
	return j
}

func goodDraft() domain.Draft {
	return domain.Draft{
		Name: "Honey", Description: "Forest honey", Price: 450,
		Quantity: 2, Unit: "jar", Category: "Groceries",
	}
}

func newTestService(t *testing.T, jobs *mockJobStore, products *mockProductStore,
	ext *mockExtractor, emb *mockEmbedder) *Service {
	t.Helper()
	return New(jobs, products, ext, emb, zap.NewNop())
}
