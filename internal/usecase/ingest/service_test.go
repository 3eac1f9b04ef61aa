package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/bazar-cloud/bazar/internal/domain"
	"github.com/bazar-cloud/bazar/internal/domain/geo"
	domjob "github.com/bazar-cloud/bazar/internal/domain/job"
)

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending job and dispatches it", func(t *testing.T) {
		jobs := &mockJobStore{}
		disp := &mockDispatcher{accept: true}
		svc := newTestService(t, jobs, &mockProductStore{}, &mockExtractor{}, &mockEmbedder{}).
			WithDispatcher(disp)

		j, err := svc.Submit(ctx, "seller-1", textListing("old bicycle, good brakes"), domjob.SellerContext{})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if j.Status() != domjob.StatusPending {
			t.Errorf("status = %s, want pending", j.Status())
		}
		if jobs.created == nil {
			t.Fatal("job was not persisted")
		}
		if len(disp.jobIDs) != 1 || disp.jobIDs[0] != j.ID() {
			t.Errorf("dispatched %v, want [%s]", disp.jobIDs, j.ID())
		}
	})

	t.Run("full queue is not an error", func(t *testing.T) {
		jobs := &mockJobStore{}
		disp := &mockDispatcher{accept: false}
		svc := newTestService(t, jobs, &mockProductStore{}, &mockExtractor{}, &mockEmbedder{}).
			WithDispatcher(disp)

		j, err := svc.Submit(ctx, "seller-1", textListing("firewood"), domjob.SellerContext{})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if j.Status() != domjob.StatusPending {
			t.Errorf("status = %s, want pending", j.Status())
		}
	})

	t.Run("keeps the seller context on the job", func(t *testing.T) {
		jobs := &mockJobStore{}
		svc := newTestService(t, jobs, &mockProductStore{}, &mockExtractor{}, &mockEmbedder{})

		loc, _ := geo.NewPoint(55.75, 37.61)
		j, err := svc.Submit(ctx, "seller-1", textListing("apples"), domjob.SellerContext{Location: &loc, District: "Mitino"})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		got, ok := j.Location()
		if !ok || got != loc {
			t.Errorf("location = %v (%v), want %v", got, ok, loc)
		}
		if j.District() != "Mitino" {
			t.Errorf("district = %q, want Mitino", j.District())
		}
	})

	t.Run("invalid input never reaches the store", func(t *testing.T) {
		jobs := &mockJobStore{}
		svc := newTestService(t, jobs, &mockProductStore{}, &mockExtractor{}, &mockEmbedder{})

		_, err := svc.Submit(ctx, "seller-1", textListing("   "), domjob.SellerContext{})
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("err = %v, want ErrInvalidInput", err)
		}
		if jobs.created != nil {
			t.Error("invalid job was persisted")
		}
	})
}

func TestProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path publishes a product", func(t *testing.T) {
		loc, _ := geo.NewPoint(55.75, 37.61)
		seller := domjob.SellerContext{Location: &loc, District: "Arbat"}
		jobs := &mockJobStore{job: pendingJob(t, seller), claimOK: true}
		products := &mockProductStore{}
		ext := &mockExtractor{draft: goodDraft()}
		emb := &mockEmbedder{vec: []float32{0.1, 0.2, 0.3}}
		svc := newTestService(t, jobs, products, ext, emb)

		j, err := svc.Process(ctx, "job-1")
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		if j.Status() != domjob.StatusCompleted {
			t.Fatalf("status = %s, want completed", j.Status())
		}
		if products.created == nil {
			t.Fatal("no product was created")
		}
		p := products.created
		if p.Name() != "Honey" || p.SellerID() != "seller-1" {
			t.Errorf("product = %s/%s, want Honey/seller-1", p.Name(), p.SellerID())
		}
		if len(p.Embedding()) != 3 {
			t.Errorf("embedding len = %d, want 3", len(p.Embedding()))
		}
		if emb.gotText != p.EmbeddingText() {
			t.Errorf("embedded %q, want %q", emb.gotText, p.EmbeddingText())
		}
		if pt, ok := p.Location(); !ok || pt != loc {
			t.Errorf("product location = %v (%v), want seller's %v", pt, ok, loc)
		}
		if p.District() != "Arbat" {
			t.Errorf("product district = %q, want seller's Arbat", p.District())
		}
		if jobs.completedWith != p.ID() {
			t.Errorf("job completed with %q, want product id %q", jobs.completedWith, p.ID())
		}
	})

	t.Run("extraction failure lands in the job", func(t *testing.T) {
		jobs := &mockJobStore{job: pendingJob(t, domjob.SellerContext{}), claimOK: true}
		ext := &mockExtractor{err: errors.New("provider timeout")}
		svc := newTestService(t, jobs, &mockProductStore{}, ext, &mockEmbedder{})

		j, err := svc.Process(ctx, "job-1")
		if err != nil {
			t.Fatalf("Process returned error %v, failure belongs in the job", err)
		}
		if j.Status() != domjob.StatusFailed {
			t.Fatalf("status = %s, want failed", j.Status())
		}
		if !strings.Contains(j.ErrorMessage(), "provider timeout") {
			t.Errorf("error message %q misses the cause", j.ErrorMessage())
		}
	})

	t.Run("nameless draft fails the job", func(t *testing.T) {
		jobs := &mockJobStore{job: pendingJob(t, domjob.SellerContext{}), claimOK: true}
		ext := &mockExtractor{draft: domain.Draft{Description: "something"}}
		svc := newTestService(t, jobs, &mockProductStore{}, ext, &mockEmbedder{})

		j, err := svc.Process(ctx, "job-1")
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		if j.Status() != domjob.StatusFailed {
			t.Fatalf("status = %s, want failed", j.Status())
		}
		if !strings.Contains(j.ErrorMessage(), "sanitize draft") {
			t.Errorf("error message %q misses sanitize stage", j.ErrorMessage())
		}
	})

	t.Run("embedding failure fails the job", func(t *testing.T) {
		jobs := &mockJobStore{job: pendingJob(t, domjob.SellerContext{}), claimOK: true}
		ext := &mockExtractor{draft: goodDraft()}
		emb := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
		svc := newTestService(t, jobs, &mockProductStore{}, ext, emb)

		j, err := svc.Process(ctx, "job-1")
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		if j.Status() != domjob.StatusFailed {
			t.Fatalf("status = %s, want failed", j.Status())
		}
	})

	t.Run("product save failure fails the job", func(t *testing.T) {
		jobs := &mockJobStore{job: pendingJob(t, domjob.SellerContext{}), claimOK: true}
		products := &mockProductStore{err: errors.New("connection reset")}
		ext := &mockExtractor{draft: goodDraft()}
		emb := &mockEmbedder{vec: []float32{0.5}}
		svc := newTestService(t, jobs, products, ext, emb)

		j, err := svc.Process(ctx, "job-1")
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		if j.Status() != domjob.StatusFailed {
			t.Fatalf("status = %s, want failed", j.Status())
		}
		if !strings.Contains(j.ErrorMessage(), "save product") {
			t.Errorf("error message %q misses save stage", j.ErrorMessage())
		}
	})

	t.Run("lost claim race is an invalid transition", func(t *testing.T) {
		taken := pendingJob(t, domjob.SellerContext{})
		jobs := &mockJobStore{job: taken, claimOK: false}
		jobs.setStatus(domjob.StatusProcessing, "", "")
		svc := newTestService(t, jobs, &mockProductStore{}, &mockExtractor{}, &mockEmbedder{})

		_, err := svc.Process(ctx, "job-1")
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("err = %v, want ErrInvalidTransition", err)
		}
		if !IsBenignClaimRace(err) {
			t.Error("claim race must classify as benign")
		}
	})

	t.Run("unknown job", func(t *testing.T) {
		jobs := &mockJobStore{claimOK: false, getErr: domain.ErrJobNotFound}
		svc := newTestService(t, jobs, &mockProductStore{}, &mockExtractor{}, &mockEmbedder{})

		_, err := svc.Process(ctx, "ghost")
		if !errors.Is(err, domain.ErrJobNotFound) {
			t.Fatalf("err = %v, want ErrJobNotFound", err)
		}
		if IsBenignClaimRace(err) {
			t.Error("missing job is not a benign race")
		}
	})

	t.Run("counts outcomes", func(t *testing.T) {
		counter := prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "test_ingest_jobs_total"},
			[]string{"status"},
		)
		jobs := &mockJobStore{job: pendingJob(t, domjob.SellerContext{}), claimOK: true}
		ext := &mockExtractor{draft: goodDraft()}
		emb := &mockEmbedder{vec: []float32{0.5}}
		svc := newTestService(t, jobs, &mockProductStore{}, ext, emb).WithMetrics(counter)

		if _, err := svc.Process(ctx, "job-1"); err != nil {
			t.Fatalf("Process: %v", err)
		}
		if got := testutil.ToFloat64(counter.WithLabelValues("completed")); got != 1 {
			t.Errorf("completed counter = %f, want 1", got)
		}
	})
}

func TestProcess_ImageEnrichment(t *testing.T) {
	ctx := context.Background()

	t.Run("fills a missing image", func(t *testing.T) {
		jobs := &mockJobStore{job: pendingJob(t, domjob.SellerContext{}), claimOK: true}
		products := &mockProductStore{}
		finder := &mockImageFinder{urls: []string{"https://img.example/honey.jpg", "https://img.example/honey-2.jpg"}}
		svc := newTestService(t, jobs, products, &mockExtractor{draft: goodDraft()}, &mockEmbedder{vec: []float32{1}}).
			WithImageFinder(finder)

		if _, err := svc.Process(ctx, "job-1"); err != nil {
			t.Fatalf("Process: %v", err)
		}
		if !finder.called {
			t.Fatal("image finder was not consulted")
		}
		if got := products.created.ImageURL(); got != "https://img.example/honey.jpg" {
			t.Errorf("image url = %q", got)
		}
	})

	t.Run("keeps the extracted image", func(t *testing.T) {
		draft := goodDraft()
		draft.ImageURL = "https://seller.example/own.jpg"
		jobs := &mockJobStore{job: pendingJob(t, domjob.SellerContext{}), claimOK: true}
		products := &mockProductStore{}
		finder := &mockImageFinder{urls: []string{"https://img.example/other.jpg"}}
		svc := newTestService(t, jobs, products, &mockExtractor{draft: draft}, &mockEmbedder{vec: []float32{1}}).
			WithImageFinder(finder)

		if _, err := svc.Process(ctx, "job-1"); err != nil {
			t.Fatalf("Process: %v", err)
		}
		if finder.called {
			t.Error("finder consulted although the draft had an image")
		}
		if got := products.created.ImageURL(); got != "https://seller.example/own.jpg" {
			t.Errorf("image url = %q", got)
		}
	})

	t.Run("no results is not a failure", func(t *testing.T) {
		jobs := &mockJobStore{job: pendingJob(t, domjob.SellerContext{}), claimOK: true}
		products := &mockProductStore{}
		finder := &mockImageFinder{}
		svc := newTestService(t, jobs, products, &mockExtractor{draft: goodDraft()}, &mockEmbedder{vec: []float32{1}}).
			WithImageFinder(finder)

		j, err := svc.Process(ctx, "job-1")
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		if j.Status() != domjob.StatusCompleted {
			t.Fatalf("status = %s, want completed", j.Status())
		}
	})

	t.Run("lookup failure does not fail the listing", func(t *testing.T) {
		jobs := &mockJobStore{job: pendingJob(t, domjob.SellerContext{}), claimOK: true}
		products := &mockProductStore{}
		finder := &mockImageFinder{err: errors.New("blocked")}
		svc := newTestService(t, jobs, products, &mockExtractor{draft: goodDraft()}, &mockEmbedder{vec: []float32{1}}).
			WithImageFinder(finder)

		j, err := svc.Process(ctx, "job-1")
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		if j.Status() != domjob.StatusCompleted {
			t.Fatalf("status = %s, want completed", j.Status())
		}
		if got := products.created.ImageURL(); got != "" {
			t.Errorf("image url = %q, want empty", got)
		}
	})
}

func TestResubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("failed job spawns a fresh pending one", func(t *testing.T) {
		jobs := &mockJobStore{job: pendingJob(t, domjob.SellerContext{District: "Mitino"})}
		jobs.setStatus(domjob.StatusFailed, "", "provider down")
		disp := &mockDispatcher{accept: true}
		svc := newTestService(t, jobs, &mockProductStore{}, &mockExtractor{}, &mockEmbedder{}).
			WithDispatcher(disp)

		j, err := svc.Resubmit(ctx, "job-1")
		if err != nil {
			t.Fatalf("Resubmit: %v", err)
		}
		if j.ID() == "job-1" {
			t.Error("retry reused the failed job's id")
		}
		if j.Status() != domjob.StatusPending || j.ErrorMessage() != "" {
			t.Errorf("got status=%s error=%q, want clean pending job", j.Status(), j.ErrorMessage())
		}
		// Заявка копируется целиком.
		if j.SellerID() != "seller-1" || j.Input().Text != "selling fresh honey" || j.District() != "Mitino" {
			t.Errorf("retry lost the submission: seller=%q text=%q district=%q",
				j.SellerID(), j.Input().Text, j.District())
		}
		if jobs.created == nil || jobs.created.ID() != j.ID() {
			t.Error("retry job was not persisted")
		}
		if len(disp.jobIDs) != 1 || disp.jobIDs[0] != j.ID() {
			t.Errorf("dispatched %v, want [%s]", disp.jobIDs, j.ID())
		}
	})

	t.Run("non-failed source is rejected", func(t *testing.T) {
		jobs := &mockJobStore{job: pendingJob(t, domjob.SellerContext{})}
		jobs.setStatus(domjob.StatusCompleted, "prod-1", "")
		disp := &mockDispatcher{accept: true}
		svc := newTestService(t, jobs, &mockProductStore{}, &mockExtractor{}, &mockEmbedder{}).
			WithDispatcher(disp)

		_, err := svc.Resubmit(ctx, "job-1")
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("err = %v, want ErrInvalidTransition", err)
		}
		if jobs.created != nil {
			t.Error("rejected resubmit created a job")
		}
		if len(disp.jobIDs) != 0 {
			t.Error("rejected resubmit was dispatched")
		}
	})

	t.Run("unknown job propagates not found", func(t *testing.T) {
		jobs := &mockJobStore{getErr: domain.ErrJobNotFound}
		svc := newTestService(t, jobs, &mockProductStore{}, &mockExtractor{}, &mockEmbedder{})

		_, err := svc.Resubmit(ctx, "job-404")
		if !errors.Is(err, domain.ErrJobNotFound) {
			t.Fatalf("err = %v, want ErrJobNotFound", err)
		}
	})
}

func TestProcessSync(t *testing.T) {
	ctx := context.Background()

	jobs := &mockJobStore{claimOK: true}
	products := &mockProductStore{}
	disp := &mockDispatcher{accept: true}
	svc := New(jobs, products, &mockExtractor{draft: goodDraft()}, &mockEmbedder{vec: []float32{1, 2}}, zap.NewNop()).
		WithDispatcher(disp)

	loc, _ := geo.NewPoint(48.85, 2.35)
	j, err := svc.ProcessSync(ctx, "seller-2", textListing("vintage lamp"), domjob.SellerContext{Location: &loc})
	if err != nil {
		t.Fatalf("ProcessSync: %v", err)
	}
	if j.Status() != domjob.StatusCompleted {
		t.Fatalf("status = %s, want completed", j.Status())
	}
	if j.ProductID() == "" {
		t.Error("completed job misses the product id")
	}
	if products.created == nil {
		t.Fatal("no product created")
	}
	if pt, ok := products.created.Location(); !ok || pt != loc {
		t.Errorf("product location = %v (%v), want %v", pt, ok, loc)
	}
	// Синхронный путь не должен отдавать работу воркерам.
	if len(disp.jobIDs) != 0 {
		t.Errorf("sync ingestion dispatched %v", disp.jobIDs)
	}
}

func TestStatusAndPending(t *testing.T) {
	ctx := context.Background()

	jobs := &mockJobStore{job: pendingJob(t, domjob.SellerContext{})}
	jobs.pending = []domjob.Job{jobs.job}
	svc := newTestService(t, jobs, &mockProductStore{}, &mockExtractor{}, &mockEmbedder{})

	j, err := svc.Status(ctx, "job-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if j.ID() != "job-1" {
		t.Errorf("id = %s", j.ID())
	}

	list, err := svc.PendingJobs(ctx, 10)
	if err != nil {
		t.Fatalf("PendingJobs: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("pending = %d, want 1", len(list))
	}
}
