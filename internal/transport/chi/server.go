package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bazar-cloud/bazar/internal/domain"
	"github.com/bazar-cloud/bazar/internal/domain/geo"
	domjob "github.com/bazar-cloud/bazar/internal/domain/job"
	"github.com/bazar-cloud/bazar/internal/domain/product"
	domsearch "github.com/bazar-cloud/bazar/internal/domain/search"
	cataloguc "github.com/bazar-cloud/bazar/internal/usecase/catalog"
	healthuc "github.com/bazar-cloud/bazar/internal/usecase/health"
	ingestuc "github.com/bazar-cloud/bazar/internal/usecase/ingest"
	searchuc "github.com/bazar-cloud/bazar/internal/usecase/search"
)

// ErrorCode classifies an API error for machine handling.
type ErrorCode string

const (
	CodeBadRequest              ErrorCode = "bad_request"
	CodeValidationFailed        ErrorCode = "validation_failed"
	CodeUnauthorized            ErrorCode = "unauthorized"
	CodeProductNotFound         ErrorCode = "product_not_found"
	CodeJobNotFound             ErrorCode = "job_not_found"
	CodeInvalidTransition       ErrorCode = "invalid_transition"
	CodeEmbeddingProviderError  ErrorCode = "embedding_provider_error"
	CodeExtractionProviderError ErrorCode = "extraction_provider_error"
	CodeNotImplemented          ErrorCode = "not_implemented"
	CodeInternalError           ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchRequest is the body of POST /api/search.
// Latitude and longitude only count as a buyer location when both are
// present; a single-sided pair is treated as no location.
type SearchRequest struct {
	Query         string   `json:"query"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	District      string   `json:"district,omitempty"`
	Category      string   `json:"category,omitempty"`
	MaxDistanceKm float64  `json:"max_distance_km,omitempty"`
	Limit         int      `json:"limit,omitempty"`
}

// SearchResult is one ranked hit. DistanceKm is absent when either
// side has no coordinates.
type SearchResult struct {
	ProductID       string   `json:"product_id"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Price           float64  `json:"price"`
	Quantity        int      `json:"quantity"`
	Unit            string   `json:"unit"`
	Category        string   `json:"category,omitempty"`
	District        string   `json:"district,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
	SimilarityScore float64  `json:"similarity_score"`
	SearchScore     float64  `json:"search_score"`
	DistanceKm      *float64 `json:"distance_km,omitempty"`
	Rank            int      `json:"rank"`
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// IngestRequest is the body of POST /api/ingest and /api/ingest/sync.
// Payload carries voice or image bytes, base64-encoded in JSON; text
// submissions use the Text field instead.
type IngestRequest struct {
	SellerID  string   `json:"seller_id"`
	InputType string   `json:"input_type"`
	Text      string   `json:"text,omitempty"`
	Payload   []byte   `json:"payload,omitempty"`
	Filename  string   `json:"filename,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	District  string   `json:"district,omitempty"`
}

// JobResponse is the ingestion job snapshot returned by the ingest and
// job endpoints.
type JobResponse struct {
	JobID        string    `json:"job_id"`
	Status       string    `json:"status"`
	InputType    string    `json:"input_type"`
	ProductID    string    `json:"product_id,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProductResponse is a published listing.
type ProductResponse struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"seller_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	Unit        string    `json:"unit"`
	Category    string    `json:"category,omitempty"`
	District    string    `json:"district,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	Sold        bool      `json:"sold"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductListResponse is the body of GET /api/products.
type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API over the marketplace usecases.
type Server struct {
	search        *searchuc.Service
	ingest        *ingestuc.Service
	catalog       *cataloguc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	ingest *ingestuc.Service,
	catalog *cataloguc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:  search,
		ingest:  ingest,
		catalog: catalog,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		transitionHandler,
		sentinelHandler(domain.ErrProductNotFound, http.StatusNotFound, CodeProductNotFound),
		sentinelHandler(domain.ErrJobNotFound, http.StatusNotFound, CodeJobNotFound),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidCoordinate, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrExtractionProviderError, http.StatusBadGateway, CodeExtractionProviderError),
		sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, CodeNotImplemented),
	}
	return s
}

// RegisterRoutes mounts all API endpoints on the router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/api/search", s.Search)
	r.Post("/api/ingest", s.CreateIngestionJob)
	r.Post("/api/ingest/sync", s.IngestSync)
	r.Get("/api/jobs/{jobID}", s.GetIngestionJob)
	r.Post("/api/jobs/{jobID}/resubmit", s.ResubmitIngestionJob)
	r.Get("/api/products", s.ListProducts)
	r.Get("/api/products/{productID}", s.GetProduct)
	r.Post("/api/products/{productID}/sold", s.MarkProductSold)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Search handles POST /api/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	loc, err := pointFromRequest(req.Latitude, req.Longitude)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	q, err := domsearch.New(
		req.Query,
		loc,
		domsearch.Filter{District: req.District, Category: req.Category},
		req.MaxDistanceKm,
		req.Limit,
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	matches, err := s.search.Search(r.Context(), &q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponseFrom(matches))
}

// CreateIngestionJob handles POST /api/ingest. The job is queued and
// the seller polls GET /api/jobs/{jobID} for the outcome.
func (s *Server) CreateIngestionJob(w http.ResponseWriter, r *http.Request) {
	req, in, seller, ok := s.decodeIngest(w, r)
	if !ok {
		return
	}

	j, err := s.ingest.Submit(r.Context(), req.SellerID, in, seller)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, jobResponseFrom(j))
}

// IngestSync handles POST /api/ingest/sync: the whole pipeline runs
// inline and the response carries the terminal job snapshot. A failed
// pipeline is still a created job, so it answers 200 with the failure
// detail rather than an error body.
func (s *Server) IngestSync(w http.ResponseWriter, r *http.Request) {
	req, in, seller, ok := s.decodeIngest(w, r)
	if !ok {
		return
	}

	j, err := s.ingest.ProcessSync(r.Context(), req.SellerID, in, seller)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	status := http.StatusOK
	if j.Status() == domjob.StatusCompleted {
		status = http.StatusCreated
	}
	writeJSON(w, status, jobResponseFrom(j))
}

// decodeIngest parses and validates the shared ingest request body.
func (s *Server) decodeIngest(w http.ResponseWriter, r *http.Request) (IngestRequest, domain.RawListing, domjob.SellerContext, bool) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return IngestRequest{}, domain.RawListing{}, domjob.SellerContext{}, false
	}

	if req.SellerID == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "seller_id is required")
		return IngestRequest{}, domain.RawListing{}, domjob.SellerContext{}, false
	}

	loc, err := pointFromRequest(req.Latitude, req.Longitude)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return IngestRequest{}, domain.RawListing{}, domjob.SellerContext{}, false
	}

	in := domain.RawListing{
		Modality: domain.Modality(req.InputType),
		Text:     req.Text,
		Payload:  req.Payload,
		Filename: req.Filename,
	}
	seller := domjob.SellerContext{Location: loc, District: req.District}
	return req, in, seller, true
}

// GetIngestionJob handles GET /api/jobs/{jobID}.
func (s *Server) GetIngestionJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.ingest.Status(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, jobResponseFrom(j))
}

// ResubmitIngestionJob handles POST /api/jobs/{jobID}/resubmit.
// Only failed jobs can be resubmitted; the response carries the new
// pending job, the failed one keeps its record.
func (s *Server) ResubmitIngestionJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.ingest.Resubmit(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, jobResponseFrom(j))
}

// ListProducts handles GET /api/products.
func (s *Server) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := intParam(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "limit must be an integer")
		return
	}
	offset, err := intParam(q.Get("offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "offset must be an integer")
		return
	}

	page, err := s.catalog.List(r.Context(), q.Get("category"), q.Get("include_sold") == "true", limit, offset)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]ProductResponse, len(page.Products))
	for i, p := range page.Products {
		items[i] = productResponseFrom(p)
	}

	writeJSON(w, http.StatusOK, ProductListResponse{Products: items, Total: page.Total})
}

// GetProduct handles GET /api/products/{productID}.
func (s *Server) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.catalog.Get(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, productResponseFrom(p))
}

// MarkProductSold handles POST /api/products/{productID}/sold.
func (s *Server) MarkProductSold(w http.ResponseWriter, r *http.Request) {
	p, err := s.catalog.MarkSold(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, productResponseFrom(p))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrProductNotFound,
		domain.ErrJobNotFound,
		domain.ErrInvalidTransition,
		domain.ErrInvalidInput,
		domain.ErrDimensionMismatch,
		domain.ErrInvalidCoordinate,
		domain.ErrEmbeddingProviderError,
		domain.ErrExtractionProviderError,
		domain.ErrNotImplemented,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// transitionHandler handles ErrInvalidTransition with the offending statuses.
func transitionHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrInvalidTransition) {
		return false
	}
	var te *domain.TransitionError
	if errors.As(err, &te) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"code":    CodeInvalidTransition,
			"message": msg,
			"from":    te.From,
			"to":      te.To,
		})
		return true
	}
	writeError(w, http.StatusConflict, CodeInvalidTransition, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

// pointFromRequest builds the optional location. A single-sided pair
// counts as no location, matching how listings without coordinates are
// treated everywhere else.
func pointFromRequest(lat, lon *float64) (*geo.Point, error) {
	if lat == nil || lon == nil {
		return nil, nil
	}
	pt, err := geo.NewPoint(*lat, *lon)
	if err != nil {
		return nil, err
	}
	return &pt, nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func searchResponseFrom(matches []domsearch.Match) SearchResponse {
	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		p := m.Product
		res := SearchResult{
			ProductID:       p.ID(),
			Name:            p.Name(),
			Description:     p.Description(),
			Price:           p.Price(),
			Quantity:        p.Quantity(),
			Unit:            p.Unit(),
			Category:        p.Category(),
			District:        p.District(),
			ImageURL:        p.ImageURL(),
			SimilarityScore: m.Similarity,
			SearchScore:     m.Score,
			DistanceKm:      m.DistanceKm,
			Rank:            i + 1,
		}
		results[i] = res
	}
	return SearchResponse{Results: results, Count: len(results)}
}

func jobResponseFrom(j domjob.Job) JobResponse {
	return JobResponse{
		JobID:        j.ID(),
		Status:       string(j.Status()),
		InputType:    j.Input().Modality.String(),
		ProductID:    j.ProductID(),
		ErrorMessage: j.ErrorMessage(),
		CreatedAt:    j.CreatedAt(),
		UpdatedAt:    j.UpdatedAt(),
	}
}

func productResponseFrom(p product.Product) ProductResponse {
	resp := ProductResponse{
		ID:          p.ID(),
		SellerID:    p.SellerID(),
		Name:        p.Name(),
		Description: p.Description(),
		Price:       p.Price(),
		Quantity:    p.Quantity(),
		Unit:        p.Unit(),
		Category:    p.Category(),
		District:    p.District(),
		ImageURL:    p.ImageURL(),
		Sold:        p.Sold(),
		CreatedAt:   p.CreatedAt(),
		UpdatedAt:   p.UpdatedAt(),
	}
	if pt, ok := p.Location(); ok {
		lat, lon := pt.Lat, pt.Lon
		resp.Latitude = &lat
		resp.Longitude = &lon
	}
	return resp
}
