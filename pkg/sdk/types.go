package bazar

import "time"

// Input types accepted by the ingestion endpoints.
const (
	InputText  = "text"
	InputVoice = "voice"
	InputImage = "image"
)

// Job statuses reported by the ingestion endpoints.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// SearchRequest is the body of POST /api/search. Latitude and
// longitude only count as a buyer location when both are set.
type SearchRequest struct {
	Query         string   `json:"query"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	District      string   `json:"district,omitempty"`
	Category      string   `json:"category,omitempty"`
	MaxDistanceKm float64  `json:"max_distance_km,omitempty"`
	Limit         int      `json:"limit,omitempty"`
}

// SearchResult is one ranked hit. DistanceKm is nil when either side
// has no coordinates.
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
// Payload carries voice or image bytes (base64 on the wire); text
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

// At pins the seller location on the request and returns it, so
// requests compose: bazar.TextListing(...).At(26.9, 75.8, "Jaipur").
func (r IngestRequest) At(lat, lon float64, district string) IngestRequest {
	r.Latitude, r.Longitude = &lat, &lon
	r.District = district
	return r
}

// TextListing builds an ingestion request for a typed description.
func TextListing(sellerID, text string) IngestRequest {
	return IngestRequest{SellerID: sellerID, InputType: InputText, Text: text}
}

// VoiceListing builds an ingestion request for a recorded description.
func VoiceListing(sellerID string, audio []byte, filename string) IngestRequest {
	return IngestRequest{SellerID: sellerID, InputType: InputVoice, Payload: audio, Filename: filename}
}

// PhotoListing builds an ingestion request for a product photo.
func PhotoListing(sellerID string, image []byte, filename string) IngestRequest {
	return IngestRequest{SellerID: sellerID, InputType: InputImage, Payload: image, Filename: filename}
}

// Job is an ingestion job snapshot.
type Job struct {
	JobID        string    `json:"job_id"`
	Status       string    `json:"status"`
	InputType    string    `json:"input_type"`
	ProductID    string    `json:"product_id,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Done reports whether the job reached a terminal status.
func (j Job) Done() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

// Product is a published listing.
type Product struct {
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

// ProductList is the body of GET /api/products.
type ProductList struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"` // component → "ok"/"error"
}
