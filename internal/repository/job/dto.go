package job

import (
	"database/sql"
	"time"

	"github.com/bazar-cloud/bazar/internal/domain"
	"github.com/bazar-cloud/bazar/internal/domain/geo"
	domjob "github.com/bazar-cloud/bazar/internal/domain/job"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// scanJob hydrates a Job from one row of jobColumns.
func scanJob(row rowScanner) (domjob.Job, error) {
	var (
		id, sellerID, modality string
		inputText, filename    string
		payload                []byte
		lat, lon               sql.NullFloat64
		district, status       string
		productID, errMessage  string
		createdAt, updatedAt   time.Time
	)

	err := row.Scan(
		&id, &sellerID, &modality, &inputText, &payload, &filename,
		&lat, &lon, &district, &status, &productID, &errMessage, &createdAt, &updatedAt,
	)
	if err != nil {
		return domjob.Job{}, err
	}

	in := domain.RawListing{
		Modality: domain.Modality(modality),
		Text:     inputText,
		Payload:  payload,
		Filename: filename,
	}

	seller := domjob.SellerContext{District: district}
	if lat.Valid && lon.Valid {
		seller.Location = &geo.Point{Lat: lat.Float64, Lon: lon.Float64}
	}

	return domjob.Reconstruct(
		id, sellerID, in, seller, domjob.Status(status),
		productID, errMessage, createdAt, updatedAt,
	), nil
}
