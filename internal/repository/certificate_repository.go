package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/nodues-go-api/internal/models"
)

const certificateColumns = `id, form_id, registration_no, serial_no, file_path,
       verification_hash, blockchain_tx_id, issued_at, revoked_at`

// CertificateRepository persists issued clearance certificates.
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository constructs the repository.
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// Create inserts an issued certificate row.
func (r *CertificateRepository) Create(ctx context.Context, cert *models.Certificate) error {
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	if cert.IssuedAt.IsZero() {
		cert.IssuedAt = time.Now().UTC()
	}
	const query = `INSERT INTO certificates
	(id, form_id, registration_no, serial_no, file_path, verification_hash, blockchain_tx_id, issued_at, revoked_at)
	VALUES (:id, :form_id, :registration_no, :serial_no, :file_path, :verification_hash, :blockchain_tx_id, :issued_at, :revoked_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cert); err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

// GetByFormID fetches the certificate issued for a form.
func (r *CertificateRepository) GetByFormID(ctx context.Context, formID string) (*models.Certificate, error) {
	query := fmt.Sprintf(`SELECT %s FROM certificates WHERE form_id = $1`, certificateColumns)
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, formID); err != nil {
		return nil, err
	}
	return &cert, nil
}

// GetBySerial fetches a certificate by its serial number.
func (r *CertificateRepository) GetBySerial(ctx context.Context, serialNo string) (*models.Certificate, error) {
	query := fmt.Sprintf(`SELECT %s FROM certificates WHERE serial_no = $1`, certificateColumns)
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, serialNo); err != nil {
		return nil, err
	}
	return &cert, nil
}
