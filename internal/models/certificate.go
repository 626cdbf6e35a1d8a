package models

import "time"

// Certificate is an issued no-dues clearance certificate. The blockchain
// fields are opaque strings filled by an external service; this system only
// stores and displays them.
type Certificate struct {
	ID               string     `db:"id" json:"id"`
	FormID           string     `db:"form_id" json:"form_id"`
	RegistrationNo   string     `db:"registration_no" json:"registration_no"`
	SerialNo         string     `db:"serial_no" json:"serial_no"`
	FilePath         string     `db:"file_path" json:"-"`
	VerificationHash *string    `db:"verification_hash" json:"verification_hash,omitempty"`
	BlockchainTxID   *string    `db:"blockchain_tx_id" json:"blockchain_tx_id,omitempty"`
	IssuedAt         time.Time  `db:"issued_at" json:"issued_at"`
	RevokedAt        *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
}
