package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MaterialItem is one line of materials consumed during completion.
// Quantity × UnitCost must equal TotalCost within the material tolerance.
type MaterialItem struct {
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unitCost"`
	TotalCost decimal.Decimal `json:"totalCost"`
}

// MaterialItems is stored as a JSONB column.
type MaterialItems []MaterialItem

// Value implements driver.Valuer.
func (m MaterialItems) Value() (driver.Value, error) {
	if m == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *MaterialItems) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported material items type %T", src)
	}
}

// ChecklistItem is one inspected point of a quality check.
type ChecklistItem struct {
	Item     string `json:"item"`
	Passed   bool   `json:"passed"`
	Critical bool   `json:"critical"`
	Remarks  string `json:"remarks,omitempty"`
}

// Checklist is stored as a JSONB column.
type Checklist []ChecklistItem

// Value implements driver.Valuer.
func (c Checklist) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner.
func (c *Checklist) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("unsupported checklist type %T", src)
	}
}

// CompletionRecord is the terminal work record of a request.
// Exactly one exists per request; it freezes once a certificate is issued.
type CompletionRecord struct {
	ID          string          `db:"id" json:"id"`
	RequestID   string          `db:"request_id" json:"requestId"`
	CompletedBy string          `db:"completed_by" json:"completedBy"`
	WorkNotes   string          `db:"work_notes" json:"workNotes"`
	LaborHours  float64         `db:"labor_hours" json:"laborHours"`
	Materials   MaterialItems   `db:"materials" json:"materials"`
	ActualCost  decimal.Decimal `db:"actual_cost" json:"actualCost"`
	CompletedAt time.Time       `db:"completed_at" json:"completedAt"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}

// QualityCheck records an inspection of completed work.
type QualityCheck struct {
	ID             string     `db:"id" json:"id"`
	CompletionID   string     `db:"completion_id" json:"completionId"`
	CheckedBy      string     `db:"checked_by" json:"checkedBy"`
	Passed         bool       `db:"passed" json:"passed"`
	Checklist      Checklist  `db:"checklist" json:"checklist"`
	ReworkRequired bool       `db:"rework_required" json:"reworkRequired"`
	ReworkDetails  *string    `db:"rework_details" json:"reworkDetails,omitempty"`
	ReworkDeadline *time.Time `db:"rework_deadline" json:"reworkDeadline,omitempty"`
	CheckedAt      time.Time  `db:"checked_at" json:"checkedAt"`
}

// Certificate attests completed and verified maintenance work.
type Certificate struct {
	ID                string     `db:"id" json:"id"`
	CompletionID      string     `db:"completion_id" json:"completionId"`
	CertificateNumber string     `db:"certificate_number" json:"certificateNumber"`
	WorkSummary       string     `db:"work_summary" json:"workSummary"`
	WorkStartDate     time.Time  `db:"work_start_date" json:"workStartDate"`
	CompletionDate    time.Time  `db:"completion_date" json:"completionDate"`
	VerificationDate  time.Time  `db:"verification_date" json:"verificationDate"`
	IssueDate         time.Time  `db:"issue_date" json:"issueDate"`
	IssuedBy          string     `db:"issued_by" json:"issuedBy"`
	VerifiedBy        string     `db:"verified_by" json:"verifiedBy"`
	WarrantyApplies   bool       `db:"warranty_applies" json:"warrantyApplies"`
	WarrantyMonths    *int       `db:"warranty_months" json:"warrantyMonths,omitempty"`
	WarrantyTerms     *string    `db:"warranty_terms" json:"warrantyTerms,omitempty"`
	WarrantyUntil     *time.Time `db:"warranty_until" json:"warrantyUntil,omitempty"`
	FilePath          *string    `db:"file_path" json:"filePath,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
}
