package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin              = "LOGIN"
	AuditActionLogout             = "LOGOUT"
	AuditActionPasswordChange     = "PASSWORD_CHANGE"
	AuditActionOfficialCreate     = "OFFICIAL_CREATE"
	AuditActionApplicationCreate  = "APPLICATION_CREATE"
	AuditActionApplicationAssign  = "APPLICATION_ASSIGN"
	AuditActionApplicationComply  = "APPLICATION_COMPLIANCE"
	AuditActionApplicationDispose = "APPLICATION_DISPOSE"
	AuditActionAttachmentUpload   = "ATTACHMENT_UPLOAD"
	AuditActionExport             = "APPLICATION_EXPORT"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	OfficialID *string   `db:"official_id" json:"official_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	RequestID  string    `db:"request_id" json:"request_id,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
