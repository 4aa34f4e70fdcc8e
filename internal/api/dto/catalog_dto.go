package dto

// SupportLevelResponse describes a support level's thresholds in minutes.
type SupportLevelResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Critical      *int   `json:"critical"`
	CriticalColor string `json:"critical_color"`
	Escalate      *int   `json:"escalate"`
	EscalateColor string `json:"escalate_color"`
	Normal        *int   `json:"normal"`
	NormalColor   string `json:"normal_color"`
	Level         *int   `json:"level"`
	Color         string `json:"color"`
}

// EntitlementResponse is a purchasable tier. Price is a decimal string.
type EntitlementResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

// CompanyEntitlementResponse is a company's entitlement with its expiry flag.
type CompanyEntitlementResponse struct {
	ID           int64                 `json:"id"`
	CompanyID    int64                 `json:"company_id"`
	Entitlement  *EntitlementResponse  `json:"entitlement"`
	SupportLevel *SupportLevelResponse `json:"support_level"`
	StartDate    *string               `json:"start_date"`
	Duration     string                `json:"duration"`
	Expired      bool                  `json:"expired"`
}
