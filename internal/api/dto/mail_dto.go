package dto

// IncomingMailRequest is posted by the mail gateway as a form or JSON.
type IncomingMailRequest struct {
	From    string `json:"from" form:"from"`
	Subject string `json:"subject" form:"subject"`
	Body    string `json:"body" form:"body"`
}
