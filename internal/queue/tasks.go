package queue

const (
	TypeReportUpdatedMail = "notify:report_updated"
)

// QueueDefault is the only queue the notification worker serves.
const QueueDefault = "default"

// ReportUpdatedPayload carries everything needed to render one notification,
// captured when the batch is dispatched so later settings edits do not change
// mail already in flight.
type ReportUpdatedPayload struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	UpdateDate string `json:"update_date"`
	UpdateTime string `json:"update_time"`
	Title      string `json:"title"`
	Intro      string `json:"intro"`
	ButtonText string `json:"button_text"`
	Footer     string `json:"footer,omitempty"`
}
