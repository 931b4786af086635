package models

// PushResult là kết quả đẩy một job lên DSpace.
// Batch push gom các PushResult độc lập, một job fail không chặn job khác.
type PushResult struct {
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
	Status   string `json:"status"` // uploaded | upload_failed
	ItemID   string `json:"item_id,omitempty"`
	Handle   string `json:"handle,omitempty"`
	Error    string `json:"error,omitempty"`
}
