package models

// Trạng thái job OCR (do service OCR quản lý)
const (
	JobQueued     = "queued"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
	JobCancelled  = "cancelled"
)

// Trạng thái đẩy lên DSpace của một job
const (
	DSpacePending      = "pending"
	DSpaceUploading    = "uploading"
	DSpaceUploaded     = "uploaded"
	DSpaceUploadFailed = "upload_failed"
)

// Job là một lần xử lý OCR, mirror từ service OCR.
// Các field dspace_* là tracking fields lưu bên OCR service để UI reload vẫn giữ trạng thái.
type Job struct {
	JobID      string  `json:"job_id"`
	Filename   string  `json:"filename"`
	Status     string  `json:"status"`
	Progress   float64 `json:"progress"`
	CreatedAt  string  `json:"created_at,omitempty"`
	FinishedAt string  `json:"finished_at,omitempty"`
	Error      string  `json:"error,omitempty"`

	Metadata *JobMetadata `json:"metadata,omitempty"`

	DSpaceCollectionID   string `json:"dspace_collection_id,omitempty"`
	DSpaceCollectionName string `json:"dspace_collection_name,omitempty"`
	DSpaceCommunityName  string `json:"dspace_community_name,omitempty"`
	DSpaceStatus         string `json:"dspace_status,omitempty"`
	DSpaceItemID         string `json:"dspace_item_id,omitempty"`
	DSpaceHandle         string `json:"dspace_handle,omitempty"`
	DSpaceError          string `json:"dspace_error,omitempty"`
}

// JobMetadata bọc metadata khi list jobs với include_metadata=true
type JobMetadata struct {
	Metadata []MetadataField `json:"metadata"`
}

// Terminal báo job đã kết thúc, không còn update trạng thái nữa.
func (j Job) Terminal() bool {
	switch j.Status {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}

// JobUpdate là delta trạng thái gửi qua WebSocket cho trang danh sách.
type JobUpdate struct {
	JobID    string  `json:"job_id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Error    string  `json:"error,omitempty"`
}

// DSpaceTracking là payload ghi ngược trạng thái đẩy DSpace về OCR service.
type DSpaceTracking struct {
	CollectionID   string `json:"collection_id,omitempty"`
	CollectionName string `json:"collection_name,omitempty"`
	CommunityName  string `json:"community_name,omitempty"`
	Status         string `json:"status,omitempty"`
	ItemID         string `json:"item_id,omitempty"`
	Handle         string `json:"handle,omitempty"`
	Error          string `json:"error,omitempty"`
}
