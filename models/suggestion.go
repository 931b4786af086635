package models

// Document là một tài liệu đưa vào engine gợi ý collection.
type Document struct {
	JobID      string          `json:"jobId"`
	FolderName string          `json:"folderName"`
	Title      string          `json:"title"`
	Metadata   []MetadataField `json:"metadata"`
}

// Suggestion là gợi ý collection cho một tài liệu.
// Confidence 0-100, càng cao càng chắc. Reasoning ngắn gọn để người duyệt đọc.
type Suggestion struct {
	DocumentIndex  int    `json:"documentIndex"`
	JobID          string `json:"jobId,omitempty"`
	FolderName     string `json:"folderName,omitempty"`
	CollectionID   string `json:"collectionId"`
	CollectionName string `json:"collectionName"`
	CommunityName  string `json:"communityName,omitempty"`
	Confidence     int    `json:"confidence"`
	Reasoning      string `json:"reasoning"`
}
