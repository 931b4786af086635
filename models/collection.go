package models

// Collection là một collection DSpace, kèm ngữ cảnh community.
// Tên collection KHÔNG unique toàn hệ thống (nhiều khoa cùng có "Khóa luận tốt nghiệp"),
// chỉ unique trong phạm vi (community, name) — nên mọi thao tác match/hiển thị
// đều phải mang theo communityName/fullContext.
type Collection struct {
	ID          string `json:"id"`
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	Handle      string `json:"handle"`
	Description string `json:"description"`
	Type        string `json:"type,omitempty"`

	CommunityID     string `json:"communityId,omitempty"`
	CommunityName   string `json:"communityName,omitempty"`
	CommunityHandle string `json:"communityHandle,omitempty"`

	// "Khóa luận tốt nghiệp (Khoa Công nghệ thông tin)"
	DisplayName string `json:"displayName,omitempty"`
	// "Khoa Công nghệ thông tin > Khóa luận tốt nghiệp"
	FullContext string `json:"fullContext,omitempty"`

	Subjects           []string `json:"subjects"`
	ArchivedItemsCount int      `json:"archivedItemsCount"`
}

// Item là item DSpace đã được normalize từ response JSON/XML của mọi phiên bản.
type Item struct {
	ItemID   string `json:"itemId"`
	ID       string `json:"id"`
	UUID     string `json:"uuid,omitempty"`
	Handle   string `json:"handle,omitempty"`
	Name     string `json:"name,omitempty"`
	Archived string `json:"archived,omitempty"`
	Type     string `json:"type,omitempty"`
}

// Bitstream là file đính kèm đã upload lên một item.
type Bitstream struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	SizeBytes int64  `json:"sizeBytes,omitempty"`
}
