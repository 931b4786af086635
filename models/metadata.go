package models

// MetadataField là một dòng metadata Dublin Core của tài liệu.
// Key KHÔNG unique (vd nhiều dc.subject) nên metadata luôn là slice có thứ tự,
// không bao giờ dùng map.
type MetadataField struct {
	Key      string  `json:"key"`
	Value    string  `json:"value"`
	Language *string `json:"language"`
}

// FindValue trả về value của key đầu tiên khớp, "" nếu không có.
func FindValue(fields []MetadataField, key string) string {
	for _, f := range fields {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}
