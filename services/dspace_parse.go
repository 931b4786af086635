package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vnkhanh/dspace-ocr-admin/models"
)

// DSpace 6.x tùy version/cấu hình mà trả JSON hoặc XML, wrapped hoặc bare array.
// Quy tắc: sniff theo ký tự đầu tiên (bỏ whitespace) — '<' là XML, '{'/'[' là JSON —
// quyết định một lần ở boundary rồi normalize, không branch theo shape ở tầng sâu hơn.

var (
	xmlIDRe       = regexp.MustCompile(`<id>(\d+)</id>`)
	xmlUUIDRe     = regexp.MustCompile(`<uuid>([^<]+)</uuid>`)
	xmlHandleRe   = regexp.MustCompile(`<handle>([^<]+)</handle>`)
	xmlNameRe     = regexp.MustCompile(`<name>([^<]+)</name>`)
	xmlArchivedRe = regexp.MustCompile(`<archived>([^<]+)</archived>`)
	xmlSizeRe     = regexp.MustCompile(`<sizeBytes>(\d+)</sizeBytes>`)
	itemLinkRe    = regexp.MustCompile(`/rest/items/([0-9a-fA-F][0-9a-fA-F-]+)`)
)

// parseItemResponse normalize response tạo item / tra handle về models.Item.
// itemId lấy theo thứ tự ưu tiên: id → uuid → uuid nằm trong link "/rest/items/<uuid>".
func parseItemResponse(text string) (models.Item, error) {
	trimmed := strings.TrimSpace(text)

	switch {
	case strings.HasPrefix(trimmed, "<"):
		return parseItemXML(text)
	case strings.HasPrefix(trimmed, "{"), strings.HasPrefix(trimmed, "["):
		return parseItemJSON(trimmed)
	default:
		return models.Item{}, &ParseError{What: "response tạo item (format lạ)", Raw: truncate(text, detailPreviewLimit)}
	}
}

func parseItemXML(text string) (models.Item, error) {
	item := models.Item{Type: "item", Archived: "false"}

	if m := xmlIDRe.FindStringSubmatch(text); m != nil {
		item.ID = m[1]
	}
	if m := xmlUUIDRe.FindStringSubmatch(text); m != nil {
		item.UUID = m[1]
	}
	if m := xmlHandleRe.FindStringSubmatch(text); m != nil {
		item.Handle = m[1]
	}
	if m := xmlNameRe.FindStringSubmatch(text); m != nil {
		item.Name = m[1]
	}
	if m := xmlArchivedRe.FindStringSubmatch(text); m != nil {
		item.Archived = m[1]
	}

	item.ItemID = firstNonEmpty(item.ID, item.UUID)
	if item.ItemID == "" && item.Handle == "" {
		return models.Item{}, &ParseError{What: "XML item", Raw: truncate(text, detailPreviewLimit)}
	}
	return item, nil
}

func parseItemJSON(trimmed string) (models.Item, error) {
	var raw map[string]any
	if strings.HasPrefix(trimmed, "[") {
		var list []map[string]any
		if err := json.Unmarshal([]byte(trimmed), &list); err != nil || len(list) == 0 {
			return models.Item{}, &ParseError{What: "JSON item", Raw: truncate(trimmed, detailPreviewLimit)}
		}
		raw = list[0]
	} else if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return models.Item{}, &ParseError{What: "JSON item", Raw: truncate(trimmed, detailPreviewLimit)}
	}

	item := models.Item{
		ID:     stringField(raw, "id"),
		UUID:   stringField(raw, "uuid"),
		Handle: stringField(raw, "handle"),
		Name:   stringField(raw, "name"),
		Type:   stringField(raw, "type"),
	}
	if a := stringField(raw, "archived"); a != "" {
		item.Archived = a
	} else {
		item.Archived = "false"
	}

	item.ItemID = firstNonEmpty(item.ID, item.UUID)

	// Một số version chỉ trả link "/rest/items/<uuid>" thay vì id
	if item.ItemID == "" {
		if link := stringField(raw, "link"); link != "" {
			if m := itemLinkRe.FindStringSubmatch(link); m != nil {
				item.ItemID = m[1]
				item.UUID = m[1]
			}
		}
	}

	if item.ItemID == "" && item.Handle == "" {
		return models.Item{}, &ParseError{What: "JSON item (không có id/handle)", Raw: truncate(trimmed, detailPreviewLimit)}
	}
	return item, nil
}

func parseBitstreamResponse(text string) models.Bitstream {
	trimmed := strings.TrimSpace(text)

	if strings.HasPrefix(trimmed, "<") {
		bs := models.Bitstream{}
		if m := xmlIDRe.FindStringSubmatch(text); m != nil {
			bs.ID = m[1]
		}
		if m := xmlNameRe.FindStringSubmatch(text); m != nil {
			bs.Name = m[1]
		}
		if m := xmlSizeRe.FindStringSubmatch(text); m != nil {
			if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				bs.SizeBytes = n
			}
		}
		return bs
	}

	if strings.HasPrefix(trimmed, "{") {
		var raw map[string]any
		if err := json.Unmarshal([]byte(trimmed), &raw); err == nil {
			bs := models.Bitstream{
				ID:   stringField(raw, "id"),
				Name: stringField(raw, "name"),
			}
			if sz, ok := raw["sizeBytes"].(float64); ok {
				bs.SizeBytes = int64(sz)
			}
			return bs
		}
	}

	// DSpace đôi khi trả body rỗng/plain text khi upload thành công
	return models.Bitstream{}
}

// decodeObjectList normalize 3 shape response danh sách của DSpace:
// bare array, {<key>: [...]}, hoặc {_embedded: {<key>: [...]}}.
// Object đơn lẻ được bọc thành list 1 phần tử.
func decodeObjectList(text, key string) ([]map[string]any, error) {
	trimmed := strings.TrimSpace(text)

	if strings.HasPrefix(trimmed, "[") {
		var list []map[string]any
		if err := json.Unmarshal([]byte(trimmed), &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	if strings.HasPrefix(trimmed, "{") {
		var wrapper map[string]any
		if err := json.Unmarshal([]byte(trimmed), &wrapper); err != nil {
			return nil, err
		}
		if list := anyList(wrapper[key]); list != nil {
			return list, nil
		}
		if embedded, ok := wrapper["_embedded"].(map[string]any); ok {
			if list := anyList(embedded[key]); list != nil {
				return list, nil
			}
		}
		return []map[string]any{wrapper}, nil
	}

	return nil, fmt.Errorf("format response không nhận dạng được")
}

func anyList(v any) []map[string]any {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	list := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if obj, ok := item.(map[string]any); ok {
			list = append(list, obj)
		}
	}
	return list
}

// normalizeCollection map một object collection bất kỳ shape nào về models.Collection.
func normalizeCollection(raw map[string]any) models.Collection {
	col := models.Collection{
		ID:       firstString(raw, "id", "uuid"),
		UUID:     firstString(raw, "uuid", "id"),
		Name:     stringField(raw, "name"),
		Handle:   stringField(raw, "handle"),
		Type:     stringField(raw, "type"),
		Subjects: []string{},
	}

	// Description rải rác ở nhiều field tùy version
	col.Description = firstNonEmpty(
		stringField(raw, "introductoryText"),
		stringField(raw, "shortDescription"),
		metadataValue(raw, "dc.description"),
		metadataValue(raw, "dc.description.abstract"),
	)

	if n, ok := raw["numberItems"].(float64); ok {
		col.ArchivedItemsCount = int(n)
	} else if n, ok := raw["archivedItemsCount"].(float64); ok {
		col.ArchivedItemsCount = int(n)
	}

	if meta, ok := raw["metadata"].(map[string]any); ok {
		if subjects, ok := meta["dc.subject"].([]any); ok {
			for _, s := range subjects {
				switch v := s.(type) {
				case string:
					col.Subjects = append(col.Subjects, v)
				case map[string]any:
					if val := stringField(v, "value"); val != "" {
						col.Subjects = append(col.Subjects, val)
					}
				}
			}
		}
	}

	return col
}

// metadataValue lấy metadata["<key>"][0].value từ shape DSpace 7.
func metadataValue(raw map[string]any, key string) string {
	meta, ok := raw["metadata"].(map[string]any)
	if !ok {
		return ""
	}
	entries, ok := meta[key].([]any)
	if !ok || len(entries) == 0 {
		return ""
	}
	if entry, ok := entries[0].(map[string]any); ok {
		return stringField(entry, "value")
	}
	return ""
}

// stringField đọc một field có thể là string hoặc số (DSpace trả id dạng số).
func stringField(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	}
	return ""
}

func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v := stringField(raw, k); v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
