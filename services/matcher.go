package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vnkhanh/dspace-ocr-admin/models"
)

// Heuristic matcher: chấm điểm từng collection theo metadata của tài liệu.
// Thuần túy deterministic — cùng input luôn ra cùng ranking, không network.
//
// Điểm khoa (100/90/80/70) luôn áp đảo điểm keyword thường (20/15) để hai collection
// trùng tên ở hai khoa khác nhau không bao giờ bị route nhầm.

// Bảng viết tắt khoa → tên đầy đủ
var deptMap = map[string]string{
	"cntt": "Công nghệ thông tin",
	"kt":   "Kinh tế",
	"qtkd": "Quản trị kinh doanh",
	"qt":   "Quản trị",
	"xd":   "Xây dựng",
	"mt":   "Môi trường",
	"nn":   "Ngoại ngữ",
	"dl":   "Du lịch",
	"dt":   "Điện tử",
	"ck":   "Cơ khí",
}

// deptOrder cố định thứ tự duyệt bảng viết tắt để kết quả deterministic
// (map Go iterate ngẫu nhiên).
var deptOrder = []string{"cntt", "kt", "qtkd", "qt", "xd", "mt", "nn", "dl", "dt", "ck"}

// Loại tài liệu → điểm khi tên collection chứa từ khóa đó. Match đầu tiên thắng.
var typeKeywords = []struct {
	keyword string
	score   int
}{
	{"khóa luận", 50},
	{"đồ án", 50},
	{"giáo trình", 50},
	{"luận văn", 50},
	{"bài giảng", 50},
	{"tài liệu", 40},
}

// minMatchScore: dưới ngưỡng này không trả gợi ý, người dùng phải chọn tay.
const minMatchScore = 30

// ScoredCollection là collection kèm điểm heuristic.
type ScoredCollection struct {
	models.Collection
	Score   int
	Signals []string
}

// identifyDepartment quét metadata tìm khoa, theo viết tắt hoặc tên đầy đủ.
func identifyDepartment(fields []models.MetadataField) string {
	department := strings.ToLower(models.FindValue(fields, "dc.department"))
	title := strings.ToLower(models.FindValue(fields, "dc.title"))
	subject := strings.ToLower(models.FindValue(fields, "dc.subject"))

	for _, abbr := range deptOrder {
		fullName := deptMap[abbr]
		if strings.Contains(department, abbr) ||
			strings.Contains(department, strings.ToLower(fullName)) ||
			strings.Contains(title, abbr) ||
			strings.Contains(subject, abbr) {
			return fullName
		}
	}
	return ""
}

// ScoreCollections chấm điểm mọi collection cho một tài liệu, sort giảm dần theo điểm.
func ScoreCollections(fields []models.MetadataField, collections []models.Collection) []ScoredCollection {
	docType := strings.ToLower(models.FindValue(fields, "dc.type"))
	subject := strings.ToLower(models.FindValue(fields, "dc.subject"))
	identifiedDept := identifyDepartment(fields)

	scored := make([]ScoredCollection, 0, len(collections))
	for _, col := range collections {
		sc := ScoredCollection{Collection: col}
		colName := strings.ToLower(col.Name)
		commName := strings.ToLower(col.CommunityName)

		// 1. Loại tài liệu — match đầu tiên thắng, không cộng dồn synonym
		if docType != "" {
			for _, tk := range typeKeywords {
				if strings.Contains(docType, tk.keyword) && strings.Contains(colName, tk.keyword) {
					sc.Score += tk.score
					sc.Signals = append(sc.Signals, "loại "+tk.keyword)
					break
				}
			}
		}

		// 2. Khoa — tín hiệu quyết định khi nhiều collection trùng tên
		if identifiedDept != "" {
			deptLower := strings.ToLower(identifiedDept)

			if strings.Contains(colName, deptLower) {
				sc.Score += 100
				sc.Signals = append(sc.Signals, "khoa trong tên collection")
			}
			if strings.Contains(commName, deptLower) {
				sc.Score += 80
				sc.Signals = append(sc.Signals, "khoa trong community")
			}
			for _, abbr := range deptOrder {
				if strings.EqualFold(deptMap[abbr], identifiedDept) {
					if strings.Contains(colName, abbr) {
						sc.Score += 90
						sc.Signals = append(sc.Signals, "viết tắt khoa trong tên collection")
					}
					if strings.Contains(commName, abbr) {
						sc.Score += 80
						sc.Signals = append(sc.Signals, "viết tắt khoa trong community")
					}
				}
			}
		}

		// 3. Keyword subject
		if subject != "" {
			for _, word := range strings.FieldsFunc(subject, func(r rune) bool { return r == ',' || r == ';' }) {
				word = strings.TrimSpace(word)
				if word == "" {
					continue
				}
				if strings.Contains(colName, word) {
					sc.Score += 20
				}
				if strings.Contains(commName, word) {
					sc.Score += 15
				}
			}
		}

		// 4. Tiebreak theo số item đã archive, cap thấp để không lấn át match nội dung
		if col.ArchivedItemsCount > 0 {
			bonus := col.ArchivedItemsCount / 100
			if bonus > 10 {
				bonus = 10
			}
			sc.Score += bonus
		}

		scored = append(scored, sc)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// FindBestMatch trả về collection điểm cao nhất nếu vượt ngưỡng, nil nếu không
// đủ tin cậy (caller fallback sang chọn tay).
func FindBestMatch(fields []models.MetadataField, collections []models.Collection) *ScoredCollection {
	if len(collections) == 0 {
		return nil
	}

	scored := ScoreCollections(fields, collections)
	best := scored[0]
	if best.Score > minMatchScore {
		return &best
	}
	return nil
}

// HeuristicSuggester chạy matcher cục bộ cho từng tài liệu trong batch.
// Cùng contract với GeminiSuggester nên test pipeline chạy được không cần mạng.
type HeuristicSuggester struct{}

func (HeuristicSuggester) Suggest(ctx context.Context, docs []models.Document, collections []models.Collection) ([]models.Suggestion, error) {
	suggestions := make([]models.Suggestion, 0, len(docs))

	for i, doc := range docs {
		sug := models.Suggestion{
			DocumentIndex: i,
			JobID:         doc.JobID,
			FolderName:    doc.FolderName,
		}

		if best := FindBestMatch(doc.Metadata, collections); best != nil {
			sug.CollectionID = best.ID
			sug.CollectionName = best.Name
			sug.CommunityName = best.CommunityName
			sug.Confidence = best.Score
			if sug.Confidence > 100 {
				sug.Confidence = 100
			}
			sug.Reasoning = "Khớp theo " + strings.Join(best.Signals, ", ")
			if len(best.Signals) == 0 {
				sug.Reasoning = fmt.Sprintf("Khớp keyword, điểm %d", best.Score)
			}
		} else {
			sug.Confidence = 0
			sug.Reasoning = "Không đủ tín hiệu để gợi ý, cần chọn tay"
		}

		suggestions = append(suggestions, sug)
	}

	return suggestions, nil
}
