package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/vnkhanh/dspace-ocr-admin/models"
)

// Suggester gợi ý collection cho một batch tài liệu.
// Hai implementation (heuristic cục bộ và Gemini) cùng contract,
// nên pipeline test được với heuristic mà không cần mạng.
type Suggester interface {
	Suggest(ctx context.Context, docs []models.Document, collections []models.Collection) ([]models.Suggestion, error)
}

const rawPreviewLimit = 1000

// GeminiSuggester gọi Gemini đúng MỘT lần cho cả batch (không gọi per-document
// để giới hạn chi phí và latency).
type GeminiSuggester struct {
	APIKey string

	// generate cho phép test inject fake, mặc định gọi Gemini thật
	generate func(ctx context.Context, apiKey, prompt string) (string, error)
}

func NewGeminiSuggester(apiKey string) *GeminiSuggester {
	return &GeminiSuggester{APIKey: apiKey, generate: GeminiGenerateText}
}

func (g *GeminiSuggester) Suggest(ctx context.Context, docs []models.Document, collections []models.Collection) ([]models.Suggestion, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("batch rỗng")
	}

	prompt := buildBatchPrompt(docs, collections)

	log.Printf("Phân tích %d tài liệu với %d collections trong 1 lần gọi Gemini", len(docs), len(collections))

	gen := g.generate
	if gen == nil {
		gen = GeminiGenerateText
	}
	raw, err := gen(ctx, g.APIKey, prompt)
	if err != nil {
		return nil, err
	}

	suggestions, err := ParseSuggestionResponse(raw, len(docs))
	if err != nil {
		return nil, err
	}

	// Gắn lại jobId theo folderName / index để caller không phụ thuộc thứ tự
	reassociate(suggestions, docs)
	return suggestions, nil
}

// buildBatchPrompt nhúng toàn bộ collection (kèm ngữ cảnh community) và metadata
// từng tài liệu, yêu cầu model phân biệt collection trùng tên theo community/khoa.
func buildBatchPrompt(docs []models.Document, collections []models.Collection) string {
	var cols strings.Builder
	for i, c := range collections {
		if i > 0 {
			cols.WriteString("\n\n")
		}
		fullContext := c.FullContext
		if fullContext == "" {
			fullContext = c.Name
		}
		fmt.Fprintf(&cols, `%d. ID: %s
   Name: %s
   Community: %s
   Full Context: %s
   Description: %s
   Handle: %s
   Items Count: %d`,
			i+1, firstNonEmpty(c.ID, c.UUID), c.Name,
			orNA(c.CommunityName), fullContext, orNA(c.Description), orNA(c.Handle),
			c.ArchivedItemsCount)
	}

	separator := strings.Repeat("=", 80)

	var docsStr strings.Builder
	for i, d := range docs {
		if i > 0 {
			docsStr.WriteString("\n\n" + separator + "\n\n")
		}
		fmt.Fprintf(&docsStr, "DOCUMENT %d:\nFolder: %s\nTitle: %s\nMetadata:\n", i+1, d.FolderName, d.Title)
		for _, m := range d.Metadata {
			fmt.Fprintf(&docsStr, "  %s: %s\n", m.Key, m.Value)
		}
	}

	return fmt.Sprintf(`You are a library cataloging expert. You need to analyze MULTIPLE documents and suggest the most appropriate DSpace collection for EACH document.

IMPORTANT: Collections with the SAME NAME may exist in DIFFERENT COMMUNITIES. Pay close attention to the "Community" and "Full Context" fields to distinguish them.

AVAILABLE COLLECTIONS:
%s

DOCUMENTS TO ANALYZE:
%s
%s

TASK:
For EACH document (1 to %d):
1. Analyze the document's metadata (title, author, subject, type, department, abstract, etc.)
2. Match it with the most appropriate collection
3. CRITICAL: Pay special attention to:
   - Document type (Khóa luận, Đồ án, Giáo trình, etc.)
   - Department/Faculty mentioned in metadata (CNTT, Du lịch, XD, Môi trường, etc.)
   - Community context of each collection
4. If multiple collections have the same name, choose based on community match
5. Provide confidence score (0-100)
6. Give brief reasoning (max 2 sentences)

EXAMPLE MATCHING LOGIC:
- If document mentions "Khoa CNTT" or "Công nghệ thông tin" → Choose collection in "Khoa Công nghệ thông tin" community
- If document is "Khóa luận" type → Choose "Khóa luận tốt nghiệp" collection in matching department community
- If document is "Giáo trình" in "Du lịch" field → Choose "Giáo trình" in "Khoa Du lịch" community, NOT in "Khoa CNTT"

RESPOND ONLY WITH THIS JSON FORMAT (no markdown, no explanation):
{
  "suggestions": [
    {
      "documentIndex": 0,
      "folderName": "folder_name_here",
      "collectionId": "the collection ID",
      "collectionName": "the collection name",
      "communityName": "the community name",
      "confidence": 85,
      "reasoning": "Brief explanation mentioning community match"
    }
  ]
}

CRITICAL: Return suggestions array with EXACTLY %d items, one for each document.
Return ONLY valid JSON, no markdown blocks, no additional text.`,
		cols.String(), separator, docsStr.String(), len(docs), len(docs))
}

// StripCodeFences bỏ fence markdown (```json ... ```) bọc quanh payload nếu có.
func StripCodeFences(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

// ParseSuggestionResponse parse output của model.
// Lệch số lượng suggestion chỉ log warning chứ không fail — caller xử lý phần trả về.
// Parse fail thì giữ prefix raw text trong ParseError để chẩn đoán.
func ParseSuggestionResponse(raw string, wantCount int) ([]models.Suggestion, error) {
	cleaned := StripCodeFences(raw)

	var result struct {
		Suggestions []models.Suggestion `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, &ParseError{What: "response AI", Raw: truncate(raw, rawPreviewLimit)}
	}
	if result.Suggestions == nil {
		return nil, &ParseError{What: "response AI (thiếu mảng suggestions)", Raw: truncate(raw, rawPreviewLimit)}
	}

	if len(result.Suggestions) != wantCount {
		log.Printf("Cảnh báo: mong đợi %d suggestions, nhận được %d", wantCount, len(result.Suggestions))
	}

	return result.Suggestions, nil
}

// reassociate gắn jobId vào suggestion: ưu tiên jobId model trả về,
// rồi folderName, cuối cùng mới fallback theo documentIndex.
func reassociate(suggestions []models.Suggestion, docs []models.Document) {
	byFolder := make(map[string]models.Document, len(docs))
	for _, d := range docs {
		byFolder[d.FolderName] = d
	}

	for i := range suggestions {
		s := &suggestions[i]
		if s.JobID != "" {
			continue
		}
		if d, ok := byFolder[s.FolderName]; ok {
			s.JobID = d.JobID
			continue
		}
		if s.DocumentIndex >= 0 && s.DocumentIndex < len(docs) {
			s.JobID = docs[s.DocumentIndex].JobID
			s.FolderName = docs[s.DocumentIndex].FolderName
		}
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
