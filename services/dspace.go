package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vnkhanh/dspace-ocr-admin/models"
)

// DSpaceClient gọi REST API của DSpace (6.x).
// Session cookie (JSESSIONID) được truyền tường minh qua tham số từng call,
// không giữ state nào trong client.
type DSpaceClient struct {
	defaultURL string
	httpClient *http.Client
}

func NewDSpaceClient(defaultURL string) *DSpaceClient {
	return &DSpaceClient{
		defaultURL: strings.TrimRight(defaultURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// resolveURL ưu tiên dspaceUrl client gửi kèm, fallback về config.
func (c *DSpaceClient) resolveURL(dspaceURL string) (string, error) {
	u := strings.TrimRight(dspaceURL, "/")
	if u == "" {
		u = c.defaultURL
	}
	if u == "" {
		return "", fmt.Errorf("thiếu dspaceUrl")
	}
	return u, nil
}

// Login đăng nhập DSpace, trả về session cookie đã cắt chỉ còn JSESSIONID.
func (c *DSpaceClient) Login(ctx context.Context, email, password, dspaceURL string) (string, error) {
	base, err := c.resolveURL(dspaceURL)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/rest/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UpstreamError{Service: "DSpace", Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &AuthError{Detail: truncate(string(body), detailPreviewLimit)}
	}

	rawCookie := resp.Header.Get("Set-Cookie")
	if rawCookie == "" {
		return "", &AuthError{Detail: "DSpace không trả về session cookie"}
	}

	// Cắt chỉ lấy phần JSESSIONID=..., bỏ các attribute phía sau
	return strings.SplitN(rawCookie, ";", 2)[0], nil
}

// Status kiểm tra session còn sống không.
// Session hết hạn thường trả về trang HTML/XML login thay vì 401 sạch,
// nên content-type không phải JSON thì coi như chưa đăng nhập — không trả lỗi.
func (c *DSpaceClient) Status(ctx context.Context, cookie, dspaceURL string) (map[string]any, error) {
	base, err := c.resolveURL(dspaceURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/rest/status", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cookie", cookie)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Service: "DSpace", Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		return map[string]any{
			"authenticated": false,
			"raw":           truncate(string(body), detailPreviewLimit),
		}, nil
	}

	var status map[string]any
	if err := json.Unmarshal(body, &status); err != nil {
		return map[string]any{"authenticated": false}, nil
	}
	return status, nil
}

// Collections lấy danh sách collection phẳng (limit cao để khỏi phân trang).
func (c *DSpaceClient) Collections(ctx context.Context, cookie, dspaceURL string) ([]models.Collection, error) {
	base, err := c.resolveURL(dspaceURL)
	if err != nil {
		return nil, err
	}

	body, err := c.getText(ctx, cookie, base+"/rest/collections?limit=1000")
	if err != nil {
		return nil, err
	}

	raws, err := decodeObjectList(body, "collections")
	if err != nil {
		return nil, &ParseError{What: "danh sách collection", Raw: truncate(body, detailPreviewLimit)}
	}

	out := make([]models.Collection, 0, len(raws))
	for _, raw := range raws {
		out = append(out, normalizeCollection(raw))
	}
	log.Printf("DSpace trả về %d collections", len(out))
	return out, nil
}

// CollectionsWithContext đi 2 bước: communities → collections của từng community,
// gắn ngữ cảnh community lên từng collection để phân biệt các collection trùng tên.
// Một community lỗi thì log và bỏ qua, danh sách tổng vẫn trả về (best-effort).
func (c *DSpaceClient) CollectionsWithContext(ctx context.Context, cookie, dspaceURL string) ([]models.Collection, error) {
	base, err := c.resolveURL(dspaceURL)
	if err != nil {
		return nil, err
	}

	commBody, err := c.getText(ctx, cookie, base+"/rest/communities?limit=1000")
	if err != nil {
		return nil, err
	}
	communities, err := decodeObjectList(commBody, "communities")
	if err != nil {
		return nil, &ParseError{What: "danh sách community", Raw: truncate(commBody, detailPreviewLimit)}
	}
	log.Printf("Tìm thấy %d communities", len(communities))

	out := []models.Collection{}
	for _, comm := range communities {
		commID := firstString(comm, "id", "uuid")
		commName, _ := comm["name"].(string)
		commHandle, _ := comm["handle"].(string)

		colBody, err := c.getText(ctx, cookie, fmt.Sprintf("%s/rest/communities/%s/collections", base, commID))
		if err != nil {
			log.Printf("Bỏ qua community %s: %v", commID, err)
			continue
		}
		raws, err := decodeObjectList(colBody, "collections")
		if err != nil {
			log.Printf("Không parse được collections của community %s", commID)
			continue
		}

		for _, raw := range raws {
			col := normalizeCollection(raw)
			col.CommunityID = commID
			col.CommunityName = commName
			col.CommunityHandle = commHandle
			col.DisplayName = fmt.Sprintf("%s (%s)", col.Name, commName)
			col.FullContext = fmt.Sprintf("%s > %s", commName, col.Name)
			out = append(out, col)
		}
	}

	log.Printf("Tổng cộng %d collections kèm ngữ cảnh community", len(out))
	return out, nil
}

// CreateItem tạo item chỉ-metadata trong collection.
// DSpace có thể trả JSON hoặc XML tùy version/cấu hình — sniff theo byte đầu tiên
// rồi normalize về models.Item với itemId thống nhất.
func (c *DSpaceClient) CreateItem(ctx context.Context, cookie, dspaceURL, collectionID string, metadata []models.MetadataField) (models.Item, error) {
	base, err := c.resolveURL(dspaceURL)
	if err != nil {
		return models.Item{}, err
	}

	payload := map[string]any{"metadata": metadata}
	buf, err := json.Marshal(payload)
	if err != nil {
		return models.Item{}, err
	}

	endpoint := fmt.Sprintf("%s/rest/collections/%s/items", base, collectionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return models.Item{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", cookie)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Item{}, &UpstreamError{Service: "DSpace", Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Item{}, err
	}
	text := string(body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Item{}, &UpstreamError{Service: "DSpace", Status: resp.StatusCode, Detail: truncate(text, detailPreviewLimit)}
	}

	item, err := parseItemResponse(text)
	if err != nil {
		return models.Item{}, err
	}
	return item, nil
}

// ItemByHandle tra cứu item theo persistent handle — dùng khi create-item
// không trả về id trực tiếp mà chỉ có handle.
func (c *DSpaceClient) ItemByHandle(ctx context.Context, cookie, dspaceURL, handle string) (models.Item, error) {
	base, err := c.resolveURL(dspaceURL)
	if err != nil {
		return models.Item{}, err
	}

	text, err := c.getText(ctx, cookie, base+"/rest/handle/"+handle)
	if err != nil {
		return models.Item{}, err
	}

	item, err := parseItemResponse(text)
	if err != nil {
		return models.Item{}, err
	}
	if item.ItemID == "" {
		return models.Item{}, &ParseError{What: "item id từ handle", Raw: truncate(text, detailPreviewLimit)}
	}
	return item, nil
}

// UploadBitstream đẩy raw bytes của file lên item, stream thẳng không buffer.
func (c *DSpaceClient) UploadBitstream(ctx context.Context, cookie, dspaceURL, itemID, fileName string, body io.Reader) (models.Bitstream, error) {
	base, err := c.resolveURL(dspaceURL)
	if err != nil {
		return models.Bitstream{}, err
	}
	if itemID == "" || itemID == "undefined" || itemID == "null" {
		return models.Bitstream{}, fmt.Errorf("itemId không hợp lệ")
	}

	endpoint := fmt.Sprintf("%s/rest/items/%s/bitstreams?name=%s", base, itemID, url.QueryEscape(fileName))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return models.Bitstream{}, err
	}
	req.Header.Set("Cookie", cookie)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Bitstream{}, &UpstreamError{Service: "DSpace", Detail: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Bitstream{}, err
	}
	text := string(respBody)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Bitstream{}, &UpstreamError{Service: "DSpace", Status: resp.StatusCode, Detail: truncate(text, detailPreviewLimit)}
	}

	return parseBitstreamResponse(text), nil
}

func (c *DSpaceClient) getText(ctx context.Context, cookie, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UpstreamError{Service: "DSpace", Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{Service: "DSpace", Status: resp.StatusCode, Detail: truncate(string(body), detailPreviewLimit)}
	}
	return string(body), nil
}
