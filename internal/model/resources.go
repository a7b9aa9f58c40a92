package model

import (
	"fmt"
	"strings"
)

type TaskState int

const (
	TaskDisabled TaskState = 0
	TaskEnabled  TaskState = 1
	TaskHidden   TaskState = 2
)

type Task struct {
	ID          string    `json:"id"`
	TaskName    string    `json:"task_name"`
	Description string    `json:"description,omitempty"`
	DueDate     string    `json:"due_date,omitempty"`
	CreatedAt   string    `json:"created_at,omitempty"`
	UpdatedAt   string    `json:"updated_at,omitempty"`
	State       TaskState `json:"state"`
	ImageCount  int       `json:"image_count,omitempty"`
}

// ImageStatus - этап обработки изображения. Порядок значений совпадает с
// порядком этапов, Failed стоит отдельно.
type ImageStatus int

const (
	ImageFailed ImageStatus = iota
	ImageUploaded
	ImageAreaCreating
	ImageAreaCreated
	ImageAreaSelecting
	ImageOCRWaiting
	ImageOCRProcessing
	ImageCompleted
)

var imageStatusNames = [...]string{
	ImageFailed:        "failed",
	ImageUploaded:      "uploaded",
	ImageAreaCreating:  "area-creating",
	ImageAreaCreated:   "area-created",
	ImageAreaSelecting: "area-selecting",
	ImageOCRWaiting:    "ocr-waiting",
	ImageOCRProcessing: "ocr-processing",
	ImageCompleted:     "completed",
}

func (s ImageStatus) String() string {
	if s < 0 || int(s) >= len(imageStatusNames) {
		return fmt.Sprintf("ImageStatus(%d)", int(s))
	}
	return imageStatusNames[s]
}

func ParseImageStatus(v string) (ImageStatus, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for i, name := range imageStatusNames {
		if name == v {
			return ImageStatus(i), nil
		}
	}
	return ImageFailed, fmt.Errorf("unknown image status %q", v)
}

func (s ImageStatus) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(imageStatusNames) {
		return nil, fmt.Errorf("invalid image status %d", int(s))
	}
	return []byte(imageStatusNames[s]), nil
}

func (s *ImageStatus) UnmarshalText(b []byte) error {
	v, err := ParseImageStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type Image struct {
	ID               string      `json:"id"`
	TaskID           string      `json:"task_id"`
	FileName         string      `json:"file_name"`
	FileSize         int64       `json:"file_size"`
	FileType         string      `json:"file_type,omitempty"`
	FilePath         string      `json:"file_path,omitempty"`
	ThumbnailPath    string      `json:"thumbnail_path,omitempty"`
	RectURL          string      `json:"rect_url,omitempty"`
	Description      string      `json:"description,omitempty"`
	ProcessingStatus ImageStatus `json:"processing_status"`
	ReceiptCount     int         `json:"receipt_count"`
	OCRConfidence    float64     `json:"ocr_confidence,omitempty"`
	CreatedAt        string      `json:"created_at,omitempty"`
	UpdatedAt        string      `json:"updated_at,omitempty"`
}

// ReceiptArea - прямоугольник чека на изображении.
type ReceiptArea struct {
	ID      string  `json:"id,omitempty"`
	ImageID string  `json:"image_id,omitempty"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width" validate:"gt=0"`
	Height  float64 `json:"height" validate:"gt=0"`
}

type OCRResult struct {
	ImageID    string    `json:"image_id"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	Receipts   []Receipt `json:"receipts,omitempty"`
}

const (
	SortByCreatedAt = "created_at"
	SortByFileSize  = "file_size"
	SortByFileName  = "file_name"

	SortAsc  = "asc"
	SortDesc = "desc"
)

type ImageFilter struct {
	// nil - все статусы.
	Status    *ImageStatus
	SortBy    string
	SortOrder string
	Search    string
}

func DefaultImageFilter() ImageFilter {
	return ImageFilter{SortBy: SortByCreatedAt, SortOrder: SortDesc}
}

type ReceiptItem struct {
	Name     string  `json:"name" validate:"required"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Total    float64 `json:"total"`
}

type Receipt struct {
	ID           string        `json:"id"`
	ImageID      string        `json:"image_id"`
	Title        string        `json:"title,omitempty"`
	StoreName    string        `json:"store_name,omitempty"`
	PurchaseDate string        `json:"purchase_date,omitempty"`
	TotalAmount  float64       `json:"total_amount"`
	ImageURL     string        `json:"image_url,omitempty"`
	Items        []ReceiptItem `json:"items,omitempty"`
	Content      string        `json:"content,omitempty"`
	State        int           `json:"state,omitempty"`
	CreatedAt    string        `json:"created_at,omitempty"`
}

type ReceiptAnalysis struct {
	ID             string         `json:"id"`
	ReceiptID      string         `json:"receipt_id"`
	AnalysisResult map[string]any `json:"analysis_result"`
	State          int            `json:"state"`
	CreatedAt      string         `json:"created_at,omitempty"`
}

type ProcessedReceipt struct {
	ID             string        `json:"id"`
	ImageID        string        `json:"image_id"`
	StoreName      string        `json:"store_name,omitempty"`
	Date           string        `json:"date,omitempty"`
	TotalAmount    float64       `json:"total_amount"`
	TaxAmount      float64       `json:"tax_amount,omitempty"`
	DiscountAmount float64       `json:"discount_amount,omitempty"`
	PaymentMethod  string        `json:"payment_method,omitempty"`
	Items          []ReceiptItem `json:"items,omitempty"`
}
